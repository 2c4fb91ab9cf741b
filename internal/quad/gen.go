package quad

import (
	"strconv"

	"github.com/mbeltran/armlex/internal/lang/ast"
)

// Generate lowers a parsed program into its quadruple sequence. The program
// is expected to have passed semantic analysis; generation itself cannot
// fail.
func Generate(prog *ast.Program) []Quadruple {
	g := &generator{}
	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *ast.DeclStmt:
			g.emit(OpCreate, "Robot", "", s.Name)
		case *ast.AssignStmt:
			g.assign(s)
		case *ast.RepeatStmt:
			g.repeat(s)
		}
	}
	return g.out
}

type generator struct {
	out   []Quadruple
	vels  int
	loops int
}

func (g *generator) emit(op Op, arg1, arg2, result string) {
	g.out = append(g.out, Quadruple{Op: op, Arg1: arg1, Arg2: arg2, Result: result})
}

// assign lowers one command assignment. Speed materializes a velN temporary
// bound to the robot's speed attribute; every other command is a direct CALL.
func (g *generator) assign(s *ast.AssignStmt) {
	value := strconv.Itoa(s.Value)
	if s.Command == CmdSpeed {
		g.vels++
		vel := "vel" + strconv.Itoa(g.vels)
		g.emit(OpCreate, s.Robot, "", vel)
		g.emit(OpSet, value, "", vel)
		g.emit(OpAssoc, vel, "", s.Robot+"."+CmdSpeed)
		return
	}
	g.emit(OpCall, s.Robot, value, s.Command)
}

// repeat lowers a repeat block: counter and loop temporaries, the loop
// bindings, then the body exactly once between BEGIN_LOOP and END_LOOP.
func (g *generator) repeat(s *ast.RepeatStmt) {
	g.loops++
	n := strconv.Itoa(g.loops)
	counter := "counter" + n
	loop := "loop" + n
	count := strconv.Itoa(s.Count)

	g.emit(OpCreate, s.Robot, "", counter)
	g.emit(OpSet, count, "", counter)
	g.emit(OpCreate, "Loop", "", loop)
	g.emit(OpAssoc, counter, "", loop+".counter")
	g.emit(OpAssoc, loop, "", s.Robot+".repeat")
	g.emit(OpBeginLoop, count, "", loop)
	for _, body := range s.Body {
		g.assign(body)
	}
	g.emit(OpEndLoop, loop, count, "")
}
