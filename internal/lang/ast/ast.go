// Package ast defines the syntax tree produced by the parser.
//
// The language has exactly three statement forms: a robot declaration, a
// command assignment, and a repeat block wrapping command assignments. All
// identifiers are stored canonicalized (robot names upper case, command words
// lower case); the original spelling survives only in token lexemes.
package ast

import (
	"fmt"

	"github.com/mbeltran/armlex/internal/lang/token"
)

// Stmt is implemented by all statement nodes
type Stmt interface {
	// Pos returns the position of the statement's first token
	Pos() token.Position
	stmtNode()
}

// Program is an ordered list of top-level statements
type Program struct {
	Stmts []Stmt
}

// Robots returns the declared robot names in declaration order
func (p *Program) Robots() []string {
	var out []string
	for _, s := range p.Stmts {
		if d, ok := s.(*DeclStmt); ok {
			out = append(out, d.Name)
		}
	}
	return out
}

// DeclStmt is a robot declaration: `Robot R1`
type DeclStmt struct {
	// Name is the canonicalized robot identifier
	Name    string
	NamePos token.Position
	DeclPos token.Position
}

func (s *DeclStmt) Pos() token.Position { return s.DeclPos }
func (s *DeclStmt) stmtNode()           {}

// String renders the statement in canonical source form
func (s *DeclStmt) String() string { return "Robot " + s.Name }

// AssignStmt is a command assignment: `R1.base = 90`
type AssignStmt struct {
	// Robot is the canonicalized robot identifier
	Robot string
	// Command is the canonicalized command word, alias-resolved by the parser
	Command string
	// Value is the parsed integer operand
	Value    int
	RobotPos token.Position
	CmdPos   token.Position
	ValuePos token.Position
}

func (s *AssignStmt) Pos() token.Position { return s.RobotPos }
func (s *AssignStmt) stmtNode()           {}

// String renders the statement in canonical source form
func (s *AssignStmt) String() string {
	return fmt.Sprintf("%s.%s = %d", s.Robot, s.Command, s.Value)
}

// RepeatStmt is a repeat block:
//
//	R1.repeat = 3 {
//	    R1.base = 10
//	}
type RepeatStmt struct {
	// Robot is the canonicalized robot identifier owning the block
	Robot string
	// Count is the repetition operand
	Count int
	// Body holds the block's command assignments in source order
	Body     []*AssignStmt
	RobotPos token.Position
	CountPos token.Position
	BracePos token.Position
}

func (s *RepeatStmt) Pos() token.Position { return s.RobotPos }
func (s *RepeatStmt) stmtNode()           {}

// String renders the block header in canonical source form
func (s *RepeatStmt) String() string {
	return fmt.Sprintf("%s.repeat = %d { ... }", s.Robot, s.Count)
}
