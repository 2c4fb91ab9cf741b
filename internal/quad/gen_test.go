package quad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeltran/armlex/internal/lang/lexer"
	"github.com/mbeltran/armlex/internal/lang/parser"
)

func lower(t *testing.T, src string) []Quadruple {
	t.Helper()
	prog, diags := parser.Parse(lexer.Scan(src))
	require.Empty(t, diags, "fixture must parse cleanly")
	return Generate(prog)
}

func TestGenerateDeclaration(t *testing.T) {
	quads := lower(t, "Robot R1")
	require.Equal(t, []Quadruple{
		{Op: OpCreate, Arg1: "Robot", Result: "R1"},
	}, quads)
}

func TestGenerateMove(t *testing.T) {
	quads := lower(t, "Robot R1\nR1.base = 90")
	require.Equal(t, []Quadruple{
		{Op: OpCreate, Arg1: "Robot", Result: "R1"},
		{Op: OpCall, Arg1: "R1", Arg2: "90", Result: "base"},
	}, quads)
}

func TestGenerateSpeedChain(t *testing.T) {
	quads := lower(t, "Robot R1\nR1.speed = 5")
	require.Equal(t, []Quadruple{
		{Op: OpCreate, Arg1: "Robot", Result: "R1"},
		{Op: OpCreate, Arg1: "R1", Result: "vel1"},
		{Op: OpSet, Arg1: "5", Result: "vel1"},
		{Op: OpAssoc, Arg1: "vel1", Result: "R1.speed"},
	}, quads)
}

func TestGenerateSpeedTemporariesNumberSequentially(t *testing.T) {
	quads := lower(t, "Robot R1\nR1.speed = 5\nR1.speed = 10")
	var vels []string
	for _, q := range quads {
		if q.Op == OpCreate && q.Arg1 == "R1" {
			vels = append(vels, q.Result)
		}
	}
	assert.Equal(t, []string{"vel1", "vel2"}, vels)
}

func TestGenerateRepeatBlock(t *testing.T) {
	src := `Robot R1
R1.repeat = 3 {
    R1.base = 10
    R1.elbow = 20
}`
	quads := lower(t, src)
	require.Equal(t, []Quadruple{
		{Op: OpCreate, Arg1: "Robot", Result: "R1"},
		{Op: OpCreate, Arg1: "R1", Result: "counter1"},
		{Op: OpSet, Arg1: "3", Result: "counter1"},
		{Op: OpCreate, Arg1: "Loop", Result: "loop1"},
		{Op: OpAssoc, Arg1: "counter1", Result: "loop1.counter"},
		{Op: OpAssoc, Arg1: "loop1", Result: "R1.repeat"},
		{Op: OpBeginLoop, Arg1: "3", Result: "loop1"},
		{Op: OpCall, Arg1: "R1", Arg2: "10", Result: "base"},
		{Op: OpCall, Arg1: "R1", Arg2: "20", Result: "elbow"},
		{Op: OpEndLoop, Arg1: "loop1", Arg2: "3"},
	}, quads)
}

func TestGenerateLoopBodyEmittedOnce(t *testing.T) {
	src := `Robot R1
R1.repeat = 2 {
    R1.base = 10
}`
	quads := lower(t, src)

	calls := 0
	for _, q := range quads {
		if q.Op == OpCall {
			calls++
		}
	}
	assert.Equal(t, 1, calls, "the body appears once regardless of the count")
}

func TestGenerateSpeedInsideLoop(t *testing.T) {
	src := `Robot R1
R1.speed = 2
R1.repeat = 2 {
    R1.speed = 8
    R1.base = 10
}`
	quads := lower(t, src)

	begin, end := -1, -1
	for i, q := range quads {
		switch q.Op {
		case OpBeginLoop:
			begin = i
		case OpEndLoop:
			end = i
		}
	}
	require.Greater(t, begin, 0)
	require.Greater(t, end, begin)

	var inLoop []Op
	for _, q := range quads[begin+1 : end] {
		inLoop = append(inLoop, q.Op)
	}
	assert.Equal(t, []Op{OpCreate, OpSet, OpAssoc, OpCall}, inLoop)

	// the loop's speed temporary continues the global numbering
	assert.Equal(t, "vel2", quads[begin+1].Result)
}

func TestLoopBounds(t *testing.T) {
	src := `Robot R1
R1.repeat = 2 {
    R1.base = 10
}
R1.repeat = 3 {
    R1.elbow = 5
}`
	quads := lower(t, src)

	var begins []int
	for i, q := range quads {
		if q.Op == OpBeginLoop {
			begins = append(begins, i)
		}
	}
	require.Len(t, begins, 2)

	for _, b := range begins {
		end, err := LoopBounds(quads, b)
		require.NoError(t, err)
		assert.Equal(t, OpEndLoop, quads[end].Op)
		assert.Equal(t, quads[b].Result, quads[end].Arg1)
	}

	_, err := LoopBounds(quads, 0)
	assert.Error(t, err)
}

func TestSpeedTarget(t *testing.T) {
	q := Quadruple{Op: OpAssoc, Arg1: "vel1", Result: "R1.speed"}
	robot, ok := q.SpeedTarget()
	require.True(t, ok)
	assert.Equal(t, "R1", robot)

	_, ok = Quadruple{Op: OpAssoc, Arg1: "loop1", Result: "R1.repeat"}.SpeedTarget()
	assert.False(t, ok)

	_, ok = Quadruple{Op: OpCall, Arg1: "R1", Arg2: "90", Result: "base"}.SpeedTarget()
	assert.False(t, ok)
}

func TestOperandPlaceholder(t *testing.T) {
	assert.Equal(t, "—", Operand(""))
	assert.Equal(t, "R1", Operand("R1"))
	assert.Equal(t, "CALL R1 90 base", Quadruple{Op: OpCall, Arg1: "R1", Arg2: "90", Result: "base"}.String())
}
