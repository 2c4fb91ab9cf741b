// Package quad defines the quadruple intermediate representation the
// analyzer lowers programs into and the executor runs.
package quad

import (
	"fmt"
	"strings"
)

// Op is a quadruple operator
type Op string

const (
	// OpCreate introduces a robot, a temporary, or a loop object
	OpCreate Op = "CREATE"
	// OpSet stores a literal into a temporary
	OpSet Op = "="
	// OpAssoc binds a temporary or loop to a robot attribute
	OpAssoc Op = "ASSOC"
	// OpCall commands a joint movement: arg1 robot, arg2 value, result command
	OpCall Op = "CALL"
	// OpBeginLoop opens a repetition region: arg1 count, result loop name
	OpBeginLoop Op = "BEGIN_LOOP"
	// OpEndLoop closes a repetition region: arg1 loop name, arg2 count
	OpEndLoop Op = "END_LOOP"
)

// CmdSpeed is the canonical speed command word. Speed assignments lower to a
// temporary plus ASSOC chain instead of a CALL, and the executor turns the
// bound value into the per-move delay.
const CmdSpeed = "speed"

// Placeholder is how empty operands are rendered in tables
const Placeholder = "—"

// Quadruple is one IR instruction. Unused operand slots are empty strings.
type Quadruple struct {
	Op     Op     `json:"op"`
	Arg1   string `json:"arg1,omitempty"`
	Arg2   string `json:"arg2,omitempty"`
	Result string `json:"result,omitempty"`
}

// Operand formats an operand slot for display
func Operand(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// String renders the quadruple in table order: op, arg1, arg2, result
func (q Quadruple) String() string {
	return strings.Join([]string{
		string(q.Op), Operand(q.Arg1), Operand(q.Arg2), Operand(q.Result),
	}, " ")
}

// SpeedTarget returns the robot whose speed an ASSOC binds, or false when
// the quadruple is not a speed binding.
func (q Quadruple) SpeedTarget() (string, bool) {
	if q.Op != OpAssoc {
		return "", false
	}
	robot, attr, ok := strings.Cut(q.Result, ".")
	if !ok || attr != CmdSpeed {
		return "", false
	}
	return robot, true
}

// LoopBounds locates the BEGIN_LOOP..END_LOOP region for the loop opened at
// begin, returning the index of the matching END_LOOP. Loops do not nest, so
// the first END_LOOP with the same loop name closes the region.
func LoopBounds(quads []Quadruple, begin int) (end int, err error) {
	if begin < 0 || begin >= len(quads) || quads[begin].Op != OpBeginLoop {
		return 0, fmt.Errorf("quad %d is not a BEGIN_LOOP", begin)
	}
	name := quads[begin].Result
	for i := begin + 1; i < len(quads); i++ {
		if quads[i].Op == OpEndLoop && quads[i].Arg1 == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("loop %s has no END_LOOP", name)
}
