// Package diag carries the diagnostics produced by the analysis phases.
package diag

import (
	"fmt"
	"sort"

	"github.com/mbeltran/armlex/internal/lang/token"
)

// Phase identifies which analysis phase produced a diagnostic
type Phase string

const (
	// PhaseLexical covers tokenization findings
	PhaseLexical Phase = "lexical"
	// PhaseSyntax covers parse findings
	PhaseSyntax Phase = "syntax"
	// PhaseSemantic covers symbol and range findings
	PhaseSemantic Phase = "semantic"
)

// Diagnostic is one finding against the user's program. Diagnostics are not
// Go errors: a program with diagnostics analyzed successfully, it just does
// not pass.
type Diagnostic struct {
	Phase   Phase          `json:"phase"`
	Pos     token.Position `json:"pos"`
	Message string         `json:"message"`
}

// String formats the diagnostic the way reports print it
func (d Diagnostic) String() string {
	if !d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", d.Phase, d.Message)
	}
	return fmt.Sprintf("%s: line %d: %s", d.Phase, d.Pos.Line, d.Message)
}

// List accumulates diagnostics across phases
type List []Diagnostic

// Add appends a formatted diagnostic
func (l *List) Add(phase Phase, pos token.Position, format string, args ...any) {
	*l = append(*l, Diagnostic{Phase: phase, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all diagnostics from other
func (l *List) Merge(other List) {
	*l = append(*l, other...)
}

// Sort orders the list by source position, then phase order
func (l List) Sort() {
	phaseRank := map[Phase]int{PhaseLexical: 0, PhaseSyntax: 1, PhaseSemantic: 2}
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].Pos.Offset != l[j].Pos.Offset {
			return l[i].Pos.Offset < l[j].Pos.Offset
		}
		return phaseRank[l[i].Phase] < phaseRank[l[j].Phase]
	})
}

// ByPhase returns the diagnostics belonging to the given phase
func (l List) ByPhase(p Phase) List {
	var out List
	for _, d := range l {
		if d.Phase == p {
			out = append(out, d)
		}
	}
	return out
}

// Empty reports whether the program passed all phases
func (l List) Empty() bool { return len(l) == 0 }
