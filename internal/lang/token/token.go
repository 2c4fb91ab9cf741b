// Package token defines the lexical tokens of the robot command language and
// the source positions attached to them.
package token

import "fmt"

// Kind identifies the class of a lexical token
type Kind int

const (
	// ILLEGAL marks a rune sequence the lexer could not classify
	ILLEGAL Kind = iota
	// EOF marks the end of the input
	EOF
	// COMMENT is a '#' line comment (normally discarded before parsing)
	COMMENT
	// IDENT is a robot identifier or command word
	IDENT
	// INT is an integer literal, optionally signed
	INT
	// ASSIGN is '='
	ASSIGN
	// DOT is '.'
	DOT
	// LBRACE is '{'
	LBRACE
	// RBRACE is '}'
	RBRACE
)

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	COMMENT: "COMMENT",
	IDENT:   "IDENT",
	INT:     "INT",
	ASSIGN:  "=",
	DOT:     ".",
	LBRACE:  "{",
	RBRACE:  "}",
}

// String returns the human-readable name of the kind
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Position locates a token in the source text. Line and Column are 1-based,
// Offset is the 0-based byte offset of the first rune.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// String formats the position as "line:column"
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position carries real location info
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Token is a single lexical unit with its original spelling and location
type Token struct {
	Kind   Kind     `json:"kind"`
	Lexeme string   `json:"lexeme"`
	Pos    Position `json:"pos"`
}

// String formats the token for diagnostics and debug output
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case ILLEGAL:
		return fmt.Sprintf("invalid input %q", t.Lexeme)
	default:
		return fmt.Sprintf("%q", t.Lexeme)
	}
}

// Is reports whether the token has the given kind
func (t Token) Is(k Kind) bool {
	return t.Kind == k
}
