package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeltran/armlex/internal/lang/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func TestScanStatementForms(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		kinds  []token.Kind
		lexeme []string
	}{
		{
			name:   "declaration",
			src:    "Robot R1",
			kinds:  []token.Kind{token.IDENT, token.IDENT, token.EOF},
			lexeme: []string{"Robot", "R1", ""},
		},
		{
			name:   "assignment",
			src:    "R1.base = 90",
			kinds:  []token.Kind{token.IDENT, token.DOT, token.IDENT, token.ASSIGN, token.INT, token.EOF},
			lexeme: []string{"R1", ".", "base", "=", "90", ""},
		},
		{
			name:   "assignment without spaces",
			src:    "R1.elbow=45",
			kinds:  []token.Kind{token.IDENT, token.DOT, token.IDENT, token.ASSIGN, token.INT, token.EOF},
			lexeme: []string{"R1", ".", "elbow", "=", "45", ""},
		},
		{
			name:   "negative value",
			src:    "R1.base = -45",
			kinds:  []token.Kind{token.IDENT, token.DOT, token.IDENT, token.ASSIGN, token.INT, token.EOF},
			lexeme: []string{"R1", ".", "base", "=", "-45", ""},
		},
		{
			name: "repeat block",
			src:  "R1.repeat = 3 {\nR1.base = 10\n}",
			kinds: []token.Kind{
				token.IDENT, token.DOT, token.IDENT, token.ASSIGN, token.INT, token.LBRACE,
				token.IDENT, token.DOT, token.IDENT, token.ASSIGN, token.INT,
				token.RBRACE, token.EOF,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks := Scan(tc.src)
			require.Equal(t, tc.kinds, kinds(toks))
			if tc.lexeme != nil {
				for i, want := range tc.lexeme {
					assert.Equal(t, want, toks[i].Lexeme, "token %d", i)
				}
			}
		})
	}
}

func TestScanIllegalInput(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		illegal string
	}{
		{name: "digit-led word", src: "Robot 1R", illegal: "1R"},
		{name: "digits inside ident", src: "Robot R1X", illegal: "R1X"},
		{name: "underscore", src: "R_1.base = 5", illegal: "_"},
		{name: "stray punctuation", src: "R1.base = 90;", illegal: ";"},
		{name: "bare sign", src: "R1.base = -", illegal: "-"},
		{name: "digits running into letters", src: "R1.base = 12x", illegal: "12x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var found []string
			for _, tok := range Scan(tc.src) {
				if tok.Kind == token.ILLEGAL {
					found = append(found, tok.Lexeme)
				}
			}
			require.NotEmpty(t, found, "expected an illegal token")
			assert.Contains(t, found, tc.illegal)
		})
	}
}

func TestScanCommentsAndBlankLines(t *testing.T) {
	src := "# program header\n\nRobot R1\n  # trailing note\nR1.base = 10 # inline\n"
	toks := Scan(src)
	require.Equal(t, []token.Kind{
		token.IDENT, token.IDENT,
		token.IDENT, token.DOT, token.IDENT, token.ASSIGN, token.INT,
		token.EOF,
	}, kinds(toks))
}

func TestNextKeepsComments(t *testing.T) {
	lx := New("# hello\nRobot R1")
	tok := lx.Next()
	require.Equal(t, token.COMMENT, tok.Kind)
	assert.Equal(t, "# hello", tok.Lexeme)
}

func TestPositions(t *testing.T) {
	src := "Robot R1\nR1.base = 90"
	toks := Scan(src)

	require.Len(t, toks, 8)
	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, toks[0].Pos)
	assert.Equal(t, token.Position{Line: 1, Column: 7, Offset: 6}, toks[1].Pos)
	// first token of the second line
	assert.Equal(t, 2, toks[2].Pos.Line)
	assert.Equal(t, 1, toks[2].Pos.Column)
	// the value 90 sits after "R1.base = "
	assert.Equal(t, token.INT, toks[6].Kind)
	assert.Equal(t, 2, toks[6].Pos.Line)
	assert.Equal(t, 11, toks[6].Pos.Column)
}

func TestScanEmptyInput(t *testing.T) {
	toks := Scan("")
	require.Len(t, toks, 1)
	assert.Equal(t, token.EOF, toks[0].Kind)

	toks = Scan("   \n\t\n")
	require.Len(t, toks, 1)
	assert.Equal(t, token.EOF, toks[0].Kind)
}

func TestEOFIsSticky(t *testing.T) {
	lx := New("R1")
	require.Equal(t, token.IDENT, lx.Next().Kind)
	require.Equal(t, token.EOF, lx.Next().Kind)
	require.Equal(t, token.EOF, lx.Next().Kind)
}
