// Package lexer turns robot command language source text into a token stream.
//
// The lexer never fails hard: input it cannot classify is emitted as an
// ILLEGAL token carrying the offending lexeme and its position, so a single
// bad character does not hide later findings.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/mbeltran/armlex/internal/lang/token"
)

// Lexer scans one source text. It is not safe for concurrent use.
type Lexer struct {
	src    string
	offset int // byte offset of the next rune
	line   int
	col    int
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Scan tokenizes src completely. Comments are dropped; the final token is
// always EOF.
func Scan(src string) []token.Token {
	lx := New(src)
	var out []token.Token
	for {
		tok := lx.Next()
		if tok.Kind == token.COMMENT {
			continue
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// Next returns the next token, including COMMENT tokens. After EOF it keeps
// returning EOF.
func (l *Lexer) Next() token.Token {
	l.skipSpace()

	pos := l.position()
	r, size := l.peek()
	if size == 0 {
		return token.Token{Kind: token.EOF, Pos: pos}
	}

	switch {
	case r == '#':
		return token.Token{Kind: token.COMMENT, Lexeme: l.scanComment(), Pos: pos}
	case r == '=':
		l.advance(size)
		return token.Token{Kind: token.ASSIGN, Lexeme: "=", Pos: pos}
	case r == '.':
		l.advance(size)
		return token.Token{Kind: token.DOT, Lexeme: ".", Pos: pos}
	case r == '{':
		l.advance(size)
		return token.Token{Kind: token.LBRACE, Lexeme: "{", Pos: pos}
	case r == '}':
		l.advance(size)
		return token.Token{Kind: token.RBRACE, Lexeme: "}", Pos: pos}
	case r == '-' || isDigit(r):
		return l.scanNumber(pos)
	case isLetter(r):
		return l.scanWord(pos)
	default:
		l.advance(size)
		return token.Token{Kind: token.ILLEGAL, Lexeme: string(r), Pos: pos}
	}
}

// scanWord consumes a run of letters and digits. Identifiers are letters
// optionally followed by digits; a digit in the middle (such as "R1X") makes
// the whole word illegal rather than two tokens.
func (l *Lexer) scanWord(pos token.Position) token.Token {
	lexeme := l.takeWhile(isAlnum)
	if !wellFormedIdent(lexeme) {
		return token.Token{Kind: token.ILLEGAL, Lexeme: lexeme, Pos: pos}
	}
	return token.Token{Kind: token.IDENT, Lexeme: lexeme, Pos: pos}
}

// scanNumber consumes an optionally signed integer literal. A sign with no
// digits, or digits running into letters ("12x"), is illegal.
func (l *Lexer) scanNumber(pos token.Position) token.Token {
	start := l.offset
	if r, size := l.peek(); r == '-' {
		l.advance(size)
	}
	digits := l.takeWhile(isDigit)
	if digits == "" {
		return token.Token{Kind: token.ILLEGAL, Lexeme: l.src[start:l.offset], Pos: pos}
	}
	if trailing := l.takeWhile(isAlnum); trailing != "" {
		return token.Token{Kind: token.ILLEGAL, Lexeme: l.src[start:l.offset], Pos: pos}
	}
	return token.Token{Kind: token.INT, Lexeme: l.src[start:l.offset], Pos: pos}
}

// scanComment consumes '#' through end of line, excluding the newline.
func (l *Lexer) scanComment() string {
	start := l.offset
	for {
		r, size := l.peek()
		if size == 0 || r == '\n' {
			return l.src[start:l.offset]
		}
		l.advance(size)
	}
}

func (l *Lexer) skipSpace() {
	for {
		r, size := l.peek()
		if size == 0 || !unicode.IsSpace(r) {
			return
		}
		l.advance(size)
	}
}

func (l *Lexer) takeWhile(pred func(rune) bool) string {
	start := l.offset
	for {
		r, size := l.peek()
		if size == 0 || !pred(r) {
			return l.src[start:l.offset]
		}
		l.advance(size)
	}
}

func (l *Lexer) peek() (rune, int) {
	if l.offset >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[l.offset:])
}

func (l *Lexer) advance(size int) {
	if l.offset >= len(l.src) {
		return
	}
	if l.src[l.offset] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.offset += size
}

func (l *Lexer) position() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.offset}
}

// wellFormedIdent reports whether word matches letters followed by optional
// digits, the only identifier shape the language allows.
func wellFormedIdent(word string) bool {
	seenDigit := false
	for _, r := range word {
		switch {
		case isLetter(r):
			if seenDigit {
				return false
			}
		case isDigit(r):
			seenDigit = true
		default:
			return false
		}
	}
	return len(word) > 0 && isLetter(rune(word[0]))
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isAlnum(r rune) bool  { return isLetter(r) || isDigit(r) }
