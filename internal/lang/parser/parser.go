// Package parser builds the syntax tree for robot command language programs.
//
// The parser accumulates diagnostics instead of stopping at the first
// problem: after a malformed statement it resynchronizes at the next
// plausible statement start so one typo does not mask the rest of the
// program. Command words are alias-resolved through the table handed in with
// WithAliases; the block form is keyed on the canonical word "repeat".
package parser

import (
	"strconv"
	"strings"

	"github.com/mbeltran/armlex/internal/lang/ast"
	"github.com/mbeltran/armlex/internal/lang/diag"
	"github.com/mbeltran/armlex/internal/lang/token"
)

// CmdRepeat is the canonical command word that introduces a block
const CmdRepeat = "repeat"

// KeywordRobot is the case-insensitive declaration keyword
const KeywordRobot = "robot"

// Option configures a parse run
type Option func(*Parser)

// WithAliases installs a lower-cased alias→canonical command word table.
// Aliases only rename commands; an alias mapping to "repeat" makes the
// aliased word introduce a block.
func WithAliases(aliases map[string]string) Option {
	return func(p *Parser) {
		for from, to := range aliases {
			p.aliases[strings.ToLower(from)] = strings.ToLower(to)
		}
	}
}

// Parser consumes a token stream. Use Parse; the type is exported for tests
// that drive parsing incrementally.
type Parser struct {
	toks    []token.Token
	pos     int
	aliases map[string]string
	diags   diag.List

	// stmtLine is the source line the current statement started on; error
	// recovery drops the remainder of that line
	stmtLine int
}

// Parse builds a program from a token stream as produced by lexer.Scan. The
// returned program contains every statement that parsed cleanly; findings for
// the rest are in the diagnostic list.
func Parse(toks []token.Token, opts ...Option) (*ast.Program, diag.List) {
	p := &Parser{toks: toks, aliases: map[string]string{}}
	for _, opt := range opts {
		opt(p)
	}
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	return prog, p.diags
}

func (p *Parser) parseStatement() ast.Stmt {
	p.stmtLine = p.cur().Pos.Line
	switch {
	case p.at(token.ILLEGAL):
		// already reported as a lexical finding; skip quietly
		p.next()
		return nil
	case p.at(token.IDENT):
		if strings.EqualFold(p.cur().Lexeme, KeywordRobot) && !p.peekIs(token.DOT) {
			return p.parseDecl()
		}
		return p.parseAssignOrRepeat()
	default:
		p.errorf(p.cur().Pos, "expected a statement, found %s", p.cur())
		p.syncStatement()
		return nil
	}
}

// parseDecl handles `Robot <ID>`. A robot literally named ROBOT is still
// addressable: `ROBOT.base = 90` is routed to the assignment form because the
// keyword is followed by '.'.
func (p *Parser) parseDecl() ast.Stmt {
	kw := p.next()
	if !p.at(token.IDENT) {
		p.errorf(kw.Pos, "expected a robot name after %q", kw.Lexeme)
		p.syncStatement()
		return nil
	}
	name := p.next()
	return &ast.DeclStmt{
		Name:    strings.ToUpper(name.Lexeme),
		NamePos: name.Pos,
		DeclPos: kw.Pos,
	}
}

// parseAssignOrRepeat handles `ID.cmd = N` and, when cmd resolves to
// "repeat", the block form `ID.repeat = N { ... }`.
func (p *Parser) parseAssignOrRepeat() ast.Stmt {
	robot := p.next()

	if !p.expect(token.DOT, "expected '.' after %q", robot.Lexeme) {
		return nil
	}
	if !p.at(token.IDENT) {
		p.errorf(p.cur().Pos, "expected a command word after '.', found %s", p.cur())
		p.syncStatement()
		return nil
	}
	cmd := p.next()
	command := p.canonicalCommand(cmd.Lexeme)

	if !p.expect(token.ASSIGN, "expected '=' after %q", cmd.Lexeme) {
		return nil
	}
	value, ok := p.parseValue(cmd.Lexeme)
	if !ok {
		return nil
	}

	if command == CmdRepeat {
		return p.parseRepeatBlock(robot, cmd, value)
	}

	if p.at(token.LBRACE) {
		p.errorf(p.cur().Pos, "unexpected '{': only %q takes a block", CmdRepeat)
		p.syncStatement()
		return nil
	}

	return &ast.AssignStmt{
		Robot:    strings.ToUpper(robot.Lexeme),
		Command:  command,
		Value:    value.n,
		RobotPos: robot.Pos,
		CmdPos:   cmd.Pos,
		ValuePos: value.pos,
	}
}

func (p *Parser) parseRepeatBlock(robot, cmd token.Token, count intValue) ast.Stmt {
	if !p.at(token.LBRACE) {
		p.errorf(p.cur().Pos, "expected '{' after the repeat count, found %s", p.cur())
		p.syncStatement()
		return nil
	}
	brace := p.next()

	stmt := &ast.RepeatStmt{
		Robot:    strings.ToUpper(robot.Lexeme),
		Count:    count.n,
		RobotPos: robot.Pos,
		CountPos: count.pos,
		BracePos: brace.Pos,
	}

	for {
		switch {
		case p.at(token.RBRACE):
			p.next()
			return stmt
		case p.at(token.EOF):
			p.errorf(brace.Pos, "unterminated repeat block: missing '}'")
			return stmt
		case p.at(token.ILLEGAL):
			p.next()
		case p.at(token.IDENT):
			if strings.EqualFold(p.cur().Lexeme, KeywordRobot) && p.peekIs(token.IDENT) {
				p.errorf(p.cur().Pos, "declarations are not allowed inside a repeat block")
				p.next()
				p.next()
				continue
			}
			if body := p.parseBlockAssign(); body != nil {
				stmt.Body = append(stmt.Body, body)
			}
		default:
			p.stmtLine = p.cur().Pos.Line
			p.errorf(p.cur().Pos, "expected a command assignment inside the block, found %s", p.cur())
			p.syncBlock()
		}
	}
}

// parseBlockAssign parses one `ID.cmd = N` inside a block. Nested repeat is
// rejected here; everything else (robot identity, ranges, empty bodies) is
// the semantic pass's business.
func (p *Parser) parseBlockAssign() *ast.AssignStmt {
	p.stmtLine = p.cur().Pos.Line
	robot := p.next()
	if !p.expectInBlock(token.DOT, "expected '.' after %q", robot.Lexeme) {
		return nil
	}
	if !p.at(token.IDENT) {
		p.errorf(p.cur().Pos, "expected a command word after '.', found %s", p.cur())
		p.syncBlock()
		return nil
	}
	cmd := p.next()
	command := p.canonicalCommand(cmd.Lexeme)
	if command == CmdRepeat {
		p.errorf(cmd.Pos, "repeat blocks do not nest")
		p.syncBlock()
		return nil
	}
	if !p.expectInBlock(token.ASSIGN, "expected '=' after %q", cmd.Lexeme) {
		return nil
	}
	value, ok := p.parseValueIn(cmd.Lexeme, p.syncBlock)
	if !ok {
		return nil
	}
	return &ast.AssignStmt{
		Robot:    strings.ToUpper(robot.Lexeme),
		Command:  command,
		Value:    value.n,
		RobotPos: robot.Pos,
		CmdPos:   cmd.Pos,
		ValuePos: value.pos,
	}
}

type intValue struct {
	n   int
	pos token.Position
}

func (p *Parser) parseValue(cmdWord string) (intValue, bool) {
	return p.parseValueIn(cmdWord, p.syncStatement)
}

func (p *Parser) parseValueIn(cmdWord string, sync func()) (intValue, bool) {
	if !p.at(token.INT) {
		p.errorf(p.cur().Pos, "expected an integer value for %q, found %s", cmdWord, p.cur())
		sync()
		return intValue{}, false
	}
	tok := p.next()
	n, err := strconv.Atoi(tok.Lexeme)
	if err != nil {
		p.errorf(tok.Pos, "integer value %q is out of range", tok.Lexeme)
		return intValue{}, false
	}
	return intValue{n: n, pos: tok.Pos}, true
}

func (p *Parser) canonicalCommand(word string) string {
	w := strings.ToLower(word)
	if canonical, ok := p.aliases[w]; ok {
		return canonical
	}
	return w
}

// syncStatement drops what is left of the broken statement's source line so
// the next line parses on its own. Tokens already sitting on a later line are
// left alone; the statement dispatcher consumes at least one token per
// attempt, so parsing always makes progress.
func (p *Parser) syncStatement() {
	for !p.at(token.EOF) && p.cur().Pos.Line <= p.stmtLine {
		p.next()
	}
}

// syncBlock is syncStatement bounded by the enclosing block: it never steps
// over the closing brace.
func (p *Parser) syncBlock() {
	for !p.at(token.EOF) && !p.at(token.RBRACE) && p.cur().Pos.Line <= p.stmtLine {
		p.next()
	}
}

func (p *Parser) expect(k token.Kind, format string, args ...any) bool {
	return p.expectSync(k, p.syncStatement, format, args...)
}

func (p *Parser) expectInBlock(k token.Kind, format string, args ...any) bool {
	return p.expectSync(k, p.syncBlock, format, args...)
}

func (p *Parser) expectSync(k token.Kind, sync func(), format string, args ...any) bool {
	if p.at(k) {
		p.next()
		return true
	}
	msg := append([]any{}, args...)
	p.errorf(p.cur().Pos, format+", found %s", append(msg, p.cur())...)
	sync()
	return false
}

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	p.diags.Add(diag.PhaseSyntax, pos, format, args...)
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekIs(k token.Kind) bool {
	if p.pos+1 >= len(p.toks) {
		return k == token.EOF
	}
	return p.toks[p.pos+1].Kind == k
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) next() token.Token {
	tok := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}
