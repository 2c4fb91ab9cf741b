// Package analyzer runs the full analysis pipeline: scan, parse, semantic
// checks against the station profile, and quadruple generation. Results are
// memoized by source hash so interactive surfaces can re-analyze on every
// keystroke without redoing work.
package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/mbeltran/armlex/internal/lang/ast"
	"github.com/mbeltran/armlex/internal/lang/diag"
	"github.com/mbeltran/armlex/internal/lang/lexer"
	"github.com/mbeltran/armlex/internal/lang/parser"
	"github.com/mbeltran/armlex/internal/lang/token"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/metrics"
	"github.com/mbeltran/armlex/internal/quad"
)

// DefaultCacheSize bounds the analysis memo when no option overrides it
const DefaultCacheSize = 128

// Stats summarizes one analysis pass
type Stats struct {
	Lines    int           `json:"lines"`
	Tokens   int           `json:"tokens"`
	Robots   int           `json:"robots"`
	Duration time.Duration `json:"duration_ns"`
}

// Result is the complete outcome of analyzing one program. Results are
// shared through the cache and must be treated as read-only.
type Result struct {
	SourceHash  string           `json:"source_hash"`
	Tokens      []token.Token    `json:"tokens"`
	Program     *ast.Program     `json:"-"`
	Symbols     []Symbol         `json:"symbols,omitempty"`
	Quads       []quad.Quadruple `json:"quads,omitempty"`
	Diagnostics diag.List        `json:"diagnostics,omitempty"`
	Stats       Stats            `json:"stats"`
}

// OK reports whether the program passed every phase
func (r *Result) OK() bool { return r.Diagnostics.Empty() }

// Option configures an Analyzer
type Option func(*Analyzer)

// WithCacheSize overrides the memo size; zero or negative disables caching
func WithCacheSize(n int) Option {
	return func(a *Analyzer) { a.cacheSize = n }
}

// Analyzer checks programs against one station profile. Safe for concurrent
// use.
type Analyzer struct {
	profile   Profile
	aliases   map[string]string
	cacheSize int
	cache     *lru.Cache[string, *Result]
	log       zerolog.Logger
}

// New builds an analyzer for the given profile
func New(profile Profile, opts ...Option) (*Analyzer, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{
		profile:   profile,
		aliases:   profile.Aliases(),
		cacheSize: DefaultCacheSize,
		log:       logging.WithComponent("analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cacheSize > 0 {
		cache, err := lru.New[string, *Result](a.cacheSize)
		if err != nil {
			return nil, err
		}
		a.cache = cache
	}
	return a, nil
}

// Profile returns the profile the analyzer was built with
func (a *Analyzer) Profile() Profile { return a.profile }

// Analyze runs the pipeline over source and returns the shared result
func (a *Analyzer) Analyze(source string) *Result {
	hash := hashSource(source)
	if a.cache != nil {
		if cached, ok := a.cache.Get(hash); ok {
			metrics.IncCacheLookup(true)
			return cached
		}
		metrics.IncCacheLookup(false)
	}

	start := time.Now()
	res := a.analyze(source)
	res.SourceHash = hash
	res.Stats.Duration = time.Since(start)

	metrics.ObserveAnalysis(res.OK(), res.Stats.Duration)
	for _, phase := range []diag.Phase{diag.PhaseLexical, diag.PhaseSyntax, diag.PhaseSemantic} {
		metrics.AddDiagnostics(string(phase), len(res.Diagnostics.ByPhase(phase)))
	}
	a.log.Debug().
		Str("hash", hash).
		Int("tokens", res.Stats.Tokens).
		Int(logging.FieldCount, len(res.Diagnostics)).
		Bool("ok", res.OK()).
		Dur(logging.FieldDuration, res.Stats.Duration).
		Msg("analysis finished")

	if a.cache != nil {
		a.cache.Add(hash, res)
	}
	return res
}

func (a *Analyzer) analyze(source string) *Result {
	var diags diag.List

	toks := lexer.Scan(source)
	for _, tok := range toks {
		if tok.Kind == token.ILLEGAL {
			diags.Add(diag.PhaseLexical, tok.Pos, "invalid token %q", tok.Lexeme)
		}
	}

	prog, parseDiags := parser.Parse(toks, parser.WithAliases(a.aliases))
	diags.Merge(parseDiags)

	table := a.checkSemantics(prog, &diags)
	diags.Sort()

	res := &Result{
		Tokens:      toks,
		Program:     prog,
		Symbols:     table.Symbols(),
		Diagnostics: diags,
		Stats: Stats{
			Lines:  countLines(source),
			Tokens: len(toks) - 1, // EOF is bookkeeping, not content
			Robots: len(table.Robots()),
		},
	}
	if res.OK() {
		res.Quads = quad.Generate(prog)
	}
	return res
}

// checkSemantics walks the program applying declaration, command, and range
// rules, building the symbol table as it goes.
func (a *Analyzer) checkSemantics(prog *ast.Program, diags *diag.List) *SymbolTable {
	table := NewSymbolTable()
	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *ast.DeclStmt:
			if table.Declared(s.Name) {
				diags.Add(diag.PhaseSemantic, s.NamePos, "robot %q is already declared", s.Name)
				continue
			}
			table.Declare(s.Name)
		case *ast.AssignStmt:
			a.checkAssign(table, s, diags)
		case *ast.RepeatStmt:
			a.checkRepeat(table, s, diags)
		}
	}
	return table
}

func (a *Analyzer) checkAssign(table *SymbolTable, s *ast.AssignStmt, diags *diag.List) {
	if !table.Declared(s.Robot) {
		diags.Add(diag.PhaseSemantic, s.RobotPos, "robot %q has not been declared", s.Robot)
		return
	}
	spec, ok := a.profile.Lookup(s.Command)
	if !ok {
		diags.Add(diag.PhaseSemantic, s.CmdPos, "unknown command %q", s.Command)
		return
	}
	if !spec.Contains(s.Value) {
		diags.Add(diag.PhaseSemantic, s.ValuePos,
			"value %d for %q is out of range %d..%d", s.Value, s.Command, spec.Min, spec.Max)
		return
	}
	table.Set(s.Robot, s.Command, s.Value)
}

func (a *Analyzer) checkRepeat(table *SymbolTable, s *ast.RepeatStmt, diags *diag.List) {
	if !table.Declared(s.Robot) {
		diags.Add(diag.PhaseSemantic, s.RobotPos, "robot %q has not been declared", s.Robot)
		return
	}
	if spec, ok := a.profile.Lookup(parser.CmdRepeat); ok && !spec.Contains(s.Count) {
		diags.Add(diag.PhaseSemantic, s.CountPos,
			"repeat count %d is out of range %d..%d", s.Count, spec.Min, spec.Max)
	}
	if len(s.Body) == 0 {
		diags.Add(diag.PhaseSemantic, s.BracePos, "repeat block is empty")
	}
	table.Set(s.Robot, parser.CmdRepeat, s.Count)
	for _, body := range s.Body {
		if body.Robot != s.Robot {
			diags.Add(diag.PhaseSemantic, body.RobotPos,
				"statements inside the block must target %q, found %q", s.Robot, body.Robot)
			continue
		}
		a.checkAssign(table, body, diags)
	}
}

func hashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:8])
}

func countLines(source string) int {
	if source == "" {
		return 0
	}
	return strings.Count(source, "\n") + 1
}
