package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeltran/armlex/internal/lang/diag"
)

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(DefaultProfile(), opts...)
	require.NoError(t, err)
	return a
}

func TestAnalyzeCleanProgram(t *testing.T) {
	src := `# pick cycle
Robot R1
R1.speed = 5
R1.base = 90
R1.shoulder = 45
R1.gripper = 40`

	res := newAnalyzer(t).Analyze(src)

	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	assert.NotEmpty(t, res.Quads)
	assert.Equal(t, 6, res.Stats.Lines)
	assert.Equal(t, 1, res.Stats.Robots)

	// declaration row plus one row per command
	require.Len(t, res.Symbols, 5)
	assert.Equal(t, Symbol{ID: "R1", Method: "robot"}, res.Symbols[0])
	assert.Equal(t, Symbol{ID: "R1", Method: "gripper", Param: 1, Value: 40}, res.Symbols[4])
}

func TestAnalyzeSpanishProgram(t *testing.T) {
	src := `Robot BRAZO
BRAZO.velocidad = 5
BRAZO.hombro = 45
BRAZO.repetir = 2 {
    BRAZO.garra = 30
    BRAZO.garra = 0
}`
	res := newAnalyzer(t).Analyze(src)

	require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
	_, ok := find(res.Symbols, "BRAZO", "shoulder")
	assert.True(t, ok, "aliased commands land under their canonical name")
}

func TestAnalyzeNegativeMoves(t *testing.T) {
	src := `Robot R1
R1.base = -90
R1.shoulder = -45
R1.elbow = -120`

	res := newAnalyzer(t).Analyze(src)
	require.True(t, res.OK(), "arm axes are bidirectional: %v", res.Diagnostics)

	sym, ok := find(res.Symbols, "R1", "base")
	require.True(t, ok)
	assert.Equal(t, -90, sym.Value)
}

func TestAnalyzeSemanticErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "duplicate declaration",
			src:     "Robot R1\nRobot R1",
			wantMsg: `robot "R1" is already declared`,
		},
		{
			name:    "undeclared robot",
			src:     "R1.base = 90",
			wantMsg: `robot "R1" has not been declared`,
		},
		{
			name:    "unknown command",
			src:     "Robot R1\nR1.wave = 3",
			wantMsg: `unknown command "wave"`,
		},
		{
			name:    "value above range",
			src:     "Robot R1\nR1.base = 361",
			wantMsg: "out of range -360..360",
		},
		{
			name:    "negative value where range starts at zero",
			src:     "Robot R1\nR1.gripper = -5",
			wantMsg: "out of range 0..85",
		},
		{
			name:    "speed out of range",
			src:     "Robot R1\nR1.speed = 70",
			wantMsg: "out of range 1..60",
		},
		{
			name:    "repeat count out of range",
			src:     "Robot R1\nR1.repeat = 0 {\nR1.base = 1\n}",
			wantMsg: "repeat count 0 is out of range",
		},
		{
			name:    "empty repeat block",
			src:     "Robot R1\nR1.repeat = 3 {\n}",
			wantMsg: "repeat block is empty",
		},
		{
			name:    "foreign robot inside block",
			src:     "Robot R1\nRobot R2\nR1.repeat = 2 {\nR2.base = 10\n}",
			wantMsg: `must target "R1"`,
		},
		{
			name:    "undeclared robot owning a block",
			src:     "R9.repeat = 2 {\nR9.base = 10\n}",
			wantMsg: `robot "R9" has not been declared`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := newAnalyzer(t).Analyze(tc.src)
			require.False(t, res.OK())
			assert.Nil(t, res.Quads, "quads are only generated for passing programs")

			var semantic []string
			for _, d := range res.Diagnostics.ByPhase(diag.PhaseSemantic) {
				semantic = append(semantic, d.Message)
			}
			require.NotEmpty(t, semantic)
			found := false
			for _, msg := range semantic {
				if strings.Contains(msg, tc.wantMsg) {
					found = true
					break
				}
			}
			assert.True(t, found, "semantic diagnostics %v should mention %q", semantic, tc.wantMsg)
		})
	}
}

func TestAnalyzeLastWriteWinsOrdering(t *testing.T) {
	src := "Robot R1\nR1.base = 10\nR1.elbow = 20\nR1.base = 30"
	res := newAnalyzer(t).Analyze(src)

	require.True(t, res.OK())
	require.Len(t, res.Symbols, 3)
	// the re-assigned base row moves to the end with the newest value
	assert.Equal(t, "elbow", res.Symbols[1].Method)
	assert.Equal(t, Symbol{ID: "R1", Method: "base", Param: 1, Value: 30}, res.Symbols[2])
}

func TestAnalyzeAllPhasesReported(t *testing.T) {
	src := "Robot R1\nR1.base = 90;\nR1.base 10\nR1.codo2 = 5"
	res := newAnalyzer(t).Analyze(src)

	require.False(t, res.OK())
	assert.NotEmpty(t, res.Diagnostics.ByPhase(diag.PhaseLexical), "the stray ';' is a lexical finding")
	assert.NotEmpty(t, res.Diagnostics.ByPhase(diag.PhaseSyntax), "the missing '=' is a syntax finding")
	assert.NotEmpty(t, res.Diagnostics.ByPhase(diag.PhaseSemantic), "the unknown command is a semantic finding")
}

func TestAnalyzeDiagnosticsSortedBySource(t *testing.T) {
	src := "R2.base = 5\nRobot R1\nR1.base = 999"
	res := newAnalyzer(t).Analyze(src)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, 1, res.Diagnostics[0].Pos.Line)
	assert.Equal(t, 3, res.Diagnostics[1].Pos.Line)
}

func TestAnalyzeCachesByContent(t *testing.T) {
	a := newAnalyzer(t)
	first := a.Analyze("Robot R1")
	second := a.Analyze("Robot R1")
	assert.Same(t, first, second, "identical source returns the memoized result")

	third := a.Analyze("Robot R2")
	assert.NotSame(t, first, third)
}

func TestAnalyzeCacheDisabled(t *testing.T) {
	a := newAnalyzer(t, WithCacheSize(0))
	first := a.Analyze("Robot R1")
	second := a.Analyze("Robot R1")
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Quads, second.Quads)
}

func TestNewRejectsBrokenProfile(t *testing.T) {
	_, err := New(Profile{})
	require.Error(t, err)

	_, err = New(Profile{Commands: []CommandSpec{{Name: "base", Min: 10, Max: 0}}})
	require.Error(t, err)

	_, err = New(Profile{Commands: []CommandSpec{
		{Name: "base", Min: 0, Max: 10},
		{Name: "turn", Min: 0, Max: 10, Aliases: []string{"base"}},
	}})
	require.Error(t, err, "alias clashing with a command name")
}

func TestQuadCountGrowsWithProgram(t *testing.T) {
	a := newAnalyzer(t)
	short := a.Analyze("Robot R1\nR1.base = 10")
	long := a.Analyze("Robot R1\nR1.base = 10\nR1.speed = 5\nR1.elbow = 20")
	assert.Greater(t, len(long.Quads), len(short.Quads))
}

func find(symbols []Symbol, id, method string) (Symbol, bool) {
	for _, s := range symbols {
		if s.ID == id && s.Method == method {
			return s, true
		}
	}
	return Symbol{}, false
}
