package examples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeltran/armlex/internal/analyzer"
)

func TestListCoversStationSet(t *testing.T) {
	assert.Equal(t, []string{
		"basic",
		"full-inspection",
		"negatives",
		"pick-and-place",
		"repeat-negatives",
	}, Names())

	for _, ex := range List() {
		assert.NotEmpty(t, ex.Description, "example %q needs a description", ex.Name)
		assert.NotEmpty(t, ex.Source)
	}
}

func TestEveryExampleAnalyzesClean(t *testing.T) {
	a, err := analyzer.New(analyzer.DefaultProfile())
	require.NoError(t, err)

	for _, ex := range List() {
		t.Run(ex.Name, func(t *testing.T) {
			res := a.Analyze(ex.Source)
			require.True(t, res.OK(), "diagnostics: %v", res.Diagnostics)
			assert.NotEmpty(t, res.Quads)
		})
	}
}

func TestGet(t *testing.T) {
	ex, err := Get("pick-and-place")
	require.NoError(t, err)
	assert.Contains(t, ex.Source, "PICKER")

	_, err = Get("juggling")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pick-and-place")
}

func TestSupportedFile(t *testing.T) {
	assert.True(t, SupportedFile("cycle.robot"))
	assert.True(t, SupportedFile("legacy.TXT"))
	assert.True(t, SupportedFile("station/program.abb"))
	assert.False(t, SupportedFile("notes.md"))
	assert.False(t, SupportedFile("program"))
}
