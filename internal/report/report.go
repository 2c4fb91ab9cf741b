// Package report turns analysis results into the phase-by-phase documents
// shown in the terminal, the workbench, and over the API.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/lang/diag"
	"github.com/mbeltran/armlex/internal/quad"
)

// Format selects a rendering
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat maps a flag value onto a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, Format("md"):
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (text, json, markdown, html)", s)
	}
}

// Per-line phase verdicts
const (
	VerdictOK      = "ok"
	VerdictError   = "error"
	VerdictSkipped = "-"
)

// Line is one source line's outcome across the phases. A phase shows
// VerdictSkipped when an earlier phase already failed the line.
type Line struct {
	Number   int      `json:"number"`
	Text     string   `json:"text"`
	Lexical  string   `json:"lexical"`
	Syntax   string   `json:"syntax"`
	Semantic string   `json:"semantic"`
	Messages []string `json:"messages,omitempty"`
}

// Report is the assembled analysis document
type Report struct {
	Source      string            `json:"source,omitempty"`
	Hash        string            `json:"hash"`
	GeneratedAt time.Time         `json:"generated_at"`
	OK          bool              `json:"ok"`
	Stats       analyzer.Stats    `json:"stats"`
	Lines       []Line            `json:"lines"`
	Diagnostics diag.List         `json:"diagnostics,omitempty"`
	Symbols     []analyzer.Symbol `json:"symbols,omitempty"`
	Quads       []quad.Quadruple  `json:"quads,omitempty"`
}

// Build assembles the report for one analysis. name labels the source in
// headers; it may be empty for editor buffers.
func Build(name, source string, res *analyzer.Result) *Report {
	r := &Report{
		Source:      name,
		Hash:        res.SourceHash,
		GeneratedAt: time.Now(),
		OK:          res.OK(),
		Stats:       res.Stats,
		Diagnostics: res.Diagnostics,
		Symbols:     res.Symbols,
		Quads:       res.Quads,
	}

	byLine := map[int]diag.List{}
	for _, d := range res.Diagnostics {
		byLine[d.Pos.Line] = append(byLine[d.Pos.Line], d)
	}

	for i, text := range strings.Split(source, "\n") {
		text = strings.TrimRight(text, "\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		r.Lines = append(r.Lines, buildLine(i+1, text, byLine[i+1]))
	}
	return r
}

func buildLine(number int, text string, diags diag.List) Line {
	line := Line{
		Number:   number,
		Text:     text,
		Lexical:  VerdictOK,
		Syntax:   VerdictOK,
		Semantic: VerdictOK,
	}
	for _, d := range diags {
		line.Messages = append(line.Messages, d.String())
		switch d.Phase {
		case diag.PhaseLexical:
			line.Lexical = VerdictError
		case diag.PhaseSyntax:
			line.Syntax = VerdictError
		case diag.PhaseSemantic:
			line.Semantic = VerdictError
		}
	}
	// A line that fell at one phase never reached the later ones.
	if line.Lexical == VerdictError {
		line.Syntax, line.Semantic = VerdictSkipped, VerdictSkipped
	} else if line.Syntax == VerdictError {
		line.Semantic = VerdictSkipped
	}
	return line
}

// JSON renders the stable wire form
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Render dispatches on format
func (r *Report) Render(f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(r.Terminal()), nil
	case FormatJSON:
		return r.JSON()
	case FormatMarkdown:
		return []byte(r.Markdown()), nil
	case FormatHTML:
		return r.HTML()
	default:
		return nil, fmt.Errorf("unknown report format %q", f)
	}
}

// status is the one-word headline
func (r *Report) status() string {
	if r.OK {
		return "PASS"
	}
	return "FAIL"
}

// title labels the report header
func (r *Report) title() string {
	if r.Source == "" {
		return "program"
	}
	return r.Source
}

// statsLine is the compact stat summary under the header
func (r *Report) statsLine() string {
	return fmt.Sprintf("hash %s · %d lines · %d tokens · %d robots · %s",
		r.Hash, r.Stats.Lines, r.Stats.Tokens, r.Stats.Robots,
		r.Stats.Duration.Round(time.Microsecond))
}
