package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mbeltran/armlex/internal/quad"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D4FF") // Cyan
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	passStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSuccess)

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	okVerdictStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errVerdictStyle = lipgloss.NewStyle().
			Foreground(colorError)
)

// Terminal renders the styled report for a terminal
func (r *Report) Terminal() string {
	var b strings.Builder

	status := passStyle.Render(r.status())
	if !r.OK {
		status = failStyle.Render(r.status())
	}
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(r.title()), status)
	b.WriteString(mutedStyle.Render(r.statsLine()) + "\n\n")

	b.WriteString(sectionStyle.Render("PHASES") + "\n")
	fmt.Fprintf(&b, "  %4s  %-8s  %-8s  %-8s  %s\n", "LINE", "LEXICAL", "SYNTAX", "SEMANTIC", "SOURCE")
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "  %4d  %s  %s  %s  %s\n",
			line.Number,
			styleVerdict(line.Lexical),
			styleVerdict(line.Syntax),
			styleVerdict(line.Semantic),
			strings.TrimSpace(line.Text),
		)
	}

	if len(r.Diagnostics) > 0 {
		b.WriteString("\n" + sectionStyle.Render("DIAGNOSTICS") + "\n")
		for _, d := range r.Diagnostics {
			fmt.Fprintf(&b, "  %s %s\n", errVerdictStyle.Render("•"), d.String())
		}
	}

	if r.OK && len(r.Symbols) > 0 {
		b.WriteString("\n" + sectionStyle.Render("SYMBOLS") + "\n")
		idWidth := len("ID")
		for _, s := range r.Symbols {
			if len(s.ID) > idWidth {
				idWidth = len(s.ID)
			}
		}
		fmt.Fprintf(&b, "  %-*s  %-8s  %6s  %6s\n", idWidth, "ID", "METHOD", "PARAM", "VALUE")
		for _, s := range r.Symbols {
			fmt.Fprintf(&b, "  %-*s  %-8s  %6d  %6d\n", idWidth, s.ID, s.Method, s.Param, s.Value)
		}
	}

	if r.OK && len(r.Quads) > 0 {
		b.WriteString("\n" + sectionStyle.Render("QUADRUPLES") + "\n")
		widths := quadWidths(r.Quads)
		fmt.Fprintf(&b, "  %3s  %-*s  %-*s  %-*s  %s\n",
			"#", widths[0], "OP", widths[1], "ARG1", widths[2], "ARG2", "RESULT")
		for i, q := range r.Quads {
			fmt.Fprintf(&b, "  %3d  %-*s  %-*s  %-*s  %s\n",
				i+1,
				widths[0], string(q.Op),
				widths[1], quad.Operand(q.Arg1),
				widths[2], quad.Operand(q.Arg2),
				quad.Operand(q.Result),
			)
		}
	}

	return b.String()
}

func styleVerdict(v string) string {
	padded := fmt.Sprintf("%-8s", v)
	switch v {
	case VerdictOK:
		return okVerdictStyle.Render(padded)
	case VerdictError:
		return errVerdictStyle.Render(padded)
	default:
		return mutedStyle.Render(padded)
	}
}

func quadWidths(quads []quad.Quadruple) [3]int {
	widths := [3]int{len("OP"), len("ARG1"), len("ARG2")}
	for _, q := range quads {
		if n := len(string(q.Op)); n > widths[0] {
			widths[0] = n
		}
		if n := len(quad.Operand(q.Arg1)); n > widths[1] {
			widths[1] = n
		}
		if n := len(quad.Operand(q.Arg2)); n > widths[2] {
			widths[2] = n
		}
	}
	return widths
}

// Markdown renders the report for glamour and for `analyze -o markdown`
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s — %s\n\n", r.title(), r.status())
	b.WriteString(r.statsLine() + "\n\n")

	b.WriteString("## Phases\n\n")
	b.WriteString("| Line | Lexical | Syntax | Semantic | Source |\n")
	b.WriteString("|-----:|---------|--------|----------|--------|\n")
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | `%s` |\n",
			line.Number, line.Lexical, line.Syntax, line.Semantic,
			strings.TrimSpace(line.Text))
	}

	if len(r.Diagnostics) > 0 {
		b.WriteString("\n## Diagnostics\n\n")
		for _, d := range r.Diagnostics {
			fmt.Fprintf(&b, "- %s\n", d.String())
		}
	}

	if r.OK && len(r.Symbols) > 0 {
		b.WriteString("\n## Symbols\n\n")
		b.WriteString("| ID | Method | Param | Value |\n")
		b.WriteString("|----|--------|------:|------:|\n")
		for _, s := range r.Symbols {
			fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", s.ID, s.Method, s.Param, s.Value)
		}
	}

	if r.OK && len(r.Quads) > 0 {
		b.WriteString("\n## Quadruples\n\n")
		b.WriteString("| # | Op | Arg1 | Arg2 | Result |\n")
		b.WriteString("|--:|----|------|------|--------|\n")
		for i, q := range r.Quads {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				strconv.Itoa(i+1), string(q.Op),
				quad.Operand(q.Arg1), quad.Operand(q.Arg2), quad.Operand(q.Result))
		}
	}

	return b.String()
}
