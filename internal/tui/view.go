package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mbeltran/armlex/internal/exec"
)

func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader() + "\n")
	b.WriteString(m.renderPanes() + "\n")
	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("armlex workbench")
	info := headerInfoStyle.Render(m.robotSummary())
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(info)
	if gap < 1 {
		return title
	}
	return title + strings.Repeat(" ", gap) + info
}

func (m *Model) robotSummary() string {
	if m.ctrl == nil {
		return ""
	}
	state := "offline"
	switch {
	case m.connecting:
		state = "connecting"
	case m.ctrl.Connected():
		state = "connected"
	}
	return m.ctrl.DriverName() + " · " + state
}

func (m *Model) renderPanes() string {
	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth
	innerHeight := max(m.height-chromeHeight, 3) - 2

	left := m.paneStyleFor(focusEditor).
		Width(max(leftWidth-2, 1)).
		Height(innerHeight).
		Render(m.editor.View())

	content := m.pane.View()
	if m.picker {
		content = m.renderPicker()
	}
	right := m.paneStyleFor(focusReport).
		Width(max(rightWidth-2, 1)).
		Height(innerHeight).
		Render(content)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m *Model) paneStyleFor(area focusArea) lipgloss.Style {
	if m.focus == area {
		return focusedPaneStyle
	}
	return paneStyle
}

func (m *Model) renderPicker() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("examples") + "\n\n")
	for i, ex := range m.pickerItems {
		line := fmt.Sprintf("%-10s %s", ex.Name, ex.Description)
		if i == m.pickerIndex {
			b.WriteString(pickerSelectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(pickerItemStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + helpDescStyle.Render("enter load · esc close"))
	return b.String()
}

func (m *Model) renderStatus() string {
	segments := []string{m.fileSegment(), m.analysisSegment(), m.runSegment()}
	if m.flash != "" {
		if m.flashErr {
			segments = append(segments, statusErrStyle.Render(m.flash))
		} else {
			segments = append(segments, mutedStyle.Render(m.flash))
		}
	}

	joined := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			joined = append(joined, s)
		}
	}
	return " " + strings.Join(joined, mutedStyle.Render("  ·  "))
}

func (m *Model) fileSegment() string {
	name := m.bufferName()
	if m.dirty {
		return name + " " + dirtyStyle.Render("●")
	}
	return name
}

func (m *Model) analysisSegment() string {
	if m.res == nil {
		return mutedStyle.Render("no analysis")
	}
	if m.res.OK() {
		return statusOKStyle.Render(fmt.Sprintf("✓ ok, %d robot(s)", m.res.Stats.Robots))
	}
	return statusErrStyle.Render(fmt.Sprintf("✗ %d diagnostic(s)", len(m.res.Diagnostics)))
}

func (m *Model) runSegment() string {
	switch {
	case m.running:
		return m.spin.View() + " running " + shortID(m.run.ID)
	case m.connecting:
		return m.spin.View() + statusWarnStyle.Render(" connecting")
	case m.lastRun != "":
		return "run " + m.lastRun
	}
	return ""
}

func (m *Model) renderHelp() string {
	pairs := []struct {
		key  string
		desc string
	}{
		{"tab", "focus"},
		{"ctrl+r", "analyze"},
		{"ctrl+x", "run"},
		{"ctrl+t", "robot"},
		{"ctrl+s", "save"},
		{"ctrl+l", "examples"},
		{"ctrl+c", "quit"},
	}
	items := make([]string, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, helpKeyStyle.Render(p.key)+" "+helpDescStyle.Render(p.desc))
	}
	return " " + strings.Join(items, helpDescStyle.Render(" • "))
}

// formatEvent renders one run event as a log line for the run pane.
func formatEvent(ev exec.Event) string {
	ts := ev.Time.Format("15:04:05")
	switch ev.Kind {
	case exec.EventRunStarted:
		return fmt.Sprintf("%s  run %s started, %d steps", ts, shortID(ev.RunID), ev.Total)
	case exec.EventSpeedChanged:
		return fmt.Sprintf("%s  %s pace set to %.0fs per move", ts, ev.Robot, ev.Value)
	case exec.EventMoveStarted:
		return fmt.Sprintf("%s  %s.%s -> %.1f", ts, ev.Robot, ev.Joint, ev.Value)
	case exec.EventMoveCompleted:
		return fmt.Sprintf("%s  %s.%s at %.1f, step %d/%d", ts, ev.Robot, ev.Joint, ev.Value, ev.Step, ev.Total)
	case exec.EventLoopStarted:
		return fmt.Sprintf("%s  repeat x%d", ts, ev.Count)
	case exec.EventLoopIteration:
		return fmt.Sprintf("%s  pass %d/%d", ts, ev.Iteration, ev.Count)
	case exec.EventRunCompleted:
		line := fmt.Sprintf("✓ completed, %d moves in %s", ev.Moves, ev.Duration.Round(time.Millisecond))
		return ts + "  " + statusOKStyle.Render(line)
	case exec.EventRunFailed:
		return ts + "  " + statusErrStyle.Render("✗ failed: "+ev.Error)
	}
	return fmt.Sprintf("%s  %s", ts, ev.Kind)
}

// shortID trims a run id to its first hash group for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
