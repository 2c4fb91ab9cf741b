package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/google/renameio/v2"

	"github.com/mbeltran/armlex/internal/examples"
	"github.com/mbeltran/armlex/internal/exec"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.running && !m.connecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case editDebounceMsg:
		if msg.seq != m.editSeq {
			return m, nil
		}
		m.analyzeNow()
		return m, nil

	case runEventMsg:
		return m.handleRunEvent(msg.event)

	case runStreamClosedMsg:
		m.running = false
		m.run = nil
		if m.cancelRun != nil {
			m.cancelRun()
			m.cancelRun = nil
		}
		return m, nil

	case robotToggledMsg:
		m.connecting = false
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("robot: %v", msg.err), true)
			return m, nil
		}
		if msg.connected {
			m.setFlash("connected to "+m.ctrl.DriverName(), false)
		} else {
			m.setFlash("disconnected", false)
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("save failed: %v", msg.err), true)
			return m, nil
		}
		m.dirty = false
		m.setFlash("saved "+msg.path, false)
		return m, nil

	case journaledMsg:
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("journal: %v", msg.err), true)
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker {
		return m.handlePickerKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "q":
		// q only quits from the report pane; in the editor it is text.
		if m.focus != focusEditor {
			return m.quit()
		}
	case "tab":
		return m, m.toggleFocus()
	case "ctrl+r":
		m.analyzeNow()
		return m, m.journalAnalysis()
	case "ctrl+x":
		return m.startRun()
	case "ctrl+t":
		return m.toggleRobot()
	case "ctrl+s":
		return m.save()
	case "ctrl+l":
		m.openPicker()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusEditor:
		before := m.editor.Value()
		m.editor, cmd = m.editor.Update(msg)
		if m.editor.Value() != before {
			m.dirty = true
			m.editSeq++
			return m, tea.Batch(cmd, m.scheduleAnalysis())
		}
	case focusReport:
		m.pane, cmd = m.pane.Update(msg)
	}
	return m, cmd
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc", "ctrl+l":
		m.picker = false
	case "up", "k":
		if m.pickerIndex > 0 {
			m.pickerIndex--
		}
	case "down", "j":
		if m.pickerIndex < len(m.pickerItems)-1 {
			m.pickerIndex++
		}
	case "enter":
		m.picker = false
		if len(m.pickerItems) == 0 {
			return m, nil
		}
		ex := m.pickerItems[m.pickerIndex]
		m.editor.SetValue(ex.Source)
		m.dirty = true
		m.editSeq++
		m.analyzeNow()
		m.setFlash("loaded example "+ex.Name, false)
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.cancelRun != nil {
		m.cancelRun()
	}
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusEditor {
		m.focus = focusReport
		m.editor.Blur()
		return nil
	}
	m.focus = focusEditor
	return m.editor.Focus()
}

// startRun analyzes the buffer and hands the quadruples to the executor. The
// buffer is re-analyzed first so the run always matches what is on screen.
func (m *Model) startRun() (tea.Model, tea.Cmd) {
	if m.running {
		m.setFlash("a run is already active", true)
		return m, nil
	}
	m.analyzeNow()
	if !m.res.OK() {
		m.setFlash(fmt.Sprintf("fix %d diagnostic(s) before running", len(m.res.Diagnostics)), true)
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	run, err := m.executor.Execute(ctx, m.res.Quads)
	if err != nil {
		cancel()
		switch {
		case errors.Is(err, exec.ErrNotConnected):
			m.setFlash("robot offline, ctrl+t to connect", true)
		case errors.Is(err, exec.ErrEmptyProgram):
			m.setFlash("nothing to run", true)
		default:
			m.setFlash(fmt.Sprintf("run: %v", err), true)
		}
		return m, nil
	}

	m.cancelRun = cancel
	m.run = run
	m.running = true
	m.runLog = m.runLog[:0]
	m.showing = showRun
	m.setFlash("", false)
	m.refreshPane()
	return m, tea.Batch(m.waitForRunEvent(), m.spin.Tick)
}

func (m *Model) handleRunEvent(ev exec.Event) (tea.Model, tea.Cmd) {
	m.appendRunLine(formatEvent(ev))

	switch ev.Kind {
	case exec.EventRunCompleted:
		m.running = false
		m.lastRun = fmt.Sprintf("%s ok, %d moves", shortID(ev.RunID), ev.Moves)
		return m, tea.Batch(m.waitForRunEvent(), m.journalRun(ev, "ok"))
	case exec.EventRunFailed:
		m.running = false
		outcome := "error"
		if errors.Is(ev.Err, context.Canceled) || errors.Is(ev.Err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		m.lastRun = shortID(ev.RunID) + " " + outcome
		return m, tea.Batch(m.waitForRunEvent(), m.journalRun(ev, outcome))
	}
	return m, m.waitForRunEvent()
}

func (m *Model) toggleRobot() (tea.Model, tea.Cmd) {
	if m.running {
		m.setFlash("cannot toggle the robot mid-run", true)
		return m, nil
	}
	if m.connecting {
		return m, nil
	}

	ctrl := m.ctrl
	if ctrl.Connected() {
		return m, func() tea.Msg {
			return robotToggledMsg{connected: false, err: ctrl.Disconnect()}
		}
	}

	m.connecting = true
	ctx := m.ctx
	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		return robotToggledMsg{connected: true, err: ctrl.Connect(ctx)}
	})
}

func (m *Model) save() (tea.Model, tea.Cmd) {
	if m.path == "" {
		m.setFlash("buffer has no file, start with: armlex tui <file>", true)
		return m, nil
	}
	path := m.path
	src := m.editor.Value()
	return m, func() tea.Msg {
		return savedMsg{path: path, err: renameio.WriteFile(path, []byte(src), 0o644)}
	}
}

func (m *Model) openPicker() {
	m.pickerItems = examples.List()
	m.pickerIndex = 0
	m.picker = true
}

func (m *Model) resize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	paneHeight := max(msg.Height-chromeHeight, 3)
	leftWidth := msg.Width / 2
	rightWidth := msg.Width - leftWidth
	innerHeight := max(paneHeight-2, 1)

	m.editor.SetWidth(max(leftWidth-2, 1))
	m.editor.SetHeight(innerHeight)

	if !m.ready {
		m.pane = viewport.New(max(rightWidth-2, 1), innerHeight)
		m.ready = true
	} else {
		m.pane.Width = max(rightWidth-2, 1)
		m.pane.Height = innerHeight
	}

	// Word wrap tracks the pane width, so the renderer is rebuilt per resize.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(rightWidth-4, 20)),
	)
	if err == nil {
		m.renderer = renderer
	}

	if m.res == nil {
		m.analyzeNow()
		return
	}
	m.refreshPane()
}
