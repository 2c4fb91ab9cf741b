package tui

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/examples"
	"github.com/mbeltran/armlex/internal/exec"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/report"
	"github.com/mbeltran/armlex/internal/robot"
)

// analyzeDebounce is how long typing must pause before the buffer is
// re-analyzed.
const analyzeDebounce = 400 * time.Millisecond

// chromeHeight is the number of rows outside the panes: header, status bar
// and help line.
const chromeHeight = 3

type focusArea int

const (
	focusEditor focusArea = iota
	focusReport
)

// paneContent selects what the right pane shows: the analysis report or the
// live log of the current run.
type paneContent int

const (
	showReport paneContent = iota
	showRun
)

// Model is the state of the workbench: an editor buffer on the left, the
// analysis report or run log on the right, and a status bar that tracks the
// robot connection.
type Model struct {
	ctx context.Context

	width  int
	height int
	ready  bool

	editor   textarea.Model
	pane     viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	focus   focusArea
	showing paneContent

	path  string
	dirty bool

	analyzer *analyzer.Analyzer
	executor *exec.Executor
	ctrl     *robot.Controller
	recorder history.Recorder

	res     *analyzer.Result
	editSeq int

	running   bool
	run       *exec.Run
	runLog    []string
	cancelRun context.CancelFunc
	lastRun   string

	connecting bool

	picker      bool
	pickerIndex int
	pickerItems []examples.Example

	flash    string
	flashErr bool

	quitting bool
}

func newModel(ctx context.Context, cfg Config) *Model {
	ed := textarea.New()
	ed.Placeholder = "Robot R1\nR1.speed = 10\nR1.base = 90"
	ed.Prompt = ""
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.SetValue(cfg.Source)
	ed.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		ctx:      ctx,
		editor:   ed,
		spin:     sp,
		focus:    focusEditor,
		path:     cfg.Path,
		analyzer: cfg.Analyzer,
		executor: cfg.Executor,
		ctrl:     cfg.Controller,
		recorder: cfg.Recorder,
	}
}

// Init requests the initial window size; the first WindowSizeMsg builds the
// pane and runs the first analysis.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), textarea.Blink)
}

// waitForRunEvent delivers the next event from the active run. Once the
// executor closes the channel it resolves to runStreamClosedMsg.
func (m *Model) waitForRunEvent() tea.Cmd {
	run := m.run
	return func() tea.Msg {
		ev, ok := <-run.Events
		if !ok {
			return runStreamClosedMsg{}
		}
		return runEventMsg{event: ev}
	}
}

// scheduleAnalysis arms the idle timer for the current edit generation.
func (m *Model) scheduleAnalysis() tea.Cmd {
	seq := m.editSeq
	return tea.Tick(analyzeDebounce, func(time.Time) tea.Msg {
		return editDebounceMsg{seq: seq}
	})
}

// analyzeNow runs the pipeline on the buffer and shows the report.
func (m *Model) analyzeNow() {
	m.res = m.analyzer.Analyze(m.editor.Value())
	m.showing = showReport
	m.refreshPane()
	m.pane.GotoTop()
}

// refreshPane re-renders the right pane from the current state. Called after
// every analysis and on every resize.
func (m *Model) refreshPane() {
	if !m.ready {
		return
	}
	switch m.showing {
	case showRun:
		m.pane.SetContent(strings.Join(m.runLog, "\n"))
		m.pane.GotoBottom()
	default:
		if m.res == nil {
			return
		}
		rep := report.Build(m.bufferName(), m.editor.Value(), m.res)
		m.pane.SetContent(m.renderMarkdown(rep.Markdown()))
	}
}

func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

func (m *Model) appendRunLine(line string) {
	m.runLog = append(m.runLog, line)
	if m.showing == showRun {
		m.pane.SetContent(strings.Join(m.runLog, "\n"))
		m.pane.GotoBottom()
	}
}

func (m *Model) bufferName() string {
	if m.path == "" {
		return "scratch"
	}
	return filepath.Base(m.path)
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// journalAnalysis records the last analysis outcome off the update loop.
func (m *Model) journalAnalysis() tea.Cmd {
	if m.res == nil || m.recorder == nil {
		return nil
	}
	entry := history.Analysis{
		Hash:        m.res.SourceHash,
		Source:      m.bufferName(),
		OK:          m.res.OK(),
		Diagnostics: len(m.res.Diagnostics),
		Robots:      m.res.Stats.Robots,
		Symbols:     len(m.res.Symbols),
		Quads:       len(m.res.Quads),
		Duration:    m.res.Stats.Duration,
	}
	rec := m.recorder
	return func() tea.Msg {
		return journaledMsg{err: rec.RecordAnalysis(context.Background(), entry)}
	}
}

// journalRun records a finished run off the update loop.
func (m *Model) journalRun(ev exec.Event, outcome string) tea.Cmd {
	if m.recorder == nil {
		return nil
	}
	entry := history.Run{
		ID:       ev.RunID,
		Outcome:  outcome,
		Driver:   m.ctrl.DriverName(),
		Moves:    ev.Moves,
		Duration: ev.Duration,
		Error:    ev.Error,
	}
	rec := m.recorder
	return func() tea.Msg {
		return journaledMsg{err: rec.RecordRun(context.Background(), entry)}
	}
}
