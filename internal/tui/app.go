// Package tui implements the interactive workbench: a program editor next to
// a live analysis report, with execution streamed from the robot controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/exec"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/robot"
)

// ErrNotTerminal is returned by Run when stdout is not attached to a TTY.
var ErrNotTerminal = errors.New("tui: stdout is not a terminal")

// Config wires the workbench to the rest of the tool. Analyzer, Executor and
// Controller must be set; a nil Recorder disables the journal.
type Config struct {
	// Path is the file backing the editor buffer; empty for a scratch buffer.
	Path string
	// Source is the initial buffer contents.
	Source string

	Analyzer   *analyzer.Analyzer
	Executor   *exec.Executor
	Controller *robot.Controller
	Recorder   history.Recorder
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run blocks until the workbench exits. Canceling ctx tears the program down
// and is not reported as an error.
func Run(ctx context.Context, cfg Config) error {
	if !IsTerminal() {
		return ErrNotTerminal
	}
	if cfg.Recorder == nil {
		cfg.Recorder = history.Nop{}
	}

	p := tea.NewProgram(newModel(ctx, cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil:
		return nil
	default:
		return fmt.Errorf("run workbench: %w", err)
	}
}
