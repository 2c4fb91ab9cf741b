package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/exec"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/tui"
)

var tuiSim bool

var tuiCmd = &cobra.Command{
	Use:   "tui [file]",
	Short: "Open the interactive workbench",
	Long: `Tui opens the workbench: a program editor next to a live analysis
report, with execution streamed from the station. A file argument loads
that program; a path that does not exist yet opens an empty buffer and
ctrl+s creates the file.

  armlex tui
  armlex tui pick.robot
  armlex tui --sim pick.robot`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&tuiSim, "sim", false,
		"Drive the in-process simulator instead of RoboDK")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !tui.IsTerminal() {
		return tui.ErrNotTerminal
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The workbench owns the terminal in altscreen mode; stderr log lines
	// would corrupt it, so the stream is dropped and failures surface in
	// the status bar.
	logging.Configure(logging.Config{Output: io.Discard, Service: "armlex", Version: Version})

	var path, source string
	if len(args) == 1 {
		path = args[0]
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fresh path, empty buffer
		case err != nil:
			return err
		default:
			source = string(data)
		}
	}

	an, err := analyzer.New(cfg.Profile())
	if err != nil {
		return err
	}
	ctrl, err := buildController(cfg, tuiSim)
	if err != nil {
		return err
	}
	defer func() { _ = ctrl.Disconnect() }()

	journal, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = journal.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return tui.Run(ctx, tui.Config{
		Path:       path,
		Source:     source,
		Analyzer:   an,
		Executor:   exec.New(ctrl, exec.WithLoopPause(cfg.LoopPause())),
		Controller: ctrl,
		Recorder:   journal,
	})
}
