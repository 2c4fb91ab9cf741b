package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/config"
	"github.com/mbeltran/armlex/internal/examples"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/report"
)

var (
	analyzeFormat string
	analyzeOut    string
	analyzeWatch  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Run a program through the pipeline and print the report",
	Long: `Analyze runs a program through the lexical, syntactic and semantic
phases and prints the phase-by-phase report. Without a file argument the
program is read from stdin.

The exit code is 0 when the program is clean and 1 when it carries
diagnostics, so analyze works as a pre-commit or CI gate:

  armlex analyze pick.robot
  armlex analyze -o json pick.robot | jq .diagnostics
  armlex analyze --watch pick.robot`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeFormat, "output", "o", "text",
		"Report format: text, json, markdown, html")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "",
		"Write the report to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeWatch, "watch", false,
		"Re-analyze whenever the file changes (requires a file argument)")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	HandleError(err, "load configuration")
	setupLogging(cfg)

	format, err := report.ParseFormat(analyzeFormat)
	HandleError(err, "parse report format")

	an, err := analyzer.New(cfg.Profile())
	HandleError(err, "build analyzer")

	journal := softJournal(cfg)

	if analyzeWatch {
		if len(args) == 0 {
			HandleError(fmt.Errorf("--watch needs a file argument"), "analyze")
		}
		err := watchAnalyze(an, journal, args[0], format)
		_ = journal.Close()
		HandleError(err, "watch")
		return
	}

	name, source, err := readSource(args)
	HandleError(err, "read program")

	res := an.Analyze(source)
	journalAnalysis(journal, name, res)
	err = emitReport(name, source, res, format)
	_ = journal.Close()
	HandleError(err, "render report")

	if !res.OK() {
		os.Exit(1)
	}
}

// softJournal opens the configured journal, degrading to the no-op
// recorder when the backend is unavailable. A locked database must not
// block analysis.
func softJournal(cfg *config.Config) history.Recorder {
	rec, err := openJournal(cfg)
	if err != nil {
		log := logging.WithComponent("cli")
		log.Warn().Err(err).
			Msg("journal unavailable, analyses will not be recorded")
		return history.Nop{}
	}
	return rec
}

// emitReport renders the report to --out or stdout
func emitReport(name, source string, res *analyzer.Result, format report.Format) error {
	rep := report.Build(name, source, res)
	data, err := rep.Render(format)
	if err != nil {
		return err
	}
	if analyzeOut != "" {
		return renameio.WriteFile(analyzeOut, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// watchAnalyze re-renders the report on every save until interrupted. The
// report goes to stdout (or --out) and status lines to stderr, so piping a
// format stays clean.
func watchAnalyze(an *analyzer.Analyzer, journal history.Recorder, path string, format report.Format) error {
	if !examples.SupportedFile(path) {
		return fmt.Errorf("%s: unsupported extension", path)
	}
	name := filepath.Base(path)

	render := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
			return
		}
		res := an.Analyze(string(data))
		journalAnalysis(journal, name, res)
		if err := emitReport(name, string(data), res, format); err != nil {
			fmt.Fprintf(os.Stderr, "render: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "analyzed %s at %s, %d diagnostic(s)\n",
			name, time.Now().Format("15:04:05"), len(res.Diagnostics))
	}
	render()

	watcher, err := config.NewFileWatcher(path, config.DefaultDebounce, render)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return nil
}
