package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/config"
	"github.com/mbeltran/armlex/internal/examples"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/robodk"
	"github.com/mbeltran/armlex/internal/robot"
)

const Version = "0.1.0"

var (
	configPath   string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "armlex",
	Short: "Armlex - lexical analysis and execution for robot command programs",
	Long: `Armlex analyzes robot command programs through the lexical, syntactic
and semantic phases, reports the result line by line, and executes clean
programs on an ABB IRB 120 cell through RoboDK or an in-process simulator.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the station file (default: the per-user config, built-in defaults when absent)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: trace, debug, info, warn, error (overrides the station file and LOG_LEVEL)")
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// loadConfig resolves the station file. An explicit --config must exist;
// the per-user default path may be absent.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadOrDefault(config.DefaultPath())
}

// setupLogging installs the process logger. The flag outranks the station
// file; a terminal on stderr gets the console writer.
func setupLogging(cfg *config.Config) {
	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logging.Configure(logging.Config{
		Level:   level,
		Console: term.IsTerminal(int(os.Stderr.Fd())),
		Service: "armlex",
		Version: Version,
	})
}

// readSource loads the program from the file argument, or from stdin when
// no file is given. The returned name labels the program in reports and
// the journal.
func readSource(args []string) (name, source string, err error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "stdin", string(data), nil
	}

	path := args[0]
	if !examples.SupportedFile(path) {
		return "", "", fmt.Errorf("%s: unsupported extension (want %s)",
			path, strings.Join(examples.Extensions, ", "))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return filepath.Base(path), string(data), nil
}

// openJournal opens the run journal named in the station file
func openJournal(cfg *config.Config) (history.Recorder, error) {
	switch cfg.History.Backend {
	case config.HistoryMemory:
		return history.NewMemory(), nil
	default:
		return history.Open(cfg.History.Path)
	}
}

// journalAnalysis records one analysis outcome. Journal failures must not
// fail the analysis itself, so they only warn.
func journalAnalysis(rec history.Recorder, name string, res *analyzer.Result) {
	err := rec.RecordAnalysis(context.Background(), history.Analysis{
		Hash:        res.SourceHash,
		Source:      name,
		OK:          res.OK(),
		Diagnostics: len(res.Diagnostics),
		Robots:      res.Stats.Robots,
		Symbols:     len(res.Symbols),
		Quads:       len(res.Quads),
		Duration:    res.Stats.Duration,
	})
	if err != nil {
		log := logging.WithComponent("cli")
		log.Warn().Err(err).
			Str(logging.FieldFile, name).Msg("recording analysis failed")
	}
}

// buildController assembles the motion stack: the RoboDK bridge with the
// simulator as fallback, or the simulator alone when sim is set.
func buildController(cfg *config.Config, sim bool) (*robot.Controller, error) {
	rcfg := robot.Config{
		Limits:       cfg.SoftLimits(),
		DefaultDelay: cfg.Executor.DefaultDelayS,
	}
	if sim {
		rcfg.Driver = robot.NewSimDriver(1)
	} else {
		rcfg.Driver = robodk.NewDriver(robodk.New(cfg.RoboDKClient()))
		if cfg.RoboDK.FallbackToSim {
			rcfg.Fallback = robot.NewSimDriver(1)
		}
	}
	return robot.NewController(rcfg)
}
