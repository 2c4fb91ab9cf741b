package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/exec"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/lifecycle"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/report"
	"github.com/mbeltran/armlex/internal/tracing"
)

var (
	runSim    bool
	runRoboDK string
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Execute a program on the station",
	Long: `Run analyzes a program and, when it is clean, executes it on the
station move by move. A program with diagnostics prints the report and
refuses to run. Without a file argument the program is read from stdin.

The station comes from the config; --robodk overrides the address for one
invocation and --sim skips RoboDK entirely:

  armlex run pick.robot
  armlex run --robodk 192.168.1.20:20500 pick.robot
  armlex run --sim pick.robot`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runSim, "sim", false,
		"Drive the in-process simulator instead of RoboDK")
	runCmd.Flags().StringVar(&runRoboDK, "robodk", "",
		"Override the station address, host:port")
}

func runRun(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	HandleError(err, "load configuration")
	if runRoboDK != "" {
		host, portStr, err := net.SplitHostPort(runRoboDK)
		HandleError(err, "parse --robodk")
		port, err := strconv.Atoi(portStr)
		HandleError(err, "parse --robodk port")
		cfg.RoboDK.Host, cfg.RoboDK.Port = host, port
		HandleError(cfg.Validate(), "validate configuration")
	}
	setupLogging(cfg)
	log := logging.WithComponent("cli")

	an, err := analyzer.New(cfg.Profile())
	HandleError(err, "build analyzer")

	name, source, err := readSource(args)
	HandleError(err, "read program")

	res := an.Analyze(source)
	journal, err := openJournal(cfg)
	HandleError(err, "open journal")
	journalAnalysis(journal, name, res)

	if !res.OK() {
		rep := report.Build(name, source, res)
		fmt.Print(rep.Terminal())
		fmt.Fprintf(os.Stderr, "%s: %d diagnostic(s), not running\n", name, len(res.Diagnostics))
		_ = journal.Close()
		os.Exit(1)
	}

	ctrl, err := buildController(cfg, runSim)
	HandleError(err, "build controller")

	manager := lifecycle.NewManager()

	journalComponent := &lifecycle.Funcs{
		Component: "journal",
		OnStop:    func(context.Context) error { return journal.Close() },
	}
	HandleError(manager.Register(journalComponent), "register journal")

	ctrlComponent := &lifecycle.Funcs{
		Component: "controller",
		OnStart:   ctrl.Connect,
		OnStop:    func(context.Context) error { return ctrl.Disconnect() },
	}
	HandleError(manager.Register(ctrlComponent, journalComponent), "register controller")

	provider, err := tracing.New(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		TLSCAPath:   cfg.Tracing.TLSCAPath,
		TLSInsecure: cfg.Tracing.TLSInsecure,
		Service:     "armlex",
		Version:     Version,
	})
	if err != nil {
		log.Warn().Err(err).Msg("tracing unavailable, continuing without it")
	} else {
		HandleError(manager.Register(provider), "register tracing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	HandleError(manager.Start(ctx), "start")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "interrupt, stopping the arm")
		cancel()
	}()

	executor := exec.New(ctrl, exec.WithLoopPause(cfg.LoopPause()))
	run, err := executor.Execute(ctx, res.Quads)
	if err != nil {
		stopComponents(manager, log)
		HandleError(err, "execute")
	}
	fmt.Printf("run %s on %s\n", run.ID, ctrl.DriverName())

	last := drainRun(run)
	outcome := runOutcome(last)
	if err := journal.RecordRun(context.Background(), history.Run{
		ID:       run.ID,
		Outcome:  outcome,
		Driver:   ctrl.DriverName(),
		Moves:    last.Moves,
		Duration: last.Duration,
		Error:    last.Error,
	}); err != nil {
		log.Warn().Err(err).Msg("recording run failed")
	}

	stopComponents(manager, log)

	if outcome != "ok" {
		os.Exit(1)
	}
}

// drainRun prints run progress and returns the terminal event
func drainRun(run *exec.Run) exec.Event {
	var last exec.Event
	for ev := range run.Events {
		switch ev.Kind {
		case exec.EventRunStarted:
			fmt.Printf("%d step(s)\n", ev.Total)
		case exec.EventSpeedChanged:
			fmt.Printf("  %s pace %.0fs per move\n", ev.Robot, ev.Value)
		case exec.EventMoveStarted:
			fmt.Printf("  %s.%s -> %.1f\n", ev.Robot, ev.Joint, ev.Value)
		case exec.EventLoopStarted:
			fmt.Printf("  repeat x%d\n", ev.Count)
		case exec.EventLoopIteration:
			fmt.Printf("  pass %d/%d\n", ev.Iteration, ev.Count)
		case exec.EventRunCompleted:
			fmt.Printf("completed: %d move(s) in %s\n",
				ev.Moves, ev.Duration.Round(time.Millisecond))
			last = ev
		case exec.EventRunFailed:
			fmt.Fprintf(os.Stderr, "failed after %d move(s): %s\n", ev.Moves, ev.Error)
			last = ev
		}
	}
	return last
}

// runOutcome maps the terminal event onto a journal outcome
func runOutcome(last exec.Event) string {
	if last.Kind == exec.EventRunCompleted {
		return "ok"
	}
	if errors.Is(last.Err, context.Canceled) || errors.Is(last.Err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

// stopComponents runs the reverse-order shutdown with the usual timeout
func stopComponents(manager *lifecycle.Manager, log zerolog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
