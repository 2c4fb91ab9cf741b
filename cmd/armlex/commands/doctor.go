package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mbeltran/armlex/internal/config"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/robodk"
	"github.com/mbeltran/armlex/internal/tui"
)

const stationProbeTimeout = 3 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the working environment",
	Long: `Doctor probes everything armlex depends on: the station file, the
RoboDK connection, the run journal, and the terminal. The exit code is 0
when every probe passes.`,
	Args: cobra.NoArgs,
	Run:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorCheck struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func runDoctor(cmd *cobra.Command, args []string) {
	// Probe results go to stdout; the log stream would interleave with
	// them, so it is dropped.
	logging.Configure(logging.Config{Output: io.Discard})

	checks := []doctorCheck{
		{"config", checkConfig},
		{"station", checkStation},
		{"journal", checkJournal},
		{"terminal", checkTerminal},
	}

	type verdict struct {
		detail string
		err    error
	}
	results := make([]verdict, len(checks))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			detail, err := c.run(ctx)
			results[i] = verdict{detail, err}
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for i, c := range checks {
		r := results[i]
		if r.err != nil {
			failed = true
			fmt.Printf("✗ %-9s %v\n", c.name, r.err)
			continue
		}
		fmt.Printf("✓ %-9s %s\n", c.name, r.detail)
	}
	if failed {
		os.Exit(1)
	}
}

func checkConfig(context.Context) (string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Sprintf("%s absent, built-in defaults in effect", path), nil
	}
	if _, err := config.Load(path); err != nil {
		return "", err
	}
	return path + " valid", nil
}

func checkStation(ctx context.Context) (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	client := robodk.New(cfg.RoboDKClient())
	dialCtx, cancel := context.WithTimeout(ctx, stationProbeTimeout)
	defer cancel()
	if err := client.Connect(dialCtx); err != nil {
		if cfg.RoboDK.FallbackToSim {
			return "", fmt.Errorf("%w (run and serve will fall back to the simulator)", err)
		}
		return "", err
	}
	defer func() { _ = client.Close() }()
	return fmt.Sprintf("api %s, robot %q", client.Version(), client.RobotItem()), nil
}

func checkJournal(ctx context.Context) (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.History.Backend == config.HistoryMemory {
		return "memory backend, nothing on disk", nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return "", err
	}
	defer func() { _ = store.Close() }()
	runs, err := store.RecentRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return fmt.Sprintf("sqlite at %s, no runs yet", cfg.History.Path), nil
	}
	return fmt.Sprintf("sqlite at %s, last run %s",
		cfg.History.Path, runs[0].At.Format("2006-01-02 15:04")), nil
}

func checkTerminal(context.Context) (string, error) {
	if !tui.IsTerminal() {
		return "not a terminal, the workbench is unavailable", nil
	}
	return "interactive, the workbench can run", nil
}
