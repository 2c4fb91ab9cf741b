package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/apiserver"
	"github.com/mbeltran/armlex/internal/config"
	"github.com/mbeltran/armlex/internal/lifecycle"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/tracing"
)

// journalKeep bounds the journal so a long-lived server does not grow the
// database without end
const journalKeep = 1000

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve exposes analysis, the example library, the robot state and the
run journal over HTTP. The server stays useful without a reachable
station; the robot endpoint then reports the simulator or disconnected
state.

  armlex serve
  armlex serve --listen 0.0.0.0:8080`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"Listen address, host:port (overrides the station file)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	HandleError(err, "load configuration")
	if serveListen != "" {
		cfg.API.Listen = serveListen
		HandleError(cfg.Validate(), "validate configuration")
	}
	setupLogging(cfg)
	log := logging.WithComponent("cli")
	log.Info().Str(logging.FieldVersion, Version).Msg("starting armlex api")

	an, err := analyzer.New(cfg.Profile())
	HandleError(err, "build analyzer")

	journal, err := openJournal(cfg)
	HandleError(err, "open journal")
	if err := journal.Prune(context.Background(), journalKeep); err != nil {
		log.Warn().Err(err).Msg("journal prune failed")
	}

	ctrl, err := buildController(cfg, false)
	HandleError(err, "build controller")

	manager := lifecycle.NewManager()

	journalComponent := &lifecycle.Funcs{
		Component: "journal",
		OnStop:    func(context.Context) error { return journal.Close() },
	}
	HandleError(manager.Register(journalComponent), "register journal")

	// Analysis stays available without a station, so a failed connect
	// degrades the robot endpoints instead of failing startup.
	ctrlComponent := &lifecycle.Funcs{
		Component: "controller",
		OnStart: func(ctx context.Context) error {
			if err := ctrl.Connect(ctx); err != nil {
				log.Warn().Err(err).Msg("robot unavailable, serving analysis only")
			}
			return nil
		},
		OnStop: func(context.Context) error { return ctrl.Disconnect() },
	}
	HandleError(manager.Register(ctrlComponent, journalComponent), "register controller")

	api := apiserver.New(apiserver.Config{
		Listen:        cfg.API.Listen,
		CORSOrigins:   cfg.API.CORSOrigins,
		MaxConcurrent: cfg.API.MaxConcurrent,
	}, an, ctrl, journal, &managerReadiness{
		manager:    manager,
		components: []lifecycle.Component{journalComponent, ctrlComponent},
	})
	HandleError(manager.Register(api, journalComponent, ctrlComponent), "register api server")

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

	// A station file edit re-applies the settings that work without a
	// restart; see applyConfigEdit. Serve runs fine without the watch, so
	// setup trouble only warns.
	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultPath()
	}
	var watcher *config.FileWatcher
	watchComponent := &lifecycle.Funcs{
		Component: "config-watch",
		OnStart: func(ctx context.Context) error {
			if _, err := os.Stat(watchPath); err != nil {
				log.Debug().Str(logging.FieldPath, watchPath).
					Msg("no station file on disk, config reload off")
				return nil
			}
			w, err := config.Watch(ctx, watchPath, config.DefaultDebounce, applyConfigEdit)
			if err != nil {
				log.Warn().Err(err).Msg("config reload unavailable, continuing without it")
				return nil
			}
			watcher = w
			return nil
		},
		OnStop: func(context.Context) error {
			if watcher == nil {
				return nil
			}
			return watcher.Stop()
		},
	}
	HandleError(manager.Register(watchComponent), "register config watch")

	ctx, cancel := context.WithCancel(context.Background())
	HandleError(manager.Start(ctx), "start")
	log.Info().Str(logging.FieldAddr, api.Addr()).Msg("ready")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("shutdown complete")
}

// applyConfigEdit applies the settings that can change without a restart,
// today the log level. The --log-level flag keeps outranking the station
// file, exactly as at startup; listen address, station and journal stay as
// loaded.
func applyConfigEdit(next *config.Config) error {
	if logLevelFlag != "" || next.LogLevel == "" {
		return nil
	}
	return logging.SetLevel(next.LogLevel)
}

// managerReadiness answers the readiness endpoint from the lifecycle
// manager's view of the named components
type managerReadiness struct {
	manager    *lifecycle.Manager
	components []lifecycle.Component
}

func (m *managerReadiness) IsReady() bool {
	for _, c := range m.components {
		if !m.manager.IsRunning(c) {
			return false
		}
	}
	return true
}
