// Package apiserver exposes the analysis pipeline, the example library, the
// robot state, and the run journal over HTTP for editor integrations and
// scripted use.
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/robot"
)

const shutdownTimeout = 5 * time.Second

// Analyzer runs submitted sources through the language pipeline.
type Analyzer interface {
	Analyze(source string) *analyzer.Result
}

// RobotStatus reports the controller snapshot served by the status endpoint.
type RobotStatus interface {
	State() robot.State
}

// ReadinessChecker gates the readiness endpoint.
type ReadinessChecker interface {
	IsReady() bool
}

// NoOpReadinessChecker always reports ready. Use it when nothing gates
// traffic, such as a server without a robot attached.
type NoOpReadinessChecker struct{}

// IsReady always returns true for the no-op checker.
func (n *NoOpReadinessChecker) IsReady() bool {
	return true
}

// Config tunes the HTTP server.
type Config struct {
	// Listen is the host:port to bind.
	Listen string
	// CORSOrigins lists the origins allowed to call the API from a
	// browser. Empty allows any origin.
	CORSOrigins []string
	// MaxConcurrent caps in-flight requests; zero or negative disables
	// the cap.
	MaxConcurrent int
}

// Server serves the HTTP API. It implements lifecycle.Component.
type Server struct {
	cfg      Config
	analyzer Analyzer
	status   RobotStatus
	recorder history.Recorder
	ready    ReadinessChecker
	router   *http.ServeMux
	server   *http.Server
	tracer   trace.Tracer
	log      zerolog.Logger

	mu sync.Mutex
	ln net.Listener
}

// New builds a server around its collaborators. an must be non-nil; status
// may be nil when no robot endpoint should be served, and a nil recorder or
// checker falls back to the do-nothing implementation.
func New(cfg Config, an Analyzer, status RobotStatus, rec history.Recorder, ready ReadinessChecker) *Server {
	if rec == nil {
		rec = history.Nop{}
	}
	if ready == nil {
		ready = &NoOpReadinessChecker{}
	}

	s := &Server{
		cfg:      cfg,
		analyzer: an,
		status:   status,
		recorder: rec,
		ready:    ready,
		router:   http.NewServeMux(),
		tracer:   otel.Tracer("armlex/api"),
		log:      logging.WithComponent("api"),
	}
	s.registerHandlers()

	// CORS sits outside the limiter so rejected requests still carry the
	// headers a browser needs to read them, and preflights never consume
	// limiter slots.
	s.server = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.logRequests(s.corsMiddleware(s.limitConcurrency(s.router))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start binds the listen address and begins serving. Binding happens here,
// not in the serve goroutine, so a taken port fails Start instead of being
// swallowed by a log line.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("apiserver: listen on %s: %w", s.cfg.Listen, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server failed")
		}
	}()

	s.log.Info().Str(logging.FieldAddr, ln.Addr().String()).Msg("api listening")
	return nil
}

// Stop drains in-flight requests and shuts the server down. ctx bounds the
// wait; the drain itself is capped at shutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("apiserver: shutdown: %w", err)
		}
		s.log.Info().Msg("api stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn().Msg("api shutdown cut short")
		return ctx.Err()
	}
}

// Name implements lifecycle.Component.
func (s *Server) Name() string {
	return "api"
}

// Addr returns the bound address once Start has run, and the configured
// listen address before that. With a ":0" listen address the bound form is
// the only way to learn the port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.Listen
}
