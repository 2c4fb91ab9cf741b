package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mbeltran/armlex/internal/examples"
	"github.com/mbeltran/armlex/internal/history"
	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/report"
)

const (
	// maxSourceBytes bounds the analyze request body. Station programs are
	// a few kilobytes; anything near the cap is not a program.
	maxSourceBytes = 1 << 20

	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// registerHandlers wires every route. The robot status endpoint is only
// registered when a controller was supplied.
func (s *Server) registerHandlers() {
	s.router.HandleFunc("/api/v1/analyze", s.withMethod(http.MethodPost, s.handleAnalyze))
	s.router.HandleFunc("/api/v1/examples", s.withMethod(http.MethodGet, s.handleExamples))
	s.router.HandleFunc("/api/v1/examples/", s.withMethod(http.MethodGet, s.handleExample))
	s.router.HandleFunc("/api/v1/runs", s.withMethod(http.MethodGet, s.handleRuns))
	if s.status != nil {
		s.router.HandleFunc("/api/v1/robot/status", s.withMethod(http.MethodGet, s.handleRobotStatus))
	}

	s.router.HandleFunc("/healthz", s.handleHealth)
	s.router.HandleFunc("/readyz", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	// Catch-all so unknown paths get the same JSON error shape as
	// everything else.
	s.router.HandleFunc("/", s.handleNotFound)
}

// analyzeRequest is the analyze endpoint's request body.
type analyzeRequest struct {
	// Name labels the source in the report header; optional.
	Name   string `json:"name,omitempty"`
	Source string `json:"source"`
}

// handleAnalyze runs the submitted program through the pipeline and returns
// the full report. Programs with diagnostics still return 200; failure is a
// property of the program, not of the request.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.analyze")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, maxSourceBytes)
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeRequestTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "source must not be empty")
		return
	}

	res := s.analyzer.Analyze(req.Source)
	span.SetAttributes(
		attribute.Int("analysis.tokens", res.Stats.Tokens),
		attribute.Int("analysis.diagnostics", len(res.Diagnostics)),
		attribute.Bool("analysis.ok", res.OK()),
	)

	if err := s.recorder.RecordAnalysis(ctx, history.Analysis{
		Hash:        res.SourceHash,
		Source:      req.Name,
		OK:          res.OK(),
		Diagnostics: len(res.Diagnostics),
		Robots:      res.Stats.Robots,
		Duration:    res.Stats.Duration,
	}); err != nil {
		s.log.Warn().Err(err).Msg("journal write failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, report.Build(req.Name, req.Source, res))

	s.log.Debug().
		Bool("ok", res.OK()).
		Int(logging.FieldCount, len(res.Diagnostics)).
		Msg("analysis served")
}

// handleExamples lists the bundled example programs, sources included.
func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, examples.List())
}

// handleExample serves one example by name.
func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/examples/")
	ex, err := examples.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, ex)
}

// handleRobotStatus serves the controller snapshot.
func (s *Server) handleRobotStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, s.status.State())
}

// handleRuns serves the newest journal entries, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest,
				fmt.Sprintf("limit must be a positive integer, got %q", v))
			return
		}
		if n > maxRunsLimit {
			n = maxRunsLimit
		}
		limit = n
	}

	runs, err := s.recorder.RecentRuns(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("journal read failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to read run history")
		return
	}
	if runs == nil {
		// An empty journal serializes as [], not null.
		runs = []history.Run{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, runs)
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeJSON(w, map[string]string{"status": "healthy"})
}

// handleReady answers readiness probes through the configured checker.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.ready != nil && s.ready.IsReady()

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = writeJSON(w, map[string]bool{"ready": ready})
}
