// Package metrics registers the process Prometheus collectors. Collectors
// are package-scoped and auto-registered; callers go through the helper
// functions so label values stay consistent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armlex_analyses_total",
		Help: "Program analyses by result.",
	}, []string{"status"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "armlex_analysis_duration_seconds",
		Help:    "Wall time of a full analysis pipeline pass.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	diagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armlex_diagnostics_total",
		Help: "Diagnostics reported to users by phase.",
	}, []string{"phase"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armlex_analysis_cache_lookups_total",
		Help: "Analysis cache lookups by outcome.",
	}, []string{"outcome"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armlex_runs_total",
		Help: "Program executions by outcome.",
	}, []string{"outcome"})

	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armlex_moves_total",
		Help: "Joint movements commanded, by joint.",
	}, []string{"joint"})

	moveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "armlex_move_duration_seconds",
		Help:    "Wall time of a single commanded movement.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	robotConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "armlex_robot_connected",
		Help: "Whether a robot driver is connected (1) or not (0).",
	}, []string{"driver"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armlex_http_requests_total",
		Help: "API requests by route and status code.",
	}, []string{"route", "code"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "armlex_http_requests_in_flight",
		Help: "API requests currently being served.",
	})
)

// ObserveAnalysis records one analysis pass
func ObserveAnalysis(ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	analysesTotal.WithLabelValues(status).Inc()
	analysisDuration.Observe(d.Seconds())
}

// AddDiagnostics counts reported diagnostics for one phase
func AddDiagnostics(phase string, n int) {
	if n > 0 {
		diagnosticsTotal.WithLabelValues(phase).Add(float64(n))
	}
}

// IncCacheLookup records an analysis cache hit or miss
func IncCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// IncRun records one program execution outcome: ok, error, or canceled
func IncRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

// ObserveMove records one commanded joint movement
func ObserveMove(joint string, d time.Duration) {
	movesTotal.WithLabelValues(joint).Inc()
	moveDuration.Observe(d.Seconds())
}

// SetRobotConnected flips the connection gauge for a driver
func SetRobotConnected(driver string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	robotConnected.WithLabelValues(driver).Set(v)
}

// IncHTTPRequest counts one served API request
func IncHTTPRequest(route, code string) {
	httpRequestsTotal.WithLabelValues(route, code).Inc()
}

// HTTPInFlight tracks request concurrency; call the returned func when done
func HTTPInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}
