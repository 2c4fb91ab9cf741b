package apiserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/metrics"
)

// corsMiddleware adds CORS headers so browser clients can reach the API and
// answers preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
			if origin != "*" {
				// The response now depends on the request origin.
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowOrigin resolves the Access-Control-Allow-Origin value for a request
// origin. An empty configured list allows any origin; otherwise the origin
// is echoed back only when listed, and "" means no CORS headers at all.
func (s *Server) allowOrigin(origin string) string {
	if len(s.cfg.CORSOrigins) == 0 {
		return "*"
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// withMethod wraps a handler to enforce the HTTP method.
func (s *Server) withMethod(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			s.handleMethodNotAllowed(w, r)
			return
		}
		handler(w, r)
	}
}

// limitConcurrency rejects requests beyond the configured in-flight cap so
// a flood of analyze calls cannot starve the process.
func (s *Server) limitConcurrency(next http.Handler) http.Handler {
	if s.cfg.MaxConcurrent <= 0 {
		return next
	}
	sem := make(chan struct{}, s.cfg.MaxConcurrent)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		default:
			writeError(w, http.StatusTooManyRequests, codeTooManyRequests,
				"server is at capacity, retry shortly")
		}
	})
}

// logRequests emits one line per request and keeps the request metrics.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		release := metrics.HTTPInFlight()
		defer release()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.IncHTTPRequest(routeLabel(r.URL.Path), strconv.Itoa(rec.status))
		s.log.Debug().
			Str("method", r.Method).
			Str(logging.FieldPath, r.URL.Path).
			Int(logging.FieldStatus, rec.status).
			Dur(logging.FieldDuration, time.Since(start)).
			Msg("request served")
	})
}

// statusRecorder captures the status code a handler wrote. Handlers that
// never call WriteHeader implicitly answer 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// knownRoutes is the set of fixed paths used as metric labels.
var knownRoutes = map[string]struct{}{
	"/api/v1/analyze":      {},
	"/api/v1/examples":     {},
	"/api/v1/runs":         {},
	"/api/v1/robot/status": {},
	"/healthz":             {},
	"/readyz":              {},
	"/metrics":             {},
}

// routeLabel maps a request path onto a bounded metric label. Example names
// collapse into one label and unknown paths share one so probing cannot grow
// the series set.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/api/v1/examples/") {
		return "/api/v1/examples/{name}"
	}
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return "other"
}
