package apiserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Error codes carried in ErrorResponse.Code.
const (
	codeInvalidRequest   = "INVALID_REQUEST"
	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeTooManyRequests  = "TOO_MANY_REQUESTS"
	codeRequestTooLarge  = "REQUEST_TOO_LARGE"
	codeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body every endpoint returns on failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON encodes data without HTML escaping; program sources pass through
// verbatim.
func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// writeError sends an error response.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = writeJSON(w, ErrorResponse{Error: message, Code: code})
}

// handleMethodNotAllowed handles 405 responses.
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed,
		fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path))
}

// handleNotFound handles 404 responses for unknown paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound,
		fmt.Sprintf("no such endpoint: %s", r.URL.Path))
}
