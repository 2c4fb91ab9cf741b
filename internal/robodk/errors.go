package robodk

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotConnected  = errors.New("station: no active session")
	ErrUnreachable   = errors.New("station: unreachable or transport failure")
	ErrHandshake     = errors.New("station: handshake rejected")
	ErrProtocol      = errors.New("station: malformed protocol exchange")
	ErrItemNotFound  = errors.New("station: item not found")
	ErrVersionTooOld = errors.New("station: API version below the configured minimum")
	ErrMoveRejected  = errors.New("station: movement rejected")
	ErrTimeout       = errors.New("station: request timed out")
)

// APIError wraps a sentinel with the operation and transport context.
type APIError struct {
	Sentinel  error
	Operation string
	Detail    string
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("robodk: %s: %v", e.Operation, e.Sentinel)
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the transport cause, so callers can
// match either (a canceled context stays recognizable through the taxonomy).
func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

func apiErr(op string, sentinel error, detail string, err error) *APIError {
	return &APIError{Sentinel: sentinel, Operation: op, Detail: detail, Err: err}
}
