package tui

import (
	"github.com/mbeltran/armlex/internal/exec"
)

// editDebounceMsg fires after typing goes idle. Only the timer armed by the
// latest edit carries the current seq; stale timers are dropped.
type editDebounceMsg struct {
	seq int
}

// runEventMsg carries one event from the active run's channel.
type runEventMsg struct {
	event exec.Event
}

// runStreamClosedMsg signals that the active run's event channel closed.
type runStreamClosedMsg struct{}

// robotToggledMsg reports the outcome of a connect or disconnect attempt.
type robotToggledMsg struct {
	connected bool
	err       error
}

// savedMsg reports the outcome of writing the buffer to disk.
type savedMsg struct {
	path string
	err  error
}

// journaledMsg reports a history write that ran off the update loop.
type journaledMsg struct {
	err error
}
