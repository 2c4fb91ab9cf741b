// Package exec runs quadruple programs against the robot controller. A run
// walks the sequence in program order, binds speed temporaries to the
// controller delay, expands repeat loops inline, and streams progress as
// typed events.
package exec

import (
	"time"

	"github.com/mbeltran/armlex/internal/robot"
)

// EventKind discriminates run events
type EventKind int

const (
	EventRunStarted EventKind = iota
	EventSpeedChanged
	EventMoveStarted
	EventMoveCompleted
	EventLoopStarted
	EventLoopIteration
	EventRunCompleted
	EventRunFailed
)

var eventKindNames = map[EventKind]string{
	EventRunStarted:    "run_started",
	EventSpeedChanged:  "speed_changed",
	EventMoveStarted:   "move_started",
	EventMoveCompleted: "move_completed",
	EventLoopStarted:   "loop_started",
	EventLoopIteration: "loop_iteration",
	EventRunCompleted:  "run_completed",
	EventRunFailed:     "run_failed",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one step of a run's progress. Fields beyond Kind, RunID and Time
// are populated per kind: Robot/Joint/Value for moves and speed changes,
// Iteration/Count for loops, Moves/Duration for completion, Err for failure.
type Event struct {
	Kind  EventKind `json:"kind"`
	RunID string    `json:"run_id"`
	Time  time.Time `json:"time"`

	Robot     string        `json:"robot,omitempty"`
	Joint     robot.Joint   `json:"joint,omitempty"`
	Value     float64       `json:"value,omitempty"`
	Step      int           `json:"step,omitempty"`
	Total     int           `json:"total,omitempty"`
	Iteration int           `json:"iteration,omitempty"`
	Count     int           `json:"count,omitempty"`
	Moves     int           `json:"moves,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
}
