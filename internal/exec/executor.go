package exec

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/metrics"
	"github.com/mbeltran/armlex/internal/quad"
	"github.com/mbeltran/armlex/internal/robot"
)

// DefaultLoopPause separates repeat iterations so the arm settles between
// passes
const DefaultLoopPause = 800 * time.Millisecond

var (
	// ErrBusy means a run is already active on this executor
	ErrBusy = errors.New("exec: a run is already active")
	// ErrEmptyProgram means there are no quadruples to execute
	ErrEmptyProgram = errors.New("exec: empty program")
	// ErrNotConnected means the controller has no driver session
	ErrNotConnected = errors.New("exec: robot not connected")
)

// Executor drives the controller from quadruple programs. One run at a time;
// concurrent Execute calls are refused with ErrBusy.
type Executor struct {
	ctrl  *robot.Controller
	pause time.Duration
	log   zerolog.Logger

	busy chan struct{}
}

// Option adjusts executor construction
type Option func(*Executor)

// WithLoopPause overrides the settle pause between repeat iterations
func WithLoopPause(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.pause = d
		}
	}
}

// New returns an executor bound to the controller
func New(ctrl *robot.Controller, opts ...Option) *Executor {
	e := &Executor{
		ctrl:  ctrl,
		pause: DefaultLoopPause,
		log:   logging.WithComponent("exec"),
		busy:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run is a handle on one in-flight execution. Events must be drained; the
// channel closes after the terminal RunCompleted or RunFailed event.
type Run struct {
	ID      string
	Started time.Time
	Events  <-chan Event
}

// Execute starts the program in the background and returns its run handle.
// The run stops at the first controller error or context cancellation.
func (e *Executor) Execute(ctx context.Context, quads []quad.Quadruple) (*Run, error) {
	if len(quads) == 0 {
		return nil, ErrEmptyProgram
	}
	if !e.ctrl.Connected() {
		return nil, ErrNotConnected
	}
	select {
	case e.busy <- struct{}{}:
	default:
		return nil, ErrBusy
	}

	events := make(chan Event, 64)
	run := &Run{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Events:  events,
	}
	go e.run(ctx, run, quads, events)
	return run, nil
}

func (e *Executor) run(ctx context.Context, run *Run, quads []quad.Quadruple, events chan<- Event) {
	defer close(events)
	defer func() { <-e.busy }()

	st := &runState{
		run:    run,
		events: events,
		env:    make(map[string]int),
		total:  plannedSteps(quads),
	}
	log := e.log.With().Str(logging.FieldRun, run.ID).Logger()

	e.emit(ctx, st, Event{Kind: EventRunStarted, Total: st.total})
	log.Info().Int(logging.FieldCount, st.total).Msg("run started")

	err := e.walk(ctx, st, quads)
	elapsed := time.Since(run.Started)

	switch {
	case err == nil:
		metrics.IncRun("ok")
		e.emit(ctx, st, Event{Kind: EventRunCompleted, Moves: st.moves, Duration: elapsed})
		log.Info().
			Int("moves", st.moves).
			Int64(logging.FieldDuration, elapsed.Milliseconds()).
			Msg("run completed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.IncRun("canceled")
		e.emit(ctx, st, Event{Kind: EventRunFailed, Moves: st.moves, Duration: elapsed, Err: err, Error: err.Error()})
		log.Warn().Int("moves", st.moves).Msg("run canceled")
	default:
		metrics.IncRun("error")
		e.emit(ctx, st, Event{Kind: EventRunFailed, Moves: st.moves, Duration: elapsed, Err: err, Error: err.Error()})
		log.Error().Err(err).Int("moves", st.moves).Msg("run failed")
	}
}

type runState struct {
	run    *Run
	events chan<- Event
	env    map[string]int
	moves  int
	step   int
	total  int
}

// plannedSteps counts the quadruples a run will execute, loop bodies
// multiplied out, so progress events can report step N of M.
func plannedSteps(quads []quad.Quadruple) int {
	total := 0
	i := 0
	for i < len(quads) {
		q := quads[i]
		if q.Op != quad.OpBeginLoop {
			total++
			i++
			continue
		}
		end, err := quad.LoopBounds(quads, i)
		if err != nil {
			// A malformed loop fails the walk anyway; count the rest flat.
			return total + len(quads) - i
		}
		count, err := strconv.Atoi(q.Arg1)
		if err != nil || count < 1 {
			count = 1
		}
		total += count * (end - i - 1)
		i = end + 1
	}
	return total
}

// walk executes the top-level sequence, expanding loops inline
func (e *Executor) walk(ctx context.Context, st *runState, quads []quad.Quadruple) error {
	i := 0
	for i < len(quads) {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := quads[i]
		if q.Op != quad.OpBeginLoop {
			if err := e.step(ctx, st, q); err != nil {
				return err
			}
			i++
			continue
		}

		end, err := quad.LoopBounds(quads, i)
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(q.Arg1)
		if err != nil {
			return fmt.Errorf("exec: loop %s has count %q: %w", q.Result, q.Arg1, err)
		}
		body := quads[i+1 : end]

		e.emit(ctx, st, Event{Kind: EventLoopStarted, Count: count})
		for iter := 1; iter <= count; iter++ {
			e.emit(ctx, st, Event{Kind: EventLoopIteration, Iteration: iter, Count: count})
			for _, bq := range body {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := e.step(ctx, st, bq); err != nil {
					return err
				}
			}
			if iter < count {
				if err := e.settle(ctx); err != nil {
					return err
				}
			}
		}
		i = end + 1
	}
	return nil
}

// step executes one non-loop quadruple
func (e *Executor) step(ctx context.Context, st *runState, q quad.Quadruple) error {
	st.step++
	switch q.Op {
	case quad.OpCreate:
		return nil

	case quad.OpSet:
		value, err := strconv.Atoi(q.Arg1)
		if err != nil {
			return fmt.Errorf("exec: binding %s has value %q: %w", q.Result, q.Arg1, err)
		}
		st.env[q.Result] = value
		return nil

	case quad.OpAssoc:
		robotName, ok := q.SpeedTarget()
		if !ok {
			return nil
		}
		seconds, bound := st.env[q.Arg1]
		if !bound {
			return fmt.Errorf("exec: speed temporary %s was never set", q.Arg1)
		}
		if err := e.ctrl.SetDelay(float64(seconds)); err != nil {
			return err
		}
		e.emit(ctx, st, Event{Kind: EventSpeedChanged, Robot: robotName, Value: float64(seconds)})
		return nil

	case quad.OpCall:
		return e.move(ctx, st, q)

	case quad.OpEndLoop:
		// Loop bodies are expanded by walk; a stray terminator is harmless.
		return nil

	default:
		return fmt.Errorf("exec: unknown operation %q", q.Op)
	}
}

// move dispatches one CALL quadruple to the controller
func (e *Executor) move(ctx context.Context, st *runState, q quad.Quadruple) error {
	joint := robot.Joint(q.Result)
	if _, ok := robot.AxisIndex(joint); !ok {
		return fmt.Errorf("exec: command %q does not map to a joint", q.Result)
	}
	value, err := strconv.Atoi(q.Arg2)
	if err != nil {
		return fmt.Errorf("exec: move value %q: %w", q.Arg2, err)
	}

	e.emit(ctx, st, Event{
		Kind: EventMoveStarted, Robot: q.Arg1, Joint: joint, Value: float64(value),
		Step: st.step, Total: st.total,
	})
	started := time.Now()
	if err := e.ctrl.Move(ctx, joint, float64(value)); err != nil {
		return err
	}
	st.moves++
	e.emit(ctx, st, Event{
		Kind: EventMoveCompleted, Robot: q.Arg1, Joint: joint, Value: float64(value),
		Step: st.step, Total: st.total, Duration: time.Since(started),
	})
	return nil
}

// settle waits the configured pause between loop iterations
func (e *Executor) settle(ctx context.Context) error {
	if e.pause <= 0 {
		return nil
	}
	timer := time.NewTimer(e.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// emit delivers an event without risking a stuck producer. Buffered delivery
// always succeeds; once the buffer is full and the run's context is dead the
// consumer may be gone, so delivery is abandoned.
func (e *Executor) emit(ctx context.Context, st *runState, ev Event) {
	ev.RunID = st.run.ID
	ev.Time = time.Now()
	select {
	case st.events <- ev:
		return
	default:
	}
	select {
	case st.events <- ev:
	case <-ctx.Done():
	}
}
