package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbeltran/armlex/internal/logging"
)

const (
	// DefaultStopTimeout is the per-component grace period during shutdown
	DefaultStopTimeout = 30 * time.Second
	// rollbackTimeout bounds each stop while unwinding a failed Start
	rollbackTimeout = 5 * time.Second
)

// Manager starts registered components in registration order and stops
// them in reverse start order. When a component fails to start, the ones
// already up are stopped again, so Start either brings the whole set up
// or leaves nothing running.
type Manager struct {
	// regMu serializes Register/Start/Stop; mu guards the running map so
	// IsRunning stays responsive while a slow component starts
	regMu sync.Mutex
	mu    sync.RWMutex

	components []Component
	started    []Component
	running    map[Component]bool
	stopWait   time.Duration
	log        zerolog.Logger
}

// NewManager returns an empty manager with the default stop timeout
func NewManager() *Manager {
	return &Manager{
		running:  map[Component]bool{},
		stopWait: DefaultStopTimeout,
		log:      logging.WithComponent("lifecycle"),
	}
}

// Register adds a component. Its dependencies must already be registered,
// which makes registration order a valid start order and keeps the graph
// acyclic by construction.
func (m *Manager) Register(c Component, dependsOn ...Component) error {
	m.regMu.Lock()
	defer m.regMu.Unlock()

	if c == nil {
		return errors.New("lifecycle: cannot register a nil component")
	}
	if c.Name() == "" {
		return errors.New("lifecycle: component needs a name")
	}
	if m.isRegistered(c) {
		return fmt.Errorf("lifecycle: %s is already registered", c.Name())
	}
	for _, dep := range dependsOn {
		if dep == nil {
			return fmt.Errorf("lifecycle: %s declares a nil dependency", c.Name())
		}
		if !m.isRegistered(dep) {
			return fmt.Errorf("lifecycle: %s depends on %s, which is not registered",
				c.Name(), dep.Name())
		}
	}

	m.components = append(m.components, c)
	m.log.Debug().Str("name", c.Name()).Int(logging.FieldCount, len(dependsOn)).
		Msg("component registered")
	return nil
}

// Start brings every component up. On the first failure the components
// already started are stopped again, newest first, and the failure is
// returned.
func (m *Manager) Start(ctx context.Context) error {
	m.regMu.Lock()
	defer m.regMu.Unlock()

	m.started = m.started[:0]
	for _, c := range m.components {
		m.log.Info().Str("name", c.Name()).Msg("starting component")
		begin := time.Now()

		if err := c.Start(ctx); err != nil {
			m.log.Error().Err(err).Str("name", c.Name()).Msg("component failed to start")
			m.rollback()
			return fmt.Errorf("lifecycle: start %s: %w", c.Name(), err)
		}

		m.setRunning(c, true)
		m.started = append(m.started, c)
		m.log.Info().Str("name", c.Name()).
			Dur(logging.FieldDuration, time.Since(begin)).Msg("component started")
	}
	return nil
}

// Stop winds the started components down in reverse order. Every component
// gets its own grace period, so one overrunning it does not eat the budget
// of the rest; failures are collected rather than aborting the teardown.
func (m *Manager) Stop(ctx context.Context) error {
	m.regMu.Lock()
	defer m.regMu.Unlock()

	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		if !m.IsRunning(c) {
			continue
		}

		m.log.Info().Str("name", c.Name()).Msg("stopping component")
		begin := time.Now()

		stopCtx, cancel := context.WithTimeout(ctx, m.stopTimeout())
		err := c.Stop(stopCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.log.Warn().Str("name", c.Name()).
				Dur(logging.FieldDuration, time.Since(begin)).
				Msg("component exceeded the stop grace period")
			errs = append(errs, fmt.Errorf("lifecycle: stop %s: %w", c.Name(), err))
		case err != nil:
			m.log.Error().Err(err).Str("name", c.Name()).Msg("component stop failed")
			errs = append(errs, fmt.Errorf("lifecycle: stop %s: %w", c.Name(), err))
		default:
			m.log.Info().Str("name", c.Name()).
				Dur(logging.FieldDuration, time.Since(begin)).Msg("component stopped")
		}
		m.setRunning(c, false)
	}
	m.started = m.started[:0]
	return errors.Join(errs...)
}

// IsRunning reports whether the component started and has not stopped
func (m *Manager) IsRunning(c Component) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running[c]
}

// SetStopTimeout overrides the per-component grace period
func (m *Manager) SetStopTimeout(d time.Duration) {
	m.mu.Lock()
	m.stopWait = d
	m.mu.Unlock()
}

// rollback stops what a failed Start brought up, newest first
func (m *Manager) rollback() {
	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
		if err := c.Stop(ctx); err != nil {
			m.log.Warn().Err(err).Str("name", c.Name()).Msg("rollback stop failed")
		}
		cancel()
		m.setRunning(c, false)
	}
	m.started = m.started[:0]
}

func (m *Manager) setRunning(c Component, v bool) {
	m.mu.Lock()
	m.running[c] = v
	m.mu.Unlock()
}

func (m *Manager) stopTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopWait
}

func (m *Manager) isRegistered(c Component) bool {
	for _, existing := range m.components {
		if existing == c {
			return true
		}
	}
	return false
}
