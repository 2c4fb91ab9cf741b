package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal records start/stop order across fake components
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeComponent struct {
	name     string
	j        *journal
	startErr error
	stopErr  error
	// stopDelay makes Stop linger so grace-period handling can be observed
	stopDelay time.Duration
}

func (f *fakeComponent) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.j.add("start " + f.name)
	return nil
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	if f.stopDelay > 0 {
		select {
		case <-time.After(f.stopDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.stopErr != nil {
		return f.stopErr
	}
	f.j.add("stop " + f.name)
	return nil
}

func (f *fakeComponent) Name() string { return f.name }

func TestManagerStartsInOrderStopsInReverse(t *testing.T) {
	j := &journal{}
	store := &fakeComponent{name: "store", j: j}
	ctrl := &fakeComponent{name: "controller", j: j}
	api := &fakeComponent{name: "api", j: j}

	m := NewManager()
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(ctrl, store))
	require.NoError(t, m.Register(api, ctrl))

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, []string{"start store", "start controller", "start api"}, j.list())
	assert.True(t, m.IsRunning(api))

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, []string{
		"start store", "start controller", "start api",
		"stop api", "stop controller", "stop store",
	}, j.list())
	assert.False(t, m.IsRunning(store))
}

func TestManagerRollsBackFailedStart(t *testing.T) {
	j := &journal{}
	store := &fakeComponent{name: "store", j: j}
	broken := &fakeComponent{name: "controller", j: j, startErr: errors.New("no driver")}

	m := NewManager()
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(broken, store))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start controller")

	// the component that did start was stopped again
	assert.Equal(t, []string{"start store", "stop store"}, j.list())
	assert.False(t, m.IsRunning(store))
}

func TestManagerRegisterValidation(t *testing.T) {
	j := &journal{}
	m := NewManager()

	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&fakeComponent{name: "", j: j}))

	a := &fakeComponent{name: "a", j: j}
	require.NoError(t, m.Register(a))
	assert.Error(t, m.Register(a), "duplicate registration")

	stranger := &fakeComponent{name: "stranger", j: j}
	b := &fakeComponent{name: "b", j: j}
	err := m.Register(b, stranger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")

	assert.Error(t, m.Register(b, nil))
}

func TestManagerStopGracePeriod(t *testing.T) {
	j := &journal{}
	slow := &fakeComponent{name: "slow", j: j, stopDelay: time.Second}
	fast := &fakeComponent{name: "fast", j: j}

	m := NewManager()
	m.SetStopTimeout(30 * time.Millisecond)
	require.NoError(t, m.Register(slow))
	require.NoError(t, m.Register(fast, slow))
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the slow component timed out, the other still stopped
	assert.Contains(t, j.list(), "stop fast")
	assert.NotContains(t, j.list(), "stop slow")
	assert.False(t, m.IsRunning(slow))
}

func TestManagerStopCollectsErrors(t *testing.T) {
	j := &journal{}
	grumpy := &fakeComponent{name: "grumpy", j: j, stopErr: errors.New("refusing")}
	calm := &fakeComponent{name: "calm", j: j}

	m := NewManager()
	require.NoError(t, m.Register(grumpy))
	require.NoError(t, m.Register(calm, grumpy))
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop grumpy")
	assert.Contains(t, j.list(), "stop calm")
}

func TestFuncsAdapter(t *testing.T) {
	var started, stopped bool
	f := &Funcs{
		Component: "adapter",
		OnStart:   func(context.Context) error { started = true; return nil },
		OnStop:    func(context.Context) error { stopped = true; return nil },
	}
	assert.Equal(t, "adapter", f.Name())

	// The adapter must survive the manager's component tracking.
	m := NewManager()
	require.NoError(t, m.Register(f))
	require.NoError(t, m.Start(context.Background()))
	assert.True(t, started)
	assert.True(t, m.IsRunning(f))
	require.NoError(t, m.Stop(context.Background()))
	assert.True(t, stopped)

	// nil funcs are no-ops
	bare := &Funcs{Component: "bare"}
	assert.NoError(t, bare.Start(context.Background()))
	assert.NoError(t, bare.Stop(context.Background()))
}
