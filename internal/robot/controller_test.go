package robot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refusingDriver fails every Connect, standing in for an unreachable cell
type refusingDriver struct{}

func (refusingDriver) Connect(context.Context) error { return errors.New("connection refused") }
func (refusingDriver) Disconnect() error             { return nil }
func (refusingDriver) MoveJoints(context.Context, [NumAxes]float64, float64) error {
	return errors.New("not connected")
}
func (refusingDriver) Joints(context.Context) ([NumAxes]float64, error) {
	return [NumAxes]float64{}, errors.New("not connected")
}
func (refusingDriver) Name() string { return "refusing" }

func newTestController(t *testing.T) *Controller {
	t.Helper()
	ctl, err := NewController(Config{Driver: NewSimDriver(0)})
	require.NoError(t, err)
	require.NoError(t, ctl.Connect(context.Background()))
	return ctl
}

func TestConnectParksAtHome(t *testing.T) {
	ctl := newTestController(t)

	st := ctl.State()
	assert.True(t, st.Connected)
	assert.Equal(t, "simulator", st.Driver)
	assert.Equal(t, Home(), st.Axes)
	assert.Equal(t, 90.0, st.Joints[JointWrist2])
}

func TestConnectFallsBackToSimulator(t *testing.T) {
	ctl, err := NewController(Config{
		Driver:   refusingDriver{},
		Fallback: NewSimDriver(0),
	})
	require.NoError(t, err)

	require.NoError(t, ctl.Connect(context.Background()))
	assert.Equal(t, "simulator", ctl.DriverName())
	assert.True(t, ctl.Connected())
}

func TestConnectFailsWithoutFallback(t *testing.T) {
	ctl, err := NewController(Config{Driver: refusingDriver{}})
	require.NoError(t, err)

	err = ctl.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnect)
	assert.False(t, ctl.Connected())
}

func TestMoveUpdatesPose(t *testing.T) {
	ctl := newTestController(t)

	require.NoError(t, ctl.Move(context.Background(), JointBase, 90))
	st := ctl.State()
	assert.Equal(t, 90.0, st.Joints[JointBase])
	assert.Equal(t, 1, st.Moves)

	hist := ctl.History()
	require.Len(t, hist, 1)
	assert.Equal(t, JointBase, hist[0].Joint)
	assert.Equal(t, 0.0, hist[0].From)
	assert.Equal(t, 90.0, hist[0].To)
}

func TestMoveRequiresConnection(t *testing.T) {
	ctl, err := NewController(Config{Driver: NewSimDriver(0)})
	require.NoError(t, err)

	err = ctl.Move(context.Background(), JointBase, 10)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestMoveRejectsLimitViolations(t *testing.T) {
	ctl := newTestController(t)

	err := ctl.Move(context.Background(), JointShoulder, 181)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRange)

	err = ctl.Move(context.Background(), Joint("hip"), 10)
	assert.ErrorIs(t, err, ErrUnknownJoint)

	// the rejected moves never reached the driver
	assert.Equal(t, 0, ctl.State().Moves)
}

func TestMoveSpeedDerivedFromDelay(t *testing.T) {
	ctl := newTestController(t)
	require.NoError(t, ctl.SetDelay(2))

	require.NoError(t, ctl.Move(context.Background(), JointBase, 90))
	hist := ctl.History()
	require.Len(t, hist, 1)
	// 90 degrees over 2 seconds
	assert.InDelta(t, 45.0, hist[0].Speed, 0.001)
	assert.Equal(t, 2.0, hist[0].Delay)
}

func TestMoveSpeedClamped(t *testing.T) {
	ctl := newTestController(t)

	// long move over the shortest delay exceeds the 150 deg/s cap
	require.NoError(t, ctl.SetDelay(1))
	require.NoError(t, ctl.Move(context.Background(), JointBase, 300))
	assert.InDelta(t, 150.0, ctl.History()[0].Speed, 0.001)

	// zero-distance move floors at the minimum speed
	require.NoError(t, ctl.Move(context.Background(), JointBase, 300))
	assert.InDelta(t, 1.0, ctl.History()[1].Speed, 0.001)
}

func TestSetDelayValidated(t *testing.T) {
	ctl := newTestController(t)

	assert.NoError(t, ctl.SetDelay(60))
	err := ctl.SetDelay(61)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRange)
	err = ctl.SetDelay(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestGripperActuatesAxisSix(t *testing.T) {
	ctl := newTestController(t)

	require.NoError(t, ctl.Move(context.Background(), JointGripper, 40))
	st := ctl.State()
	assert.Equal(t, 40.0, st.Gripper)
	assert.Equal(t, 40.0, st.Axes[5])

	// a wrist3 command shares the axis but not the gripper reading
	require.NoError(t, ctl.Move(context.Background(), JointWrist3, 10))
	st = ctl.State()
	assert.Equal(t, 10.0, st.Axes[5])
	assert.Equal(t, 40.0, st.Gripper)
}

func TestHistoryBounded(t *testing.T) {
	ctl, err := NewController(Config{Driver: NewSimDriver(0), HistorySize: 3})
	require.NoError(t, err)
	require.NoError(t, ctl.Connect(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, ctl.Move(context.Background(), JointBase, float64(i*10)))
	}
	hist := ctl.History()
	require.Len(t, hist, 3)
	assert.Equal(t, 20.0, hist[0].To, "oldest surviving entry")
	assert.Equal(t, 5, ctl.State().Moves, "total count keeps growing")
}

func TestStateReadableDuringMove(t *testing.T) {
	// a slow simulated move must not block state reads
	ctl, err := NewController(Config{Driver: NewSimDriver(1)})
	require.NoError(t, err)
	require.NoError(t, ctl.Connect(context.Background()))
	require.NoError(t, ctl.SetDelay(1))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = ctl.Move(context.Background(), JointBase, 45)
	}()

	// reads proceed while the move sleeps
	for i := 0; i < 10; i++ {
		_ = ctl.State()
	}
	wg.Wait()
	assert.Equal(t, 45.0, ctl.State().Joints[JointBase])
}

func TestMoveCancelable(t *testing.T) {
	ctl, err := NewController(Config{Driver: NewSimDriver(5)})
	require.NoError(t, err)
	require.NoError(t, ctl.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ctl.Move(ctx, JointBase, 180)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// pose unchanged after the canceled move
	assert.Equal(t, 0.0, ctl.State().Joints[JointBase])
}

func TestDisconnectIdempotent(t *testing.T) {
	ctl := newTestController(t)
	require.NoError(t, ctl.Disconnect())
	require.NoError(t, ctl.Disconnect())
	assert.False(t, ctl.Connected())
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(Config{})
	assert.Error(t, err, "driver is required")

	_, err = NewController(Config{Driver: NewSimDriver(0), DefaultDelay: 120})
	assert.Error(t, err, "default delay outside the delay range")

	bad := DefaultLimits()
	bad.Joints[JointBase] = Limits{Min: 10, Max: -10}
	_, err = NewController(Config{Driver: NewSimDriver(0), Limits: bad})
	assert.Error(t, err)
}
