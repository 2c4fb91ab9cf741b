package robot

import (
	"context"
	"math"
	"sync"
	"time"
)

// SimDriver is the in-process motion backend. It models move time from the
// commanded speed so executions pace like the real cell, scaled by TimeScale;
// a zero scale makes moves instantaneous, which is what tests want.
type SimDriver struct {
	mu        sync.Mutex
	joints    [NumAxes]float64
	timeScale float64
	connected bool
}

// NewSimDriver returns a simulator. timeScale stretches (or, at 0,
// eliminates) the modeled move durations.
func NewSimDriver(timeScale float64) *SimDriver {
	if timeScale < 0 {
		timeScale = 0
	}
	return &SimDriver{timeScale: timeScale}
}

// Connect always succeeds; the simulator is its own backend
func (d *SimDriver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

// Disconnect clears the session
func (d *SimDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

// MoveJoints sleeps for the modeled duration then applies the target pose.
// The context cancels the sleep, leaving the pose unchanged.
func (d *SimDriver) MoveJoints(ctx context.Context, target [NumAxes]float64, speed float64) error {
	if wait := d.moveDuration(target, speed); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	d.mu.Lock()
	d.joints = target
	d.mu.Unlock()
	return nil
}

// Joints reports the current simulated pose
func (d *SimDriver) Joints(ctx context.Context) ([NumAxes]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.joints, nil
}

// Name identifies the backend
func (d *SimDriver) Name() string { return "simulator" }

func (d *SimDriver) moveDuration(target [NumAxes]float64, speed float64) time.Duration {
	if d.timeScale == 0 || speed <= 0 {
		return 0
	}
	d.mu.Lock()
	current := d.joints
	d.mu.Unlock()

	var dist float64
	for i := range target {
		dist = math.Max(dist, math.Abs(target[i]-current[i]))
	}
	seconds := dist / speed * d.timeScale
	return time.Duration(seconds * float64(time.Second))
}
