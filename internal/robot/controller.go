package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbeltran/armlex/internal/logging"
	"github.com/mbeltran/armlex/internal/metrics"
)

var (
	// ErrNotConnected is returned when a motion command arrives before Connect
	ErrNotConnected = errors.New("robot: not connected")
	// ErrUnknownJoint is returned for joints outside the station profile
	ErrUnknownJoint = errors.New("robot: unknown joint")
	// ErrOutOfRange is returned when a target or delay violates the soft limits
	ErrOutOfRange = errors.New("robot: out of range")
	// ErrConnect wraps driver connection failures after fallback was exhausted
	ErrConnect = errors.New("robot: connect failed")
)

// Config assembles a controller
type Config struct {
	// Driver is the primary motion backend
	Driver Driver
	// Fallback is tried when the primary fails to connect; typically the
	// simulator so the cell stays usable offline
	Fallback Driver
	// Limits defaults to DefaultLimits when zero
	Limits SoftLimits
	// DefaultDelay is the seconds-per-move before any speed command; 5 when
	// unset
	DefaultDelay float64
	// HistorySize bounds the move ring; 100 when unset
	HistorySize int
}

// Controller serializes motion commands and tracks the arm's pose. State
// reads never wait on an in-flight movement.
type Controller struct {
	// opMu serializes Connect/Disconnect/Move/Home so the driver sees one
	// command at a time; mu guards the snapshot fields and is never held
	// across a driver call
	opMu sync.Mutex
	mu   sync.RWMutex

	cfg       Config
	driver    Driver
	connected bool
	axes      [NumAxes]float64
	gripper   float64
	delay     float64
	history   []Move
	moves     int
	log       zerolog.Logger
}

// NewController validates the configuration and returns a parked controller
func NewController(cfg Config) (*Controller, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("robot: config needs a driver")
	}
	if cfg.Limits.Joints == nil {
		cfg.Limits = DefaultLimits()
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	if cfg.DefaultDelay == 0 {
		cfg.DefaultDelay = 5
	}
	if !cfg.Limits.Delay.Contains(cfg.DefaultDelay) {
		return nil, fmt.Errorf("robot: default delay %.1fs outside %.1f..%.1f",
			cfg.DefaultDelay, cfg.Limits.Delay.Min, cfg.Limits.Delay.Max)
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	return &Controller{
		cfg:    cfg,
		driver: cfg.Driver,
		delay:  cfg.DefaultDelay,
		log:    logging.WithComponent("controller"),
	}, nil
}

// Connect establishes the driver session and parks the arm at home. When the
// primary driver refuses and a fallback is configured, the fallback takes
// over; the active driver is visible in State.
func (c *Controller) Connect(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isConnected() {
		return nil
	}

	driver := c.cfg.Driver
	err := driver.Connect(ctx)
	if err != nil && c.cfg.Fallback != nil {
		c.log.Warn().Err(err).
			Str(logging.FieldDriver, driver.Name()).
			Msg("primary driver unavailable, switching to fallback")
		driver = c.cfg.Fallback
		err = driver.Connect(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnect, driver.Name(), err)
	}

	c.mu.Lock()
	c.driver = driver
	c.connected = true
	c.mu.Unlock()
	metrics.SetRobotConnected(driver.Name(), true)
	c.log.Info().Str(logging.FieldDriver, driver.Name()).Msg("connected")

	if err := c.home(ctx); err != nil {
		return err
	}
	return nil
}

// Disconnect tears down the driver session; the pose snapshot survives
func (c *Controller) Disconnect() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.isConnected() {
		return nil
	}
	c.mu.Lock()
	driver := c.driver
	c.connected = false
	c.mu.Unlock()

	err := driver.Disconnect()
	metrics.SetRobotConnected(driver.Name(), false)
	c.log.Info().Str(logging.FieldDriver, driver.Name()).Msg("disconnected")
	return err
}

// Connected reports whether a driver session is up
func (c *Controller) Connected() bool {
	return c.isConnected()
}

// DriverName identifies the active backend
func (c *Controller) DriverName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.driver.Name()
}

// SetDelay sets the seconds-per-move used to derive joint speeds
func (c *Controller) SetDelay(seconds float64) error {
	if !c.cfg.Limits.Delay.Contains(seconds) {
		return fmt.Errorf("%w: delay %.1fs outside %.1f..%.1f",
			ErrOutOfRange, seconds, c.cfg.Limits.Delay.Min, c.cfg.Limits.Delay.Max)
	}
	c.mu.Lock()
	c.delay = seconds
	c.mu.Unlock()
	return nil
}

// Delay returns the current seconds-per-move
func (c *Controller) Delay() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delay
}

// Move drives one joint to value (degrees; millimeters command the gripper
// onto axis 6). The joint's speed is the distance over the current delay,
// clamped to the speed envelope.
func (c *Controller) Move(ctx context.Context, joint Joint, value float64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.isConnected() {
		return ErrNotConnected
	}
	axis, ok := AxisIndex(joint)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJoint, joint)
	}
	limits, ok := c.cfg.Limits.Joints[joint]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJoint, joint)
	}
	if !limits.Contains(value) {
		return fmt.Errorf("%w: joint %q target %.1f outside %.1f..%.1f",
			ErrOutOfRange, joint, value, limits.Min, limits.Max)
	}

	c.mu.RLock()
	driver := c.driver
	target := c.axes
	delay := c.delay
	c.mu.RUnlock()

	from := target[axis]
	target[axis] = value
	speed := c.clampSpeed(math.Abs(value-from) / delay)

	start := time.Now()
	if err := driver.MoveJoints(ctx, target, speed); err != nil {
		return fmt.Errorf("move %s to %.1f: %w", joint, value, err)
	}
	metrics.ObserveMove(string(joint), time.Since(start))

	c.mu.Lock()
	c.axes = target
	if joint == JointGripper {
		c.gripper = value
	}
	c.moves++
	c.history = append(c.history, Move{
		Joint: joint, From: from, To: value, Speed: speed, Delay: delay, At: start,
	})
	if len(c.history) > c.cfg.HistorySize {
		c.history = c.history[len(c.history)-c.cfg.HistorySize:]
	}
	c.mu.Unlock()

	c.log.Debug().
		Str(logging.FieldJoint, string(joint)).
		Float64("from", from).
		Float64("to", value).
		Float64("speed_dps", speed).
		Msg("moved")
	return nil
}

// Home drives the arm to the parked pose
func (c *Controller) Home(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if !c.isConnected() {
		return ErrNotConnected
	}
	return c.home(ctx)
}

// home is called with opMu held
func (c *Controller) home(ctx context.Context) error {
	c.mu.RLock()
	driver := c.driver
	current := c.axes
	delay := c.delay
	c.mu.RUnlock()

	home := Home()
	var dist float64
	for i := range home {
		dist = math.Max(dist, math.Abs(home[i]-current[i]))
	}
	speed := c.clampSpeed(dist / delay)

	if err := driver.MoveJoints(ctx, home, speed); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	c.mu.Lock()
	c.axes = home
	c.gripper = 0
	c.mu.Unlock()
	return nil
}

// State returns a snapshot; it never blocks on an in-flight movement
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	joints := map[Joint]float64{
		JointBase:     c.axes[0],
		JointShoulder: c.axes[1],
		JointElbow:    c.axes[2],
		JointWrist1:   c.axes[3],
		JointWrist2:   c.axes[4],
		JointWrist3:   c.axes[5],
		JointGripper:  c.gripper,
	}
	name := ""
	if c.driver != nil {
		name = c.driver.Name()
	}
	return State{
		Connected: c.connected,
		Driver:    name,
		Axes:      c.axes,
		Joints:    joints,
		Gripper:   c.gripper,
		Delay:     c.delay,
		Moves:     c.moves,
	}
}

// History returns the recorded moves, oldest first
func (c *Controller) History() []Move {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Move, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Controller) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Controller) clampSpeed(s float64) float64 {
	if s < c.cfg.Limits.Speed.Min {
		return c.cfg.Limits.Speed.Min
	}
	if s > c.cfg.Limits.Speed.Max {
		return c.cfg.Limits.Speed.Max
	}
	return s
}
