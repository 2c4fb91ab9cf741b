// Package robodk speaks the RoboDK station link over TCP. There is no Go
// SDK for the station API, so the client implements the framed protocol
// directly: handshake, version gate, item lookup by candidate names, and the
// joint-motion commands the executor needs.
package robodk

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog"

	"github.com/mbeltran/armlex/internal/logging"
)

// Connection defaults matching the station bridge's stock configuration
const (
	DefaultHost    = "localhost"
	DefaultPort    = 20500
	DefaultTimeout = 5 * time.Second
	// DefaultMoveTimeout bounds the MoveJ status read; the station answers
	// only once the motion finishes, so this must cover the slowest move
	DefaultMoveTimeout = 2 * time.Minute
)

// DefaultRobotNames are the station item names tried in order when locating
// the arm.
var DefaultRobotNames = []string{
	"ABB IRB 120-3/0.6",
	"IRB 120",
	"ABB IRB120",
	"IRB120-3/0.6",
	"Robot",
}

// DefaultGripperNames are the candidate names for the tool item. The gripper
// is optional; a station without one still connects.
var DefaultGripperNames = []string{
	"RobotiQ 2F-85",
	"Robotiq 2F-85 Gripper (Open)",
	"2F-85",
	"Gripper",
	"RobotiQ",
}

// Config parameterizes a station session
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
	// MoveTimeout bounds how long one joint move may take end to end
	MoveTimeout time.Duration
	// MinVersion gates the station's reported API version; empty disables
	// the check
	MinVersion   string
	RobotNames   []string
	GripperNames []string
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MoveTimeout <= 0 {
		c.MoveTimeout = DefaultMoveTimeout
	}
	if len(c.RobotNames) == 0 {
		c.RobotNames = DefaultRobotNames
	}
	if len(c.GripperNames) == 0 {
		c.GripperNames = DefaultGripperNames
	}
	return c
}

// Addr returns the dial target
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client is one station session. All exchanges are serialized; the zero
// value is not usable, construct with New.
type Client struct {
	cfg Config
	log zerolog.Logger

	mu        sync.Mutex
	conn      net.Conn
	version   string
	robotID   int32
	robotName string
	gripperID int32
}

// New returns a disconnected client
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg.withDefaults(),
		log: logging.WithComponent("robodk"),
	}
}

// Connect dials the station, performs the handshake, verifies the API
// version, and resolves the robot (and, when present, gripper) items.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr())
	if err != nil {
		return c.classify("connect", err)
	}
	c.conn = conn

	if err := c.handshake(ctx); err != nil {
		c.teardown()
		return err
	}
	if err := c.checkVersion(ctx); err != nil {
		c.teardown()
		return err
	}
	if err := c.resolveItems(ctx); err != nil {
		c.teardown()
		return err
	}

	c.log.Info().
		Str(logging.FieldAddr, c.cfg.Addr()).
		Str("api_version", c.version).
		Str("robot_item", c.robotName).
		Bool("gripper", c.gripperID != 0).
		Msg("station session established")
	return nil
}

// Close ends the session. Safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardown()
}

// Connected reports whether a session is up
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Version returns the API version reported during Connect
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// RobotItem returns the station item name the arm resolved to
func (c *Client) RobotItem() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.robotName
}

// MoveJoints drives the arm to target at the given speed in deg/s
func (c *Client) MoveJoints(ctx context.Context, target [6]float64, speed float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return apiErr("move", ErrNotConnected, "", nil)
	}
	if speed > 0 {
		if err := c.setSpeed(ctx, speed); err != nil {
			return err
		}
	}

	if err := c.begin(ctx, "move"); err != nil {
		return err
	}
	if err := writeString(c.conn, cmdMoveJ); err != nil {
		return c.classify("move", err)
	}
	if err := writeInt32(c.conn, c.robotID); err != nil {
		return c.classify("move", err)
	}
	if err := writeFloats(c.conn, target[:]); err != nil {
		return c.classify("move", err)
	}
	// The status arrives when the motion finishes, so the read gets the
	// motion budget rather than the exchange timeout.
	deadline := time.Now().Add(c.cfg.MoveTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return c.classify("move", err)
	}
	status, err := readInt32(c.conn)
	if err != nil {
		return c.classify("move", err)
	}
	if status != moveStatusOK {
		return apiErr("move", ErrMoveRejected, fmt.Sprintf("status %d", status), nil)
	}
	return nil
}

// Joints reads the arm's current axis values
func (c *Client) Joints(ctx context.Context) ([6]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [6]float64
	if c.conn == nil {
		return out, apiErr("joints", ErrNotConnected, "", nil)
	}
	if err := c.begin(ctx, "joints"); err != nil {
		return out, err
	}
	if err := writeString(c.conn, cmdGetJoints); err != nil {
		return out, c.classify("joints", err)
	}
	if err := writeInt32(c.conn, c.robotID); err != nil {
		return out, c.classify("joints", err)
	}
	vals, err := readFloats(c.conn)
	if err != nil {
		return out, c.classify("joints", err)
	}
	if len(vals) != len(out) {
		return out, apiErr("joints", ErrProtocol, fmt.Sprintf("%d axis values", len(vals)), nil)
	}
	copy(out[:], vals)
	return out, nil
}

// Stop aborts the arm's current movement
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return apiErr("stop", ErrNotConnected, "", nil)
	}
	if err := c.begin(ctx, "stop"); err != nil {
		return err
	}
	if err := writeString(c.conn, cmdStop); err != nil {
		return c.classify("stop", err)
	}
	if err := writeInt32(c.conn, c.robotID); err != nil {
		return c.classify("stop", err)
	}
	if _, err := readInt32(c.conn); err != nil {
		return c.classify("stop", err)
	}
	return nil
}

// handshake runs the CMD_START/READY exchange. Called with mu held.
func (c *Client) handshake(ctx context.Context) error {
	if err := c.begin(ctx, "handshake"); err != nil {
		return err
	}
	if err := writeString(c.conn, cmdStart); err != nil {
		return c.classify("handshake", err)
	}
	resp, err := readString(c.conn)
	if err != nil {
		return c.classify("handshake", err)
	}
	if resp != respReady {
		return apiErr("handshake", ErrHandshake, fmt.Sprintf("station answered %q", resp), nil)
	}
	return nil
}

// checkVersion fetches the API version and applies the configured minimum.
// Called with mu held.
func (c *Client) checkVersion(ctx context.Context) error {
	if err := c.begin(ctx, "version"); err != nil {
		return err
	}
	if err := writeString(c.conn, cmdVersion); err != nil {
		return c.classify("version", err)
	}
	reported, err := readString(c.conn)
	if err != nil {
		return c.classify("version", err)
	}
	c.version = reported

	if c.cfg.MinVersion == "" {
		return nil
	}
	min, err := goversion.NewVersion(c.cfg.MinVersion)
	if err != nil {
		return apiErr("version", ErrProtocol, fmt.Sprintf("bad minimum %q", c.cfg.MinVersion), err)
	}
	got, err := goversion.NewVersion(reported)
	if err != nil {
		return apiErr("version", ErrProtocol, fmt.Sprintf("station reported %q", reported), err)
	}
	if got.LessThan(min) {
		return apiErr("version", ErrVersionTooOld,
			fmt.Sprintf("station %s, need >= %s", reported, c.cfg.MinVersion), nil)
	}
	return nil
}

// resolveItems locates the robot and gripper items. Called with mu held.
func (c *Client) resolveItems(ctx context.Context) error {
	for _, name := range c.cfg.RobotNames {
		id, err := c.getItem(ctx, name, itemTypeRobot)
		if err != nil {
			return err
		}
		if id != 0 {
			c.robotID, c.robotName = id, name
			break
		}
		c.log.Debug().Str("item", name).Msg("robot candidate not in station")
	}
	if c.robotID == 0 {
		return apiErr("resolve", ErrItemNotFound,
			fmt.Sprintf("no robot among %v", c.cfg.RobotNames), nil)
	}

	for _, name := range c.cfg.GripperNames {
		id, err := c.getItem(ctx, name, itemTypeTool)
		if err != nil {
			return err
		}
		if id != 0 {
			c.gripperID = id
			break
		}
	}
	if c.gripperID == 0 {
		c.log.Debug().Msg("station has no gripper item, continuing without one")
	}
	return nil
}

// getItem asks the station for an item id; zero means absent. Called with mu
// held.
func (c *Client) getItem(ctx context.Context, name string, itemType int32) (int32, error) {
	if err := c.begin(ctx, "resolve"); err != nil {
		return 0, err
	}
	if err := writeString(c.conn, cmdGetItem); err != nil {
		return 0, c.classify("resolve", err)
	}
	if err := writeString(c.conn, name); err != nil {
		return 0, c.classify("resolve", err)
	}
	if err := writeInt32(c.conn, itemType); err != nil {
		return 0, c.classify("resolve", err)
	}
	id, err := readInt32(c.conn)
	if err != nil {
		return 0, c.classify("resolve", err)
	}
	return id, nil
}

// setSpeed applies the joint speed ahead of a move. Called with mu held.
func (c *Client) setSpeed(ctx context.Context, speed float64) error {
	if err := c.begin(ctx, "speed"); err != nil {
		return err
	}
	if err := writeString(c.conn, cmdSetSpeed); err != nil {
		return c.classify("speed", err)
	}
	if err := writeInt32(c.conn, c.robotID); err != nil {
		return c.classify("speed", err)
	}
	if err := writeFloats(c.conn, []float64{speed}); err != nil {
		return c.classify("speed", err)
	}
	if _, err := readInt32(c.conn); err != nil {
		return c.classify("speed", err)
	}
	return nil
}

// begin applies the per-exchange deadline and surfaces early cancellation.
// Called with mu held and an open conn.
func (c *Client) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return apiErr(op, ErrTimeout, "canceled before send", err)
	}
	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return c.classify(op, err)
	}
	return nil
}

// classify folds a transport error into the sentinel taxonomy
func (c *Client) classify(op string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return apiErr(op, ErrTimeout, "", err)
	}
	return apiErr(op, ErrUnreachable, "", err)
}

// teardown closes and forgets the session. Called with mu held.
func (c *Client) teardown() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.version = ""
	c.robotID = 0
	c.robotName = ""
	c.gripperID = 0
	return err
}
