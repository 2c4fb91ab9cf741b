// Package robot owns the joint state machine for the six-axis arm: soft
// limits, speed derivation from the per-move delay, gripper mapping onto
// axis 6, and bounded move history. Motion itself is delegated to a Driver,
// either the in-process simulator or the RoboDK bridge.
package robot

import (
	"context"
	"time"
)

// NumAxes is the axis count of the arm
const NumAxes = 6

// Joint names one commandable articulation
type Joint string

const (
	JointBase     Joint = "base"
	JointShoulder Joint = "shoulder"
	JointElbow    Joint = "elbow"
	JointWrist1   Joint = "wrist1"
	JointWrist2   Joint = "wrist2"
	JointWrist3   Joint = "wrist3"
	// JointGripper is the 2F-85 opening; it actuates axis 6
	JointGripper Joint = "gripper"
)

// Joints lists every commandable joint in axis order, gripper last
func Joints() []Joint {
	return []Joint{
		JointBase, JointShoulder, JointElbow,
		JointWrist1, JointWrist2, JointWrist3, JointGripper,
	}
}

// AxisIndex returns the axis driven by the joint
func AxisIndex(j Joint) (int, bool) {
	switch j {
	case JointBase:
		return 0, true
	case JointShoulder:
		return 1, true
	case JointElbow:
		return 2, true
	case JointWrist1:
		return 3, true
	case JointWrist2:
		return 4, true
	case JointWrist3, JointGripper:
		return 5, true
	default:
		return 0, false
	}
}

// Driver moves the physical or simulated arm. Implementations must be safe
// for sequential use by one controller; the controller serializes calls.
type Driver interface {
	// Connect establishes the session with the motion backend
	Connect(ctx context.Context) error
	// Disconnect tears the session down
	Disconnect() error
	// MoveJoints drives all six axes to target at the given speed in deg/s
	MoveJoints(ctx context.Context, target [NumAxes]float64, speed float64) error
	// Joints reports the backend's current axis values
	Joints(ctx context.Context) ([NumAxes]float64, error)
	// Name identifies the backend in state snapshots and logs
	Name() string
}

// Move records one commanded movement for the history ring
type Move struct {
	Joint Joint     `json:"joint"`
	From  float64   `json:"from"`
	To    float64   `json:"to"`
	Speed float64   `json:"speed_dps"`
	Delay float64   `json:"delay_s"`
	At    time.Time `json:"at"`
}

// State is a controller snapshot safe to hand across goroutines
type State struct {
	Connected bool              `json:"connected"`
	Driver    string            `json:"driver,omitempty"`
	Axes      [NumAxes]float64  `json:"axes"`
	Joints    map[Joint]float64 `json:"joints"`
	Gripper   float64           `json:"gripper_mm"`
	Delay     float64           `json:"delay_s"`
	Moves     int               `json:"moves"`
}

// Home is the parked pose the controller drives to after connecting
func Home() [NumAxes]float64 {
	return [NumAxes]float64{0, 0, 0, 0, 90, 0}
}
