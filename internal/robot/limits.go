package robot

import "fmt"

// Limits is an inclusive range in degrees (seconds for the delay range)
type Limits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range
func (l Limits) Contains(v float64) bool {
	return v >= l.Min && v <= l.Max
}

// SoftLimits holds every range the controller enforces before a command
// reaches the driver.
type SoftLimits struct {
	Joints map[Joint]Limits `json:"joints"`
	// Delay bounds the seconds-per-move setting
	Delay Limits `json:"delay"`
	// Speed clamps the derived joint speed in deg/s
	Speed Limits `json:"speed"`
}

// DefaultLimits returns the IRB 120 + 2F-85 station envelope
func DefaultLimits() SoftLimits {
	return SoftLimits{
		Joints: map[Joint]Limits{
			JointBase:     {Min: -360, Max: 360},
			JointShoulder: {Min: -180, Max: 180},
			JointElbow:    {Min: -180, Max: 180},
			JointWrist1:   {Min: -160, Max: 160},
			JointWrist2:   {Min: -120, Max: 120},
			JointWrist3:   {Min: -400, Max: 400},
			// gripper targets are the 2F-85 opening in millimeters
			JointGripper: {Min: 0, Max: 85},
		},
		Delay: Limits{Min: 1, Max: 60},
		Speed: Limits{Min: 1, Max: 150},
	}
}

// Validate checks the limit set covers every joint with sane ranges
func (s SoftLimits) Validate() error {
	for _, j := range Joints() {
		l, ok := s.Joints[j]
		if !ok {
			return fmt.Errorf("no limits for joint %q", j)
		}
		if l.Min > l.Max {
			return fmt.Errorf("joint %q: min %.1f exceeds max %.1f", j, l.Min, l.Max)
		}
	}
	if s.Delay.Min <= 0 || s.Delay.Min > s.Delay.Max {
		return fmt.Errorf("delay range %.1f..%.1f is not usable", s.Delay.Min, s.Delay.Max)
	}
	if s.Speed.Min <= 0 || s.Speed.Min > s.Speed.Max {
		return fmt.Errorf("speed range %.1f..%.1f is not usable", s.Speed.Min, s.Speed.Max)
	}
	return nil
}
