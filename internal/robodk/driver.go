package robodk

import "context"

// Driver adapts a station client to the controller's motion interface
type Driver struct {
	client *Client
}

// NewDriver wraps the client for use as a motion backend
func NewDriver(client *Client) *Driver {
	return &Driver{client: client}
}

// Connect establishes the station session
func (d *Driver) Connect(ctx context.Context) error {
	return d.client.Connect(ctx)
}

// Disconnect ends the station session
func (d *Driver) Disconnect() error {
	return d.client.Close()
}

// MoveJoints drives all six axes to target at the given speed in deg/s
func (d *Driver) MoveJoints(ctx context.Context, target [6]float64, speed float64) error {
	return d.client.MoveJoints(ctx, target, speed)
}

// Joints reports the station's current axis values
func (d *Driver) Joints(ctx context.Context) ([6]float64, error) {
	return d.client.Joints(ctx)
}

// Name identifies the backend in state snapshots and logs
func (d *Driver) Name() string {
	return "robodk"
}
