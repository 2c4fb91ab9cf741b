package robodk

import (
	"net"
	"strconv"
	"sync"
)

// MockStation provides a configurable in-process station bridge for testing.
// It listens on a loopback TCP port and speaks the framed protocol the
// client expects.
type MockStation struct {
	ln net.Listener
	wg sync.WaitGroup

	mu              sync.Mutex
	conns           []net.Conn
	apiVersion      string
	robots          map[string]int32
	tools           map[string]int32
	joints          [6]float64
	speed           float64
	moveStatus      int32
	rejectHandshake bool
	moves           [][6]float64
	stops           int
}

// NewMockStation starts the mock on an ephemeral loopback port
func NewMockStation() (*MockStation, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	m := &MockStation{
		ln:         ln,
		apiVersion: "5.6.2",
		robots:     map[string]int32{"ABB IRB 120-3/0.6": 101},
		tools:      map[string]int32{"RobotiQ 2F-85": 202},
		joints:     [6]float64{0, 0, 0, 0, 90, 0},
	}
	m.wg.Add(1)
	go m.acceptLoop()
	return m, nil
}

// Close stops the listener and tears down open sessions
func (m *MockStation) Close() {
	m.ln.Close()
	m.mu.Lock()
	for _, c := range m.conns {
		c.Close()
	}
	m.conns = nil
	m.mu.Unlock()
	m.wg.Wait()
}

// Addr returns the host:port the mock listens on
func (m *MockStation) Addr() string {
	return m.ln.Addr().String()
}

// Host returns the mock's listen address for a client Config
func (m *MockStation) Host() string {
	host, _, _ := net.SplitHostPort(m.Addr())
	return host
}

// Port returns the mock's listen port for a client Config
func (m *MockStation) Port() int {
	_, portStr, _ := net.SplitHostPort(m.Addr())
	port, _ := strconv.Atoi(portStr)
	return port
}

// SetAPIVersion overrides the version reported during Connect
func (m *MockStation) SetAPIVersion(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiVersion = v
}

// SetRobotItem registers a robot item under the given name
func (m *MockStation) SetRobotItem(name string, id int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.robots[name] = id
}

// SetToolItem registers a tool item under the given name
func (m *MockStation) SetToolItem(name string, id int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[name] = id
}

// ClearItems removes every robot and tool item
func (m *MockStation) ClearItems() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.robots = map[string]int32{}
	m.tools = map[string]int32{}
}

// SetJoints sets the pose reported by joint reads
func (m *MockStation) SetJoints(j [6]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joints = j
}

// SetMoveStatus sets the status code returned for moves; nonzero rejects
func (m *MockStation) SetMoveStatus(status int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveStatus = status
}

// RejectHandshake makes the mock answer the handshake with a refusal
func (m *MockStation) RejectHandshake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectHandshake = true
}

// Moves returns the targets of every accepted move
func (m *MockStation) Moves() [][6]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][6]float64, len(m.moves))
	copy(out, m.moves)
	return out
}

// Stops returns how many stop commands arrived
func (m *MockStation) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Speed returns the last speed applied
func (m *MockStation) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

func (m *MockStation) acceptLoop() {
	defer m.wg.Done()
	for {
		conn, err := m.ln.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.mu.Unlock()
		m.wg.Add(1)
		go m.serve(conn)
	}
}

func (m *MockStation) serve(conn net.Conn) {
	defer m.wg.Done()
	defer conn.Close()

	cmd, err := readString(conn)
	if err != nil || cmd != cmdStart {
		return
	}
	m.mu.Lock()
	reject := m.rejectHandshake
	m.mu.Unlock()
	if reject {
		writeString(conn, "REFUSED")
		return
	}
	if err := writeString(conn, respReady); err != nil {
		return
	}

	for {
		cmd, err := readString(conn)
		if err != nil {
			return
		}
		if err := m.dispatch(conn, cmd); err != nil {
			return
		}
	}
}

func (m *MockStation) dispatch(conn net.Conn, cmd string) error {
	switch cmd {
	case cmdVersion:
		m.mu.Lock()
		v := m.apiVersion
		m.mu.Unlock()
		return writeString(conn, v)

	case cmdGetItem:
		name, err := readString(conn)
		if err != nil {
			return err
		}
		itemType, err := readInt32(conn)
		if err != nil {
			return err
		}
		m.mu.Lock()
		var id int32
		switch itemType {
		case itemTypeRobot:
			id = m.robots[name]
		case itemTypeTool:
			id = m.tools[name]
		}
		m.mu.Unlock()
		return writeInt32(conn, id)

	case cmdGetJoints:
		if _, err := readInt32(conn); err != nil {
			return err
		}
		m.mu.Lock()
		joints := m.joints
		m.mu.Unlock()
		return writeFloats(conn, joints[:])

	case cmdMoveJ:
		if _, err := readInt32(conn); err != nil {
			return err
		}
		vals, err := readFloats(conn)
		if err != nil {
			return err
		}
		m.mu.Lock()
		status := m.moveStatus
		if status == moveStatusOK && len(vals) == len(m.joints) {
			var target [6]float64
			copy(target[:], vals)
			m.joints = target
			m.moves = append(m.moves, target)
		}
		m.mu.Unlock()
		return writeInt32(conn, status)

	case cmdSetSpeed:
		if _, err := readInt32(conn); err != nil {
			return err
		}
		vals, err := readFloats(conn)
		if err != nil {
			return err
		}
		m.mu.Lock()
		if len(vals) > 0 {
			m.speed = vals[0]
		}
		m.mu.Unlock()
		return writeInt32(conn, moveStatusOK)

	case cmdStop:
		if _, err := readInt32(conn); err != nil {
			return err
		}
		m.mu.Lock()
		m.stops++
		m.mu.Unlock()
		return writeInt32(conn, moveStatusOK)

	default:
		return writeInt32(conn, -1)
	}
}
