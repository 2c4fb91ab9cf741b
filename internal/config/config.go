// Package config holds the station file: the command table the analyzer
// enforces, the joint envelope the controller guards, and the session
// parameters for the RoboDK bridge. Everything is YAML with defaults that
// describe the IRB 120 + 2F-85 training cell, so running without a file
// still yields a working setup.
package config

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/mbeltran/armlex/internal/analyzer"
	"github.com/mbeltran/armlex/internal/quad"
	"github.com/mbeltran/armlex/internal/robodk"
	"github.com/mbeltran/armlex/internal/robot"
)

// History backends
const (
	// HistorySQLite persists the run journal in a WAL sqlite file
	HistorySQLite = "sqlite"
	// HistoryMemory keeps the run journal in process memory only
	HistoryMemory = "memory"
)

// Config is the whole station file. The zero value is not usable; start
// from Default or Load.
type Config struct {
	// LogLevel is the minimum log level; empty falls back to the LOG_LEVEL
	// environment variable, then info
	LogLevel string `yaml:"log_level"`

	Station  StationConfig            `yaml:"station"`
	Commands map[string]CommandConfig `yaml:"commands"`
	Executor ExecutorConfig           `yaml:"executor"`
	RoboDK   RoboDKConfig             `yaml:"robodk"`
	History  HistoryConfig            `yaml:"history"`
	API      APIConfig                `yaml:"api"`
	Tracing  TracingConfig            `yaml:"tracing"`
}

// StationConfig names the cell hardware as it appears in the RoboDK
// station tree.
type StationConfig struct {
	Robot   RobotConfig   `yaml:"robot"`
	Gripper GripperConfig `yaml:"gripper"`
}

// RobotConfig identifies the arm and its joint envelope.
type RobotConfig struct {
	// Name is the item name tried first when resolving the arm
	Name string `yaml:"name"`
	// Candidates are fallback item names, tried in order after Name
	Candidates []string `yaml:"candidates"`
	// Joints is the per-joint envelope in degrees
	Joints map[string]RangeConfig `yaml:"joints"`
}

// GripperConfig identifies the tool. Gripper commands address the opening
// in millimeters, so the stroke doubles as the command's upper bound.
type GripperConfig struct {
	Candidates   []string `yaml:"candidates"`
	MaxOpeningMM float64  `yaml:"max_opening_mm"`
}

// RangeConfig is one inclusive range
type RangeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// CommandConfig is one language command: its value range and accepted
// aliases. An entry in the file replaces the default entry of the same
// name wholesale, aliases included.
type CommandConfig struct {
	Min     int      `yaml:"min"`
	Max     int      `yaml:"max"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// ExecutorConfig tunes program execution.
type ExecutorConfig struct {
	// DefaultDelayS is the seconds-per-move in effect before any speed
	// command; it must lie inside the speed command's range
	DefaultDelayS float64 `yaml:"default_delay_s"`
	// LoopPauseMS is the settle pause between repeat iterations
	LoopPauseMS int `yaml:"loop_pause_ms"`
	// MinSpeedDPS and MaxSpeedDPS clamp the joint speed derived from the
	// per-move delay
	MinSpeedDPS float64 `yaml:"min_speed_dps"`
	MaxSpeedDPS float64 `yaml:"max_speed_dps"`
}

// RoboDKConfig parameterizes the station bridge.
type RoboDKConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TimeoutS int    `yaml:"timeout_s"`
	// MoveTimeoutS bounds one joint move end to end
	MoveTimeoutS int `yaml:"move_timeout_s"`
	// MinAPIVersion rejects stations older than this; empty disables the
	// gate
	MinAPIVersion string `yaml:"min_api_version"`
	// FallbackToSim switches to the in-process simulator when the station
	// is unreachable
	FallbackToSim bool `yaml:"fallback_to_sim"`
}

// HistoryConfig selects the run journal backend.
type HistoryConfig struct {
	// Backend is sqlite or memory
	Backend string `yaml:"backend"`
	// Path locates the sqlite file; the memory backend ignores it
	Path string `yaml:"path"`
}

// APIConfig tunes the HTTP server.
type APIConfig struct {
	Listen        string   `yaml:"listen"`
	CORSOrigins   []string `yaml:"cors_origins"`
	MaxConcurrent int      `yaml:"max_concurrent"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	TLSCAPath   string `yaml:"tls_ca_path"`
	TLSInsecure bool   `yaml:"tls_insecure"`
}

// Default returns the built-in configuration for the IRB 120 + 2F-85
// training cell. The command table and joint envelope mirror the analyzer
// and controller defaults, so an absent file changes nothing.
func Default() *Config {
	limits := robot.DefaultLimits()
	joints := map[string]RangeConfig{}
	for _, j := range robot.Joints() {
		if j == robot.JointGripper {
			// the gripper range lives in the gripper section
			continue
		}
		l := limits.Joints[j]
		joints[string(j)] = RangeConfig{Min: l.Min, Max: l.Max}
	}

	commands := map[string]CommandConfig{}
	for _, c := range analyzer.DefaultProfile().Commands {
		commands[c.Name] = CommandConfig{
			Min:     c.Min,
			Max:     c.Max,
			Aliases: append([]string(nil), c.Aliases...),
		}
	}

	return &Config{
		LogLevel: "info",
		Station: StationConfig{
			Robot: RobotConfig{
				Name:       robodk.DefaultRobotNames[0],
				Candidates: append([]string(nil), robodk.DefaultRobotNames[1:]...),
				Joints:     joints,
			},
			Gripper: GripperConfig{
				Candidates:   append([]string(nil), robodk.DefaultGripperNames...),
				MaxOpeningMM: 85,
			},
		},
		Commands: commands,
		Executor: ExecutorConfig{
			DefaultDelayS: 5,
			LoopPauseMS:   800,
			MinSpeedDPS:   limits.Speed.Min,
			MaxSpeedDPS:   limits.Speed.Max,
		},
		RoboDK: RoboDKConfig{
			Host:          robodk.DefaultHost,
			Port:          robodk.DefaultPort,
			TimeoutS:      int(robodk.DefaultTimeout / time.Second),
			MoveTimeoutS:  int(robodk.DefaultMoveTimeout / time.Second),
			FallbackToSim: true,
		},
		History: HistoryConfig{
			Backend: HistorySQLite,
			Path:    "armlex.db",
		},
		API: APIConfig{
			Listen:        "localhost:8080",
			MaxConcurrent: 100,
		},
	}
}

// Profile builds the language profile the analyzer enforces. Command names
// and aliases are lowercased; the language is case-insensitive.
func (c *Config) Profile() analyzer.Profile {
	byName := make(map[string]CommandConfig, len(c.Commands))
	names := make([]string, 0, len(c.Commands))
	for name, cc := range c.Commands {
		lower := strings.ToLower(name)
		if _, dup := byName[lower]; !dup {
			names = append(names, lower)
		}
		byName[lower] = cc
	}
	sort.Strings(names)

	specs := make([]analyzer.CommandSpec, 0, len(names))
	for _, name := range names {
		cc := byName[name]
		var aliases []string
		for _, a := range cc.Aliases {
			aliases = append(aliases, strings.ToLower(a))
		}
		specs = append(specs, analyzer.CommandSpec{
			Name: name, Min: cc.Min, Max: cc.Max, Aliases: aliases,
		})
	}
	return analyzer.Profile{Commands: specs}
}

// SoftLimits builds the envelope the controller guards. The six axes come
// from the station's joint table; the gripper limit is the stroke from the
// gripper section; the delay bounds track the speed command's range.
func (c *Config) SoftLimits() robot.SoftLimits {
	joints := make(map[robot.Joint]robot.Limits, len(c.Station.Robot.Joints)+1)
	for name, r := range c.Station.Robot.Joints {
		joints[robot.Joint(strings.ToLower(name))] = robot.Limits{Min: r.Min, Max: r.Max}
	}
	joints[robot.JointGripper] = robot.Limits{Min: 0, Max: c.Station.Gripper.MaxOpeningMM}

	delay := robot.Limits{Min: 1, Max: 60}
	if cc, ok := c.command(quad.CmdSpeed); ok {
		delay = robot.Limits{Min: float64(cc.Min), Max: float64(cc.Max)}
	}

	return robot.SoftLimits{
		Joints: joints,
		Delay:  delay,
		Speed:  robot.Limits{Min: c.Executor.MinSpeedDPS, Max: c.Executor.MaxSpeedDPS},
	}
}

// RoboDKClient assembles the station session parameters
func (c *Config) RoboDKClient() robodk.Config {
	names := make([]string, 0, len(c.Station.Robot.Candidates)+1)
	if c.Station.Robot.Name != "" {
		names = append(names, c.Station.Robot.Name)
	}
	names = append(names, c.Station.Robot.Candidates...)

	return robodk.Config{
		Host:         c.RoboDK.Host,
		Port:         c.RoboDK.Port,
		Timeout:      time.Duration(c.RoboDK.TimeoutS) * time.Second,
		MoveTimeout:  time.Duration(c.RoboDK.MoveTimeoutS) * time.Second,
		MinVersion:   c.RoboDK.MinAPIVersion,
		RobotNames:   names,
		GripperNames: append([]string(nil), c.Station.Gripper.Candidates...),
	}
}

// LoopPause is the settle pause between repeat iterations
func (c *Config) LoopPause() time.Duration {
	return time.Duration(c.Executor.LoopPauseMS) * time.Millisecond
}

func (c *Config) command(name string) (CommandConfig, bool) {
	for n, cc := range c.Commands {
		if strings.EqualFold(n, name) {
			return cc, true
		}
	}
	return CommandConfig{}, false
}

// Validate checks the configuration is runnable. Load calls it after every
// read, including reloads triggered by the watcher.
func (c *Config) Validate() error {
	if err := c.Profile().Validate(); err != nil {
		return NewConfigError(fmt.Sprintf("commands: %v", err))
	}
	if c.Station.Gripper.MaxOpeningMM <= 0 {
		return NewConfigError("station.gripper.max_opening_mm must be positive")
	}
	limits := c.SoftLimits()
	if err := limits.Validate(); err != nil {
		return NewConfigError(fmt.Sprintf("station: %v", err))
	}
	if !limits.Delay.Contains(c.Executor.DefaultDelayS) {
		return NewConfigError(fmt.Sprintf(
			"executor.default_delay_s %.1f is outside the speed range %.0f..%.0f",
			c.Executor.DefaultDelayS, limits.Delay.Min, limits.Delay.Max))
	}
	if c.Executor.LoopPauseMS < 0 {
		return NewConfigError("executor.loop_pause_ms must not be negative")
	}
	if c.RoboDK.Port < 1 || c.RoboDK.Port > 65535 {
		return NewConfigError("robodk.port must be between 1 and 65535")
	}
	if c.RoboDK.TimeoutS <= 0 {
		return NewConfigError("robodk.timeout_s must be positive")
	}
	if c.RoboDK.MoveTimeoutS <= 0 {
		return NewConfigError("robodk.move_timeout_s must be positive")
	}
	if v := c.RoboDK.MinAPIVersion; v != "" {
		if _, err := goversion.NewVersion(v); err != nil {
			return NewConfigError(fmt.Sprintf("robodk.min_api_version %q is not a version: %v", v, err))
		}
	}
	switch c.History.Backend {
	case HistorySQLite:
		if c.History.Path == "" {
			return NewConfigError("history.path must be set for the sqlite backend")
		}
	case HistoryMemory:
	default:
		return NewConfigError(fmt.Sprintf("history.backend %q is not supported (sqlite or memory)", c.History.Backend))
	}
	if c.API.Listen == "" {
		return NewConfigError("api.listen must be set")
	}
	if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
		return NewConfigError(fmt.Sprintf("api.listen %q is not host:port: %v", c.API.Listen, err))
	}
	if c.API.MaxConcurrent < 1 {
		return NewConfigError("api.max_concurrent must be at least 1")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}
	return nil
}

// ConfigError describes an invalid configuration value
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
