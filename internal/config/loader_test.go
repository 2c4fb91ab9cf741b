package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile drops content into a fresh temp dir and returns the path
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_OverridesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `log_level: debug
robodk:
  host: 10.0.0.5
commands:
  base:
    min: -90
    max: 90
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "10.0.0.5", cfg.RoboDK.Host)

	// untouched values keep their defaults
	assert.Equal(t, 20500, cfg.RoboDK.Port)
	assert.Equal(t, HistorySQLite, cfg.History.Backend)
	assert.Len(t, cfg.Station.Robot.Joints, 6)

	profile := cfg.Profile()
	base, ok := profile.Lookup("base")
	require.True(t, ok)
	assert.Equal(t, -90, base.Min)
	assert.Equal(t, 90, base.Max)

	speed, ok := profile.Lookup("speed")
	require.True(t, ok)
	assert.Equal(t, 1, speed.Min)
	assert.Equal(t, 60, speed.Max)
}

func TestLoad_CommandOverrideDropsAliases(t *testing.T) {
	// a command listed in the file replaces the default entry wholesale,
	// so an override without aliases sheds the Spanish alias too
	path := writeConfigFile(t, `commands:
  gripper:
    min: 0
    max: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	gripper, ok := cfg.Profile().Lookup("gripper")
	require.True(t, ok)
	assert.Equal(t, 60, gripper.Max)
	assert.Empty(t, gripper.Aliases)
	assert.NotContains(t, cfg.Profile().Aliases(), "garra")
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "load config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, `log_level: "debug
`)

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `history:
  backend: redis
`)

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "history.backend")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "localhost:8080", cfg.API.Listen)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault_PresentFile(t *testing.T) {
	path := writeConfigFile(t, "log_level: warn\n")

	cfg, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestDefaultPath_NotEmpty(t *testing.T) {
	assert.NotEmpty(t, DefaultPath())
}
