package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load reads and validates the YAML file at path. Values the file does not
// set keep their defaults; the commands and joints maps merge by key, with
// a key present in the file replacing the default entry wholesale.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %q: %w", path, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("parse config from %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed for %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as the default
// configuration. It backs the implicit per-user path; a file the user named
// explicitly should stay an error when absent.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// DefaultPath is the per-user config location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "armlex.yaml"
	}
	return filepath.Join(dir, "armlex", "config.yaml")
}
