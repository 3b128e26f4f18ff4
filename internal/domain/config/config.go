// Package config provides the runner configuration domain model.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/probelab/benchforge/internal/domain/experiment"
)

var (
	// ErrInvalidConfiguration is returned when configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrToolNotFound is returned when a required toolchain binary is
	// not found on the system.
	ErrToolNotFound = errors.New("tool not found")
)

// Requirement maps a module import path needed by synthesized harnesses
// to a local source directory.
type Requirement struct {
	Path string `yaml:"path"`
	Dir  string `yaml:"dir"`
}

// Harness configures how harness modules are built.
type Harness struct {
	// GoBin is the Go toolchain binary. Empty means "go" from PATH.
	GoBin string `yaml:"go_bin,omitempty"`

	// Precompiled points at an ahead-of-time compiled harness binary.
	// When set, the toolchain builder is bypassed entirely.
	Precompiled string `yaml:"precompiled,omitempty"`

	// Requires lists the modules synthesized harness source imports.
	Requires []Requirement `yaml:"requires,omitempty"`
}

// Runner configures scheduling defaults for benchmark runs.
type Runner struct {
	// Mode is the default scheduling mode: sequential, parallel, or ramp.
	Mode string `yaml:"mode"`

	// Ramp holds the default sweep parameters for ramp mode.
	Ramp experiment.Ramp `yaml:"ramp,omitempty"`

	// ProcessTimeout bounds one benchmark process. Zero means the
	// listener default.
	ProcessTimeout time.Duration `yaml:"process_timeout,omitempty"`
}

// ModeValue translates the configured mode into the scheduling domain.
func (r Runner) ModeValue() experiment.Mode {
	return experiment.Mode{Kind: experiment.ModeKind(r.Mode), Ramp: r.Ramp}
}

// History configures the persisted run history.
type History struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `yaml:"path,omitempty"`

	// Keep is how many runs Prune retains, newest first.
	Keep int `yaml:"keep,omitempty"`
}

// Log configures structured logging.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Config is the full benchforge runner configuration.
type Config struct {
	Log     Log     `yaml:"log"`
	Runner  Runner  `yaml:"runner"`
	Harness Harness `yaml:"harness"`
	History History `yaml:"history"`
}

// Default returns the configuration used when no file is given: info
// logging, sequential scheduling, history kept under ./data.
func Default() *Config {
	return &Config{
		Log:    Log{Level: "info"},
		Runner: Runner{Mode: string(experiment.Sequential)},
		History: History{
			Path: filepath.Join(".", "data", "benchforge.db"),
			Keep: 100,
		},
	}
}

// Load reads and validates a YAML configuration file. Unknown keys are
// rejected so typos surface instead of silently falling back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfiguration, path, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfiguration, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's internal consistency.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfiguration, c.Log.Level)
	}

	if err := c.Runner.ModeValue().Validate(); err != nil {
		return fmt.Errorf("%w: runner mode: %v", ErrInvalidConfiguration, err)
	}
	if c.Runner.ProcessTimeout < 0 {
		return fmt.Errorf("%w: negative process timeout", ErrInvalidConfiguration)
	}

	for _, req := range c.Harness.Requires {
		if req.Path == "" || req.Dir == "" {
			return fmt.Errorf("%w: harness requirement needs both path and dir", ErrInvalidConfiguration)
		}
	}

	if c.History.Keep < 0 {
		return fmt.Errorf("%w: negative history retention", ErrInvalidConfiguration)
	}
	return nil
}
