package svclaunch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Log formats accepted by Config.LogFormat
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the file form of the launcher settings.
// Every field is optional; the zero Config reproduces the legacy launcher.
type Config struct {
	// ServicesRoot is the services root; empty means <launcher_directory>/s
	ServicesRoot string `yaml:"services_root"`
	// Shell is the startup script interpreter
	Shell string `yaml:"shell"`
	// RunAs is the account children run as; empty inherits the launcher's
	RunAs string `yaml:"run_as"`
	// RecordFile receives one JSON line per spawn; empty disables records
	RecordFile string `yaml:"record_file"`
	// Watch keeps the launcher running and starts services as they appear
	Watch bool `yaml:"watch"`
	// FailFast stops at the first spawn failure
	FailFast bool `yaml:"fail_fast"`
	// Detach places children in their own process group
	Detach *bool `yaml:"detach,omitempty"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the settings used when no config file is given
func DefaultConfig() *Config {
	return &Config{
		Shell:     DefaultShell,
		LogLevel:  "info",
		LogFormat: LogFormatText,
	}
}

// LoadConfig reads a YAML config file over DefaultConfig.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks enumerated fields
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q (want %s or %s)", c.LogFormat, LogFormatText, LogFormatJSON)
	}
	return nil
}

// SlogLevel parses LogLevel
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// DetachEnabled reports the effective detach setting, true by default
func (c *Config) DetachEnabled() bool {
	return c.Detach == nil || *c.Detach
}

// Options converts the config into launcher options
func (c *Config) Options() []LauncherOption {
	opts := []LauncherOption{
		WithShell(c.Shell),
		WithRunAs(ParseRunAs(c.RunAs)),
		WithFailFast(c.FailFast),
		WithDetach(c.DetachEnabled()),
	}
	if c.RecordFile != "" {
		opts = append(opts, WithRecorder(NewFileRecorder(c.RecordFile)))
	}
	return opts
}

// Clone creates a deep copy of the Config
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	if c.Detach != nil {
		detach := *c.Detach
		clone.Detach = &detach
	}
	return &clone
}
