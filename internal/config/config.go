// Package config loads the runtime configuration of the eventsheet CLI.
//
// The file is searched in order: an explicit path, $EVENTSHEET_CONFIG,
// ~/.config/eventsheet/config.yaml, ./eventsheet.yaml. When none exists the
// embedded defaults apply. Unknown keys are rejected.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding a config path.
const EnvVar = "EVENTSHEET_CONFIG"

//go:embed defaults.yaml
var defaultYAML []byte

// Config is the runtime configuration.
type Config struct {
	TickRate       float64   `yaml:"tick_rate"`
	MaxSteps       int       `yaml:"max_steps"`
	StrictCoercion bool      `yaml:"strict_coercion"`
	DB             string    `yaml:"db"`
	Log            LogConfig `yaml:"log"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// LogConfig configures the slog handler installed by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text, json or pretty; empty picks by terminal
	File   string `yaml:"file"`   // rotated log file, empty for stderr
}

// Default returns the embedded default configuration.
func Default() Config {
	cfg, err := parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Loader resolves the config file. The zero value uses the process
// environment and home directory.
type Loader struct {
	Getenv  func(string) string
	HomeDir func() (string, error)
}

// Load finds and reads the config file. An explicit path must exist; the
// implicit locations are skipped when missing.
func Load(explicit string) (Config, error) {
	return Loader{}.Load(explicit)
}

// Load finds and reads the config file using l's environment.
func (l Loader) Load(explicit string) (Config, error) {
	if explicit != "" {
		return ReadFile(explicit)
	}
	for _, path := range l.candidates() {
		cfg, err := ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

func (l Loader) candidates() []string {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	homeDir := l.HomeDir
	if homeDir == nil {
		homeDir = os.UserHomeDir
	}

	var paths []string
	if p := getenv(EnvVar); p != "" {
		paths = append(paths, p)
	}
	if home, err := homeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "eventsheet", "config.yaml"))
	}
	return append(paths, "eventsheet.yaml")
}

// ReadFile reads one config file. Keys absent from the file keep their
// default values.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes config YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	var cfg Config
	err := decode(data, &cfg)
	return cfg, err
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ValidateTickRate rejects rates that are negative, NaN or infinite.
func ValidateTickRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return fmt.Errorf("must be a finite non-negative number, got %v", rate)
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if err := ValidateTickRate(c.TickRate); err != nil {
		return fmt.Errorf("tick_rate %w", err)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", c.MaxSteps)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json", "pretty":
	default:
		return fmt.Errorf("log.format must be text, json or pretty, got %q", c.Log.Format)
	}
	return nil
}
