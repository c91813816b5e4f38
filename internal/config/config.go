// Package config loads and validates the optional .execgate.yaml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory when no
// explicit path is given.
const FileName = ".execgate.yaml"

// Environment overrides, applied after the file is parsed.
const (
	EnvPort     = "PORT"
	EnvShell    = "EXECGATE_SHELL"
	EnvLogLevel = "EXECGATE_LOG_LEVEL"
)

// Default values for gateway configuration.
const (
	DefaultPort             = 3000
	DefaultShell            = "/bin/sh"
	DefaultTimeout          = 60 * time.Second
	DefaultMaxOutput        = 1 << 20 // 1 MB
	DefaultMaxConcurrent    = 16
	DefaultMaxQueue         = 64
	DefaultOutputPreference = "stdout_then_stderr"
	DefaultHistoryCapacity  = 64
	DefaultHistoryKeep      = 1000
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
)

// Config holds the parsed configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version          int           `yaml:"version"`
	RawPort          int           `yaml:"port"`
	RawShell         string        `yaml:"shell"`
	Dir              string        `yaml:"dir"`        // working directory for commands
	RawTimeout       string        `yaml:"timeout"`    // e.g. "30s", "0" disables the deadline
	RawMaxOutput     int           `yaml:"max_output"` // bytes per stream
	RawMaxConcurrent int           `yaml:"max_concurrent"`
	RawMaxQueue      *int          `yaml:"max_queue"` // nil means default, 0 means no waiting
	OutputPreference string        `yaml:"output_preference"`
	Allow            []string      `yaml:"allow"` // program allow-list; empty allows everything
	CorsOrigins      []string      `yaml:"cors_origins"`
	History          HistoryConfig `yaml:"history"`
	Log              LogConfig     `yaml:"log"`
}

// HistoryConfig controls the execution record store.
type HistoryConfig struct {
	Capacity int    `yaml:"capacity"` // in-memory LRU size
	Dir      string `yaml:"dir"`      // on-disk location; empty keeps history in memory only
	Keep     int    `yaml:"keep"`     // records retained on disk
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// Port returns the configured listen port or the default.
func (c *Config) Port() int {
	if c.RawPort > 0 {
		return c.RawPort
	}
	return DefaultPort
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port())
}

// Shell returns the configured shell or the default.
func (c *Config) Shell() string {
	if c.RawShell != "" {
		return c.RawShell
	}
	return DefaultShell
}

// Timeout returns the configured per-command deadline or the default.
// An explicit "0" disables the deadline.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout == "0" {
		return 0
	}
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// MaxConcurrent returns the number of commands allowed to run at once.
func (c *Config) MaxConcurrent() int {
	if c.RawMaxConcurrent > 0 {
		return c.RawMaxConcurrent
	}
	return DefaultMaxConcurrent
}

// MaxQueue returns how many requests may wait for a free slot.
func (c *Config) MaxQueue() int {
	if c.RawMaxQueue != nil && *c.RawMaxQueue >= 0 {
		return *c.RawMaxQueue
	}
	return DefaultMaxQueue
}

// Preference returns the output preference name, falling back to the default.
func (c *Config) Preference() string {
	if c.OutputPreference != "" {
		return c.OutputPreference
	}
	return DefaultOutputPreference
}

// HistoryCapacity returns the LRU capacity for execution records.
func (c *Config) HistoryCapacity() int {
	if c.History.Capacity > 0 {
		return c.History.Capacity
	}
	return DefaultHistoryCapacity
}

// HistoryKeep returns how many records are retained on disk.
func (c *Config) HistoryKeep() int {
	if c.History.Keep > 0 {
		return c.History.Keep
	}
	return DefaultHistoryKeep
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return DefaultLogLevel
}

// LogFormat returns the configured log format or the default.
func (c *Config) LogFormat() string {
	if c.Log.Format != "" {
		return c.Log.Format
	}
	return DefaultLogFormat
}

// Validate reports values that cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.Preference() {
	case "stdout_then_stderr", "stdout", "combined":
	default:
		return fmt.Errorf("invalid output_preference %q", c.OutputPreference)
	}
	switch c.LogFormat() {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}
	if c.RawTimeout != "" && c.RawTimeout != "0" {
		if _, err := time.ParseDuration(c.RawTimeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.RawTimeout, err)
		}
	}
	if c.RawPort < 0 || c.RawPort > 65535 {
		return fmt.Errorf("invalid port %d", c.RawPort)
	}
	return nil
}

// LoadResult holds the parsed config and the file it came from.
type LoadResult struct {
	Config *Config
	Path   string // empty when no file was found
}

// Load reads the config file at path. When path is empty, FileName is
// looked up in dir; if it does not exist a default Config is returned.
// Environment overrides are applied in both cases.
func Load(dir, path string) (*LoadResult, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		path = ""
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

func applyEnv(cfg *Config) error {
	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parsing %s=%q: %w", EnvPort, raw, err)
		}
		cfg.RawPort = port
	}
	if v := strings.TrimSpace(os.Getenv(EnvShell)); v != "" {
		cfg.RawShell = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	return nil
}
