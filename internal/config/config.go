// Package config loads sweep settings from a YAML or JSON file. Every field
// is optional; the Get* methods supply defaults for anything left unset.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/loadsweep/internal/classify"
	"github.com/banshee-data/loadsweep/internal/fixture"
	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/sweep"
)

// Defaults.
const (
	DefaultWorker   = "nvim"
	DefaultFiles    = "0:2000:100"
	DefaultWarmup   = 10
	DefaultDuration = 2.0
	DefaultOutput   = "-"
)

// DefaultWorkerArgs precede the per-point arguments on the worker command line.
var DefaultWorkerArgs = []string{"-l", "benchmark_dir.lua"}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the file form of a sweep. Ranges use "start:stop:stride".
type Config struct {
	Worker     *string  `yaml:"worker,omitempty" json:"worker,omitempty"`
	WorkerArgs []string `yaml:"worker_args,omitempty" json:"worker_args,omitempty"`

	Files    *string  `yaml:"files,omitempty" json:"files,omitempty"`
	Parallel *string  `yaml:"parallel,omitempty" json:"parallel,omitempty"` // defaults to Files
	Warmup   *int     `yaml:"warmup,omitempty" json:"warmup,omitempty"`
	Duration *float64 `yaml:"duration,omitempty" json:"duration,omitempty"` // seconds

	Output *string `yaml:"output,omitempty" json:"output,omitempty"`

	FixtureDir    *string `yaml:"fixture_dir,omitempty" json:"fixture_dir,omitempty"`
	FixturePrefix *string `yaml:"fixture_prefix,omitempty" json:"fixture_prefix,omitempty"`
	FixtureExt    *string `yaml:"fixture_ext,omitempty" json:"fixture_ext,omitempty"`

	// KnownErrors extend the built-in failure signatures.
	KnownErrors []classify.Signature `yaml:"known_errors,omitempty" json:"known_errors,omitempty"`

	Database *string `yaml:"database,omitempty" json:"database,omitempty"`

	LogFormat *string `yaml:"log_format,omitempty" json:"log_format,omitempty"`
	LogLevel  *string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// String returns a pointer to v, for setting fields from flags.
func String(v string) *string { return ptrString(v) }

// Int returns a pointer to v.
func Int(v int) *int { return ptrInt(v) }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return ptrFloat64(v) }

// Load reads a configuration file. The extension selects nothing but is
// checked: .yaml, .yml and .json are accepted (JSON is parsed as YAML).
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("config file must have .yaml, .yml or .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	monitoring.Logf("loaded config from %s", cleanPath)
	return cfg, nil
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Worker != nil && *c.Worker == "" {
		return fmt.Errorf("worker must not be empty")
	}
	if c.Files != nil {
		if _, err := sweep.ParseIntRange(*c.Files); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}
	if c.Parallel != nil {
		if _, err := sweep.ParseIntRange(*c.Parallel); err != nil {
			return fmt.Errorf("parallel: %w", err)
		}
	}
	if c.Warmup != nil && *c.Warmup < 0 {
		return fmt.Errorf("warmup must be non-negative, got %d", *c.Warmup)
	}
	if c.Duration != nil && *c.Duration < 0 {
		return fmt.Errorf("duration must be non-negative, got %g", *c.Duration)
	}
	if c.FixturePrefix != nil && *c.FixturePrefix == "" {
		return fmt.Errorf("fixture_prefix must not be empty")
	}
	for i, s := range c.KnownErrors {
		if s.Outcome == "" || s.Pattern == "" {
			return fmt.Errorf("known_errors[%d]: outcome and pattern are required", i)
		}
		if s.Outcome == classify.OK || s.Outcome == classify.Unrecognized {
			return fmt.Errorf("known_errors[%d]: outcome %q is reserved", i, s.Outcome)
		}
	}
	if c.LogFormat != nil {
		switch *c.LogFormat {
		case "text", "json":
		default:
			return fmt.Errorf("log_format must be text or json, got %q", *c.LogFormat)
		}
	}
	if c.LogLevel != nil {
		if _, ok := monitoring.LookupLevel(*c.LogLevel); !ok {
			return fmt.Errorf("log_level must be debug, info, warn or error, got %q", *c.LogLevel)
		}
	}
	return nil
}

// GetWorker returns the worker executable, default "nvim".
func (c *Config) GetWorker() string {
	if c.Worker == nil {
		return DefaultWorker
	}
	return *c.Worker
}

// GetWorkerArgs returns the fixed worker arguments. An explicitly empty list
// is kept empty.
func (c *Config) GetWorkerArgs() []string {
	if c.WorkerArgs == nil {
		return append([]string(nil), DefaultWorkerArgs...)
	}
	return append([]string(nil), c.WorkerArgs...)
}

// GetFiles returns the file-count range.
func (c *Config) GetFiles() sweep.IntRange {
	s := DefaultFiles
	if c.Files != nil {
		s = *c.Files
	}
	r, err := sweep.ParseIntRange(s)
	if err != nil {
		r, _ = sweep.ParseIntRange(DefaultFiles)
	}
	return r
}

// GetParallel returns the parallelism range, which defaults to the file range.
func (c *Config) GetParallel() sweep.IntRange {
	if c.Parallel == nil {
		return c.GetFiles()
	}
	r, err := sweep.ParseIntRange(*c.Parallel)
	if err != nil {
		return c.GetFiles()
	}
	return r
}

// GetWarmup returns the warm-up iteration count.
func (c *Config) GetWarmup() int {
	if c.Warmup == nil {
		return DefaultWarmup
	}
	return *c.Warmup
}

// GetDuration returns the measurement duration in seconds.
func (c *Config) GetDuration() float64 {
	if c.Duration == nil {
		return DefaultDuration
	}
	return *c.Duration
}

// GetOutput returns the report location.
func (c *Config) GetOutput() string {
	if c.Output == nil || *c.Output == "" {
		return DefaultOutput
	}
	return *c.Output
}

// GetFixtureDir returns the parent directory for fixture directories.
func (c *Config) GetFixtureDir() string {
	if c.FixtureDir == nil || *c.FixtureDir == "" {
		return fixture.DefaultBaseDir
	}
	return *c.FixtureDir
}

// GetFixturePrefix returns the fixture directory name prefix.
func (c *Config) GetFixturePrefix() string {
	if c.FixturePrefix == nil {
		return fixture.DefaultPrefix
	}
	return *c.FixturePrefix
}

// GetFixtureExt returns the fixture file extension.
func (c *Config) GetFixtureExt() string {
	if c.FixtureExt == nil {
		return fixture.DefaultExt
	}
	return *c.FixtureExt
}

// GetDatabase returns the sweep history database path; empty disables it.
func (c *Config) GetDatabase() string {
	if c.Database == nil {
		return ""
	}
	return *c.Database
}

// GetLog returns the logging configuration.
func (c *Config) GetLog() monitoring.Config {
	out := monitoring.Config{Format: "text", Level: "info"}
	if c.LogFormat != nil {
		out.Format = *c.LogFormat
	}
	if c.LogLevel != nil {
		out.Level = *c.LogLevel
	}
	return out
}

// Plan builds the sweep plan.
func (c *Config) Plan() sweep.Plan {
	return sweep.Plan{
		Files:    c.GetFiles(),
		Parallel: c.GetParallel(),
		Warmup:   c.GetWarmup(),
		Duration: c.GetDuration(),
	}
}

// Classifier builds the failure classifier with any extra signatures.
func (c *Config) Classifier() *classify.Classifier {
	return classify.New(c.KnownErrors...)
}

// FixtureManager builds the fixture manager on the real filesystem.
func (c *Config) FixtureManager() *fixture.Manager {
	m := fixture.NewManager(c.GetFixtureDir())
	m.Prefix = c.GetFixturePrefix()
	m.Ext = c.GetFixtureExt()
	return m
}
