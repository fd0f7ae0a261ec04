// Package config handles lodgen configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/midgard-lod/pkg/lod"
)

// Config holds all lodgen settings.
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Output   OutputConfig   `yaml:"output"`
	Batch    BatchConfig    `yaml:"batch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SimplifyConfig holds collapse cost and budget settings.
type SimplifyConfig struct {
	Style           []string `yaml:"style"`        // cost style flag names
	MinVertices     int      `yaml:"min_vertices"` // floor for any exported level
	Reduction       float64  `yaml:"reduction"`    // fraction of vertices removed for exports
	Budget          int      `yaml:"budget"`       // explicit vertex budget; overrides reduction
	CheckInvariants bool     `yaml:"check_invariants"`
}

// OutputConfig holds where and how results are written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format"`      // plod or glb
	Compression string `yaml:"compression"` // none or zstd, for plod
}

// BatchConfig holds worker pool settings.
type BatchConfig struct {
	Workers          int           `yaml:"workers"` // 0 = one per CPU
	Timeout          time.Duration `yaml:"timeout"` // 0 = no limit
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"`
}

// Output formats.
const (
	FormatPLOD = "plod"
	FormatGLB  = "glb"
)

// Compression modes.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			Style:       nil,
			MinVertices: 0,
			Reduction:   0.5,
		},
		Output: OutputConfig{
			Dir:         "lod",
			Format:      FormatPLOD,
			Compression: CompressionZstd,
		},
		Batch: BatchConfig{
			Workers:          0,
			ProgressInterval: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
			Format:  "console",
		},
	}
}

// ParsedStyle parses the configured style flag names.
func (s SimplifyConfig) ParsedStyle() (lod.Style, error) {
	return lod.ParseStyle(s.Style)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Simplify.ParsedStyle(); err != nil {
		errs = append(errs, fmt.Errorf("simplify.style: %w", err))
	}
	if c.Simplify.MinVertices < 0 {
		errs = append(errs, fmt.Errorf("simplify.min_vertices: must be >= 0, got %d", c.Simplify.MinVertices))
	}
	if c.Simplify.Reduction < 0 || c.Simplify.Reduction > 1 {
		errs = append(errs, fmt.Errorf("simplify.reduction: must be in [0, 1], got %g", c.Simplify.Reduction))
	}
	switch c.Output.Format {
	case FormatPLOD, FormatGLB:
	default:
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", c.Output.Format))
	}
	switch c.Output.Compression {
	case CompressionNone, CompressionZstd:
	default:
		errs = append(errs, fmt.Errorf("output.compression: unknown compression %q", c.Output.Compression))
	}
	if c.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers: must be >= 0, got %d", c.Batch.Workers))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}
