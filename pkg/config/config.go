// Package config loads tuning for the index builders, the solvers and the
// CLI from defaults, an optional YAML file and SURFTREE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chazu/surftree/pkg/closest"
	"github.com/chazu/surftree/pkg/intersect"
	"github.com/chazu/surftree/pkg/obs"
	"github.com/chazu/surftree/pkg/pullback"
	"github.com/chazu/surftree/pkg/surftree"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = obs.FormatText
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	// Tolerance is the distance tolerance of closest-point queries.
	Tolerance float64           `mapstructure:"tolerance" yaml:"tolerance"`
	Tree      surftree.Options  `mapstructure:"tree" yaml:"tree"`
	Closest   closest.Options   `mapstructure:"closest" yaml:"closest"`
	Pullback  pullback.Options  `mapstructure:"pullback" yaml:"pullback"`
	Intersect intersect.Options `mapstructure:"intersect" yaml:"intersect"`
	Log       LogConfig         `mapstructure:"log" yaml:"log"`
}

// LogConfig selects the CLI's slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidDepth indicates a depth limit is not positive.
	ErrInvalidDepth = errors.New("depth limits must be positive")
	// ErrInvalidFlatness indicates tree.flatness is outside (0, 1].
	ErrInvalidFlatness = errors.New("tree.flatness must be in (0, 1]")
	// ErrInvalidAspectRatio indicates tree.aspect_ratio is 1 or less.
	ErrInvalidAspectRatio = errors.New("tree.aspect_ratio must be greater than 1")
	// ErrInvalidTolerance indicates a tolerance is not positive.
	ErrInvalidTolerance = errors.New("tolerances must be positive")
	// ErrInvalidMergeDistance indicates intersect.merge_distance is negative.
	ErrInvalidMergeDistance = errors.New("intersect.merge_distance must be non-negative")
	// ErrInvalidLogLevel indicates log.level is not a slog level.
	ErrInvalidLogLevel = errors.New("log.level must be debug, info, warn or error")
	// ErrInvalidLogFormat indicates log.format is not text or json.
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
)

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Tolerance: pullback.DefaultTolerance,
		Tree:      surftree.DefaultOptions(),
		Closest:   closest.DefaultOptions(),
		Pullback:  pullback.DefaultOptions(),
		Intersect: intersect.DefaultOptions(),
		Log:       LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Tree.DepthLimit <= 0 || c.Intersect.MaxDepth <= 0 || c.Pullback.MaxDepth <= 0 ||
		c.Tree.Curve.MaxLinearDepth <= 0 {
		errs = append(errs, ErrInvalidDepth)
	}
	if c.Tree.Flatness <= 0 || c.Tree.Flatness > 1 {
		errs = append(errs, ErrInvalidFlatness)
	}
	if c.Tree.AspectRatio <= 1 {
		errs = append(errs, ErrInvalidAspectRatio)
	}
	if c.Tolerance <= 0 || c.Pullback.Tolerance <= 0 || c.Pullback.Flatness <= 0 {
		errs = append(errs, ErrInvalidTolerance)
	}
	if c.Intersect.MergeDistance < 0 {
		errs = append(errs, ErrInvalidMergeDistance)
	}

	var lv slog.Level
	if err := lv.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case obs.FormatText, obs.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format))
	}

	return errors.Join(errs...)
}

// Observe hands the logger and metrics to every component's options.
func (c *Config) Observe(log *slog.Logger, m *obs.Metrics) {
	c.Tree.Logger, c.Tree.Metrics = log, m
	c.Tree.Curve.Logger = log
	c.Closest.Logger, c.Closest.Metrics = log, m
	c.Pullback.Logger = log
	c.Pullback.Solver.Logger, c.Pullback.Solver.Metrics = log, m
	c.Intersect.Logger, c.Intersect.Metrics = log, m
}
