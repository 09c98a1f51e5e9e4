package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".surftree"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for surftree settings.
const envPrefix = "SURFTREE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load reads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("tolerance", d.Tolerance)

	v.SetDefault("tree.trimmed", d.Tree.Trimmed)
	v.SetDefault("tree.depth_limit", d.Tree.DepthLimit)
	v.SetDefault("tree.flatness", d.Tree.Flatness)
	v.SetDefault("tree.aspect_ratio", d.Tree.AspectRatio)
	v.SetDefault("tree.edge_miss_tolerance", d.Tree.EdgeMissTolerance)

	v.SetDefault("tree.curve.curve_flatness", d.Tree.Curve.CurveFlatness)
	v.SetDefault("tree.curve.trim_sub_factor", d.Tree.Curve.TrimSubFactor)
	v.SetDefault("tree.curve.max_linear_depth", d.Tree.Curve.MaxLinearDepth)
	v.SetDefault("tree.curve.sample_count", d.Tree.Curve.SampleCount)
	v.SetDefault("tree.curve.leaf_pad", d.Tree.Curve.LeafPad)
	v.SetDefault("tree.curve.degenerate_tol", d.Tree.Curve.DegenerateTol)

	v.SetDefault("closest.max_iterations", d.Closest.MaxIterations)
	v.SetDefault("closest.max_divergence", d.Closest.MaxDivergence)

	v.SetDefault("pullback.tolerance", d.Pullback.Tolerance)
	v.SetDefault("pullback.flatness", d.Pullback.Flatness)
	v.SetDefault("pullback.max_depth", d.Pullback.MaxDepth)
	v.SetDefault("pullback.seed", d.Pullback.Seed)
	v.SetDefault("pullback.solver.max_iterations", d.Pullback.Solver.MaxIterations)
	v.SetDefault("pullback.solver.max_divergence", d.Pullback.Solver.MaxDivergence)

	v.SetDefault("intersect.max_depth", d.Intersect.MaxDepth)
	v.SetDefault("intersect.merge_distance", d.Intersect.MergeDistance)
	v.SetDefault("intersect.keep_triangles", d.Intersect.KeepTriangles)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
