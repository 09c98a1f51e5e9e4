package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/surftree/pkg/config"
	"github.com/chazu/surftree/pkg/surftree"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "surftree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), *cfg)
	assert.Equal(t, surftree.DefaultDepthLimit, cfg.Tree.DepthLimit)
	assert.InDelta(t, surftree.DefaultFlatness, cfg.Tree.Flatness, 0)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
tolerance: 1e-4
tree:
  trimmed: true
  depth_limit: 4
  curve:
    sample_count: 20
pullback:
  seed: 7
  solver:
    max_iterations: 10
intersect:
  merge_distance: 0.01
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 1e-4, cfg.Tolerance, 0)
	assert.True(t, cfg.Tree.Trimmed)
	assert.Equal(t, 4, cfg.Tree.DepthLimit)
	assert.Equal(t, 20, cfg.Tree.Curve.SampleCount)
	assert.Equal(t, uint64(7), cfg.Pullback.Seed)
	assert.Equal(t, 10, cfg.Pullback.Solver.MaxIterations)
	assert.InDelta(t, 0.01, cfg.Intersect.MergeDistance, 0)
	assert.Equal(t, "json", cfg.Log.Format)

	// Untouched keys keep their defaults.
	assert.InDelta(t, surftree.DefaultAspectRatio, cfg.Tree.AspectRatio, 0)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SURFTREE_TREE_DEPTH_LIMIT", "3")
	t.Setenv("SURFTREE_INTERSECT_MAX_DEPTH", "5")

	cfg, err := config.Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Tree.DepthLimit)
	assert.Equal(t, 5, cfg.Intersect.MaxDepth)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := config.Load(writeConfig(t, "tree:\n  depth_limit: -1\n"))
	require.ErrorIs(t, err, config.ErrInvalidDepth)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"depth", func(c *config.Config) { c.Tree.DepthLimit = 0 }, config.ErrInvalidDepth},
		{"intersect depth", func(c *config.Config) { c.Intersect.MaxDepth = -2 }, config.ErrInvalidDepth},
		{"flatness", func(c *config.Config) { c.Tree.Flatness = 1.5 }, config.ErrInvalidFlatness},
		{"aspect ratio", func(c *config.Config) { c.Tree.AspectRatio = 1 }, config.ErrInvalidAspectRatio},
		{"tolerance", func(c *config.Config) { c.Tolerance = 0 }, config.ErrInvalidTolerance},
		{"merge distance", func(c *config.Config) { c.Intersect.MergeDistance = -1 }, config.ErrInvalidMergeDistance},
		{"log level", func(c *config.Config) { c.Log.Level = "loud" }, config.ErrInvalidLogLevel},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, config.ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
}

func TestObserve(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	log := slog.New(slog.DiscardHandler)
	cfg.Observe(log, nil)

	assert.Same(t, log, cfg.Tree.Logger)
	assert.Same(t, log, cfg.Tree.Curve.Logger)
	assert.Same(t, log, cfg.Pullback.Solver.Logger)
	assert.Same(t, log, cfg.Intersect.Logger)
}
