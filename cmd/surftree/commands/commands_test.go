package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const planesScene = `
(defsurface "floor" (plane :u (vec3 2 0 0) :v (vec3 0 2 0)))
(defsurface "wall" (plane :origin (vec3 0.3 0 -0.37) :u (vec3 0 1 0) :v (vec3 0 0 0.98)))
(face "ground" (surface "floor"))
(defcurve "path" (line3 (vec3 0.2 0.2 0) (vec3 1.8 0.2 0)))
`

func writeScene(t *testing.T, src string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scene.lisp")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var g Globals

	root := &cobra.Command{Use: "surftree", SilenceUsage: true, SilenceErrors: true}
	g.Register(root)
	root.AddCommand(
		NewTreeCommand(&g),
		NewClosestCommand(&g),
		NewPullbackCommand(&g),
		NewIntersectCommand(&g),
		NewValidateCommand(&g),
	)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestTreeCommandTable(t *testing.T) {
	out, err := execute(t, "tree", writeScene(t, planesScene))
	require.NoError(t, err)

	assert.Contains(t, out, "LEAVES")
	assert.Contains(t, out, "TRIM LEAVES")
}

func TestTreeCommandYAML(t *testing.T) {
	out, err := execute(t, "tree", "--format", "yaml", "--trimmed", "--face", "ground", writeScene(t, planesScene))
	require.NoError(t, err)

	var got []TreeSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Face)
	assert.Positive(t, got[0].Leaves)
	assert.Positive(t, got[0].TrimLeaves)
}

func TestTreeCommandWritesFiles(t *testing.T) {
	dir := t.TempDir()
	stl := filepath.Join(dir, "leaves.stl")
	gj := filepath.Join(dir, "leaves.json")

	_, err := execute(t, "tree", "--trimmed", "--stl", stl, "--geojson", gj, writeScene(t, planesScene))
	require.NoError(t, err)

	fi, err := os.Stat(stl)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(84))

	data, err := os.ReadFile(gj)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.NotEmpty(t, fc.Features)
}

func TestClosestCommand(t *testing.T) {
	out, err := execute(t, "closest", "--format", "yaml", "--face", "ground", "--point", "0.5, 0.5, 1",
		writeScene(t, planesScene))
	require.NoError(t, err)

	var got ClosestSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.InDelta(t, 0.25, got.U, 1e-6)
	assert.InDelta(t, 0.25, got.V, 1e-6)
	assert.InDelta(t, 1, got.Distance, 1e-6)
}

func TestClosestCommandBadPoint(t *testing.T) {
	_, err := execute(t, "closest", "--face", "ground", "--point", "1,2", writeScene(t, planesScene))
	require.ErrorIs(t, err, ErrBadVector)
}

func TestPullbackCommand(t *testing.T) {
	gj := filepath.Join(t.TempDir(), "uv.json")

	out, err := execute(t, "pullback", "--format", "yaml", "--face", "ground", "--curve", "path",
		"--geojson", gj, writeScene(t, planesScene))
	require.NoError(t, err)

	var got PullbackSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Samples)
	assert.Equal(t, 1, got.Degree)
	assert.InDelta(t, 0.1, got.Start[0], 1e-5)
	assert.InDelta(t, 0.1, got.Start[1], 1e-5)
	assert.InDelta(t, 0.9, got.End[0], 1e-5)

	_, err = os.Stat(gj)
	require.NoError(t, err)
}

func TestIntersectCommand(t *testing.T) {
	scene := `
(defsurface "floor" (plane))
(defsurface "wall" (plane :origin (vec3 0.3 0 -0.37) :u (vec3 0 1 0) :v (vec3 0 0 0.98)))
`
	out, err := execute(t, "intersect", "--format", "yaml", "--a", "floor", "--b", "wall", writeScene(t, scene))
	require.NoError(t, err)

	var got IntersectSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got.Polylines, 1)
	assert.False(t, got.Polylines[0].Closed)
	assert.Zero(t, got.DroppedPairs)
	assert.Positive(t, got.Threshold)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeScene(t, planesScene))
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out), "1 faces, 0 invalid")

	bad := `(face (plane) (loop (polyline2 0.5 0.5 2 0.5 2 2 0.5 2 0.5 0.5)))`
	_, err = execute(t, "validate", writeScene(t, bad))
	require.ErrorIs(t, err, ErrInvalidScene)
}

func TestMetricsFlag(t *testing.T) {
	out, err := execute(t, "tree", "--metrics", writeScene(t, planesScene))
	require.NoError(t, err)

	assert.Contains(t, out, "surftree_trees_built_total")
}

func TestUnknownFormat(t *testing.T) {
	_, err := execute(t, "tree", "--format", "xml", writeScene(t, planesScene))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestScriptErrorsSurface(t *testing.T) {
	_, err := execute(t, "tree", writeScene(t, `(vec3 1 2)`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vec3 requires exactly 3")
}

func TestParseVec3(t *testing.T) {
	t.Parallel()

	p, err := parseVec3("1, -2.5,3e1")
	require.NoError(t, err)
	assert.InDelta(t, 1, p.X, 0)
	assert.InDelta(t, -2.5, p.Y, 0)
	assert.InDelta(t, 30, p.Z, 0)

	_, err = parseVec3("a,b,c")
	require.ErrorIs(t, err, ErrBadVector)
}
