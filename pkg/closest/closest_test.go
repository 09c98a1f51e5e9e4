package closest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/chazu/surftree/pkg/brep"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	"github.com/chazu/surftree/pkg/obs"
	"github.com/chazu/surftree/pkg/surftree"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-7

func tree(t *testing.T, s kernel.Surface) *surftree.Tree {
	t.Helper()
	tr, err := surftree.Build(brep.NewRectFace(0, s), surftree.DefaultOptions())
	require.NoError(t, err)
	return tr
}

func unitPlane() *nurbs.Surface {
	return nurbs.NewPlane(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
}

func TestClosestPointOnPlane(t *testing.T) {
	tr := tree(t, unitPlane())
	tests := []struct {
		name   string
		pt     v3.Vec
		u, v   float64
		offset float64
	}{
		{"above", v3.Vec{X: 0.3, Y: 0.6, Z: 2}, 0.3, 0.6, 2},
		{"below", v3.Vec{X: 0.9, Y: 0.1, Z: -0.5}, 0.9, 0.1, 0.5},
		{"past the edge", v3.Vec{X: 1.5, Y: 0.5}, 1, 0.5, 0.5},
		{"past the corner", v3.Vec{X: -1, Y: -1, Z: 1}, 0, 0, 1.7320508075688772},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := NewSolver(tr, Options{}).Solve(tt.pt, tol)
			require.True(t, ok)
			assert.InDelta(t, tt.u, r.UV.X, 1e-6)
			assert.InDelta(t, tt.v, r.UV.Y, 1e-6)
			assert.InDelta(t, tt.offset, r.Distance, 1e-6)
			assert.False(t, r.Retried)
		})
	}
}

func TestClosestPointRoundTrip(t *testing.T) {
	dome := nurbs.NewDome(1, 1)
	tr := tree(t, dome)
	for _, uv := range [][2]float64{{0.1, 0.1}, {0.5, 0.5}, {0.3, 0.8}, {0.95, 0.4}, {0.62, 0.07}} {
		p := dome.PointAt(uv[0], uv[1])
		got, ok := ClosestPoint(tr, p, tol)
		require.True(t, ok, "uv %v", uv)
		assert.InDelta(t, 0, dome.PointAt(got.X, got.Y).Sub(p).Length(), 1e-5, "uv %v", uv)
	}
}

func TestClosestPointOnCylinder(t *testing.T) {
	cyl, err := nurbs.NewCylinder(v3.Vec{}, 1, 2)
	require.NoError(t, err)
	r, ok := NewSolver(tree(t, cyl), Options{}).Solve(v3.Vec{X: -2, Z: 1.5}, tol)
	require.True(t, ok)
	assert.InDelta(t, 1, r.Distance, 1e-6)
	assert.InDelta(t, 0, r.Point.Sub(v3.Vec{X: -1, Z: 1.5}).Length(), 1e-6)
	assert.InDelta(t, 0.5, r.UV.X, 1e-6)
	assert.InDelta(t, 0.75, r.UV.Y, 1e-6)
}

func TestIterationCapReportsNotFound(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := obs.NewMetrics(reg)
	require.NoError(t, err)

	s := NewSolver(tree(t, nurbs.NewDome(1, 1)), Options{MaxIterations: 1, Metrics: m})
	r, ok := s.Solve(v3.Vec{X: 0.2, Y: 0.4, Z: 3}, tol)
	assert.False(t, ok)
	assert.True(t, r.Retried)
	assert.Equal(t, 1, r.Iterations)

	s = NewSolver(tree(t, unitPlane()), Options{Metrics: m})
	_, ok = s.Solve(v3.Vec{X: 0.2, Y: 0.4, Z: 3}, tol)
	assert.True(t, ok)

	assert.Equal(t, map[string]float64{obs.SolveMissed: 1, obs.SolveFound: 1}, solveCounts(t, reg))
	n, err := testutil.GatherAndCount(reg, "surftree_closest_point_solves_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// solveCounts returns the closest-point solve counter by result label.
func solveCounts(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	byResult := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "surftree_closest_point_solves_total" {
			continue
		}
		for _, mm := range mf.GetMetric() {
			byResult[mm.GetLabel()[0].GetValue()] = mm.GetCounter().GetValue()
		}
	}
	return byResult
}

func TestRetryStartsAtLeafMidpoint(t *testing.T) {
	var buf bytes.Buffer
	log, err := obs.NewLogger(&buf, "debug", obs.FormatJSON)
	require.NoError(t, err)

	tr := tree(t, nurbs.NewDome(1, 1))
	pt := v3.Vec{X: 0.1, Y: 0.1, Z: 0.05}
	seed, u, v := tr.ClosestPointEstimate(pt)

	r, ok := NewSolver(tr, Options{MaxIterations: 1, Logger: log}).Solve(pt, tol)
	assert.False(t, ok)
	assert.True(t, r.Retried)

	var rec struct {
		Msg   string
		Seed  struct{ X, Y float64 }
		Retry struct{ X, Y float64 }
	}
	found := false
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec.Msg == "closest point retry" {
			found = true
			break
		}
	}
	require.True(t, found, "no retry logged:\n%s", buf.String())
	assert.Equal(t, seed.X, rec.Seed.X)
	assert.Equal(t, seed.Y, rec.Seed.Y)
	assert.Equal(t, u.Mid(), rec.Retry.X)
	assert.Equal(t, v.Mid(), rec.Retry.Y)
}

func TestRetryRecoversFromBadSeed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := obs.NewMetrics(reg)
	require.NoError(t, err)

	// Newton on a plane needs three evaluations from an off-target seed
	// and two from the foot of the perpendicular.
	s := NewSolver(tree(t, unitPlane()), Options{MaxIterations: 2, Metrics: m})
	pt := v3.Vec{X: 0.5, Y: 0.5, Z: 1}
	r, ok := s.solveFrom(pt, geom.UV(0, 0), geom.UV(0.5, 0.5), tol)
	require.True(t, ok)
	assert.True(t, r.Retried)
	assert.InDelta(t, 0.5, r.UV.X, 1e-9)
	assert.InDelta(t, 0.5, r.UV.Y, 1e-9)
	assert.InDelta(t, 1, r.Distance, 1e-9)
	assert.Equal(t, map[string]float64{obs.SolveRetried: 1}, solveCounts(t, reg))
}

func TestProject(t *testing.T) {
	dome := nurbs.NewDome(1, 1)
	tr := tree(t, dome)
	p := dome.PointAt(0.3, 0.7)

	t.Run("on surface", func(t *testing.T) {
		uv, ok := Project(tr, p, p, 1e-6)
		require.True(t, ok)
		assert.InDelta(t, 0.3, uv.X, 1e-5)
		assert.InDelta(t, 0.7, uv.Y, 1e-5)
	})

	t.Run("from a neighbour", func(t *testing.T) {
		from := dome.PointAt(0.32, 0.69)
		r, ok := NewSolver(tr, Options{}).Project(p, from, 1e-6)
		require.True(t, ok)
		assert.LessOrEqual(t, r.Distance, SamePointTol)
	})

	t.Run("off surface", func(t *testing.T) {
		off := p.Add(dome.NormalAt(0.3, 0.7))
		_, ok := Project(tr, off, off, 1e-6)
		assert.False(t, ok)
	})
}
