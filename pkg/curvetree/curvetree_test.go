package curvetree

import (
	"math"
	"testing"

	"github.com/chazu/surftree/pkg/brep"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unit = geom.Interval{Min: 0, Max: 1}

func unitPlane() *nurbs.Surface {
	return nurbs.NewPlane(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
}

// circleTrim returns a rational quadratic circle in parameter space.
func circleTrim(t *testing.T, cx, cy, r float64, clockwise bool) kernel.Trim {
	t.Helper()
	ring := [9][2]float64{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}}
	cvs := make([]v3.Vec, len(ring))
	weights := make([]float64, len(ring))
	for i, xy := range ring {
		y := xy[1]
		if clockwise {
			y = -y
		}
		cvs[i] = v3.Vec{X: cx + r*xy[0], Y: cy + r*y}
		weights[i] = 1
		if i%2 == 1 {
			weights[i] = math.Sqrt2 / 2
		}
	}
	knots := []float64{0, 0, 0, 0.25, 0.25, 0.5, 0.5, 0.75, 0.75, 1, 1, 1}
	c, err := nurbs.NewCurve(2, knots, cvs, weights)
	require.NoError(t, err)
	return brep.NewTrim(c, kernel.TrimBoundary, brep.NoFace)
}

func build(t *testing.T, f kernel.Face) *Tree {
	t.Helper()
	tree, err := Build(f, DefaultOptions())
	require.NoError(t, err)
	return tree
}

func assertInvariants(t *testing.T, tree *Tree) {
	t.Helper()
	for h := 0; h < tree.Len(); h++ {
		n := tree.Node(h)
		if n.Leaf {
			for _, s := range n.Samples {
				assert.True(t, n.Box.Contains(geom.Lift(s), 0), "leaf %d misses sample %v", h, s)
			}
			continue
		}
		if len(n.Children) == 0 {
			continue
		}
		u := geom.EmptyBox()
		for _, c := range n.Children {
			u = u.Union(tree.Node(c).Box)
		}
		assert.Equal(t, u, n.Box, "node %d box is not the union of its children", h)
	}
}

func TestUnitSquareLoop(t *testing.T) {
	tree := build(t, brep.NewRectFace(0, unitPlane()))
	require.Equal(t, 4, tree.LeafCount())
	assert.Equal(t, 1, tree.Depth())
	assertInvariants(t, tree)

	mid := geom.Interval{Min: 0.5, Max: 0.5}
	above := tree.LeavesAbove(mid, mid)
	require.Len(t, above, 1)
	assert.Equal(t, 2, tree.Node(above[0]).TrimIndex, "top edge")

	right := tree.LeavesRight(mid, mid)
	require.Len(t, right, 1)
	assert.Equal(t, 1, tree.Node(right[0]).TrimIndex, "right edge")

	assert.Len(t, tree.LeavesAbovePoint(v2.Vec{X: 0.5, Y: -1}, QueryTol), 2)
	assert.Len(t, tree.LeavesRightPoint(v2.Vec{X: -1, Y: 0.5}, QueryTol), 2)
}

func TestIsTrimmed(t *testing.T) {
	f := brep.NewRectFace(0, unitPlane())
	f.AddLoop(brep.RectLoop(geom.Interval{Min: 0.4, Max: 0.6}, geom.Interval{Min: 0.4, Max: 0.6}, false))
	tree := build(t, f)

	tests := []struct {
		name    string
		uv      v2.Vec
		trimmed bool
	}{
		{"inside", v2.Vec{X: 0.2, Y: 0.3}, false},
		{"inside near corner", v2.Vec{X: 0.95, Y: 0.05}, false},
		{"in hole", v2.Vec{X: 0.5, Y: 0.5}, true},
		{"under hole", v2.Vec{X: 0.5, Y: 0.2}, false},
		{"left of domain", v2.Vec{X: -0.5, Y: 0.5}, true},
		{"above domain", v2.Vec{X: 0.5, Y: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.trimmed, tree.IsTrimmed(tt.uv))
		})
	}
}

func TestCircleTrimSubdivides(t *testing.T) {
	f := brep.NewRectFace(0, unitPlane())
	f.AddLoop(brep.NewLoop(false, circleTrim(t, 0.5, 0.5, 0.25, true)))
	tree := build(t, f)

	assert.Greater(t, tree.LeafCount(), 4+8)
	assert.LessOrEqual(t, tree.Depth(), DefaultMaxLinearDepth+1)
	assertInvariants(t, tree)

	for _, h := range tree.Leaves() {
		n := tree.Node(h)
		if n.Loop == 1 {
			assert.True(t, n.Inner)
		}
	}

	assert.True(t, tree.IsTrimmed(v2.Vec{X: 0.5, Y: 0.5}))
	assert.True(t, tree.IsTrimmed(v2.Vec{X: 0.6, Y: 0.45}))
	assert.False(t, tree.IsTrimmed(v2.Vec{X: 0.5, Y: 0.85}))
	assert.False(t, tree.IsTrimmed(v2.Vec{X: 0.1, Y: 0.5}))
}

func TestHorizontalTangentSplit(t *testing.T) {
	arch, err := nurbs.NewCurve(3, []float64{0, 0, 0, 0, 1, 1, 1, 1},
		[]v3.Vec{{}, {Y: 1}, {X: 1, Y: 1}, {X: 1}}, nil)
	require.NoError(t, err)

	cuts := splitPoints(arch)
	require.Len(t, cuts, 2)
	assert.InDelta(t, 0.5, cuts[0], 1e-5)
	assert.Equal(t, 1.0, cuts[1])
}

func TestDegenerateSpanCreatesNoNode(t *testing.T) {
	loop, err := brep.PolylineLoop([]v2.Vec{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}, true)
	require.NoError(t, err)

	tree, err := Build(brep.NewFace(0, unitPlane(), loop), Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, tree.LeafCount())
	for _, h := range tree.Leaves() {
		assert.Greater(t, tree.Node(h).Interval.Length(), 0.5)
	}
}

func TestClosestPointEstimate(t *testing.T) {
	tree := build(t, brep.NewRectFace(0, unitPlane()))
	p, span, ok := tree.ClosestPointEstimate(v2.Vec{X: 0.5, Y: -0.2})
	require.True(t, ok)
	assert.InDelta(t, 0.5, p.X, 1e-12)
	assert.InDelta(t, 0.0, p.Y, 1e-12)
	assert.Equal(t, unit, span)
}

func TestLeafRecordsTrimTopology(t *testing.T) {
	mated := brep.NewTrim(nurbs.NewLine(v3.Vec{}, v3.Vec{X: 1}), kernel.TrimMated, 7)
	rest := brep.RectLoop(unit, unit, true).Trims()[1:]
	f := brep.NewFace(2, unitPlane(), brep.NewLoop(true, append([]kernel.Trim{mated}, rest...)...))
	tree := build(t, f)

	var found bool
	for _, h := range tree.Leaves() {
		n := tree.Node(h)
		if n.TrimIndex == 0 {
			found = true
			assert.Equal(t, kernel.TrimMated, n.Kind)
			assert.Equal(t, 7, n.AdjacentFace)
			assert.False(t, n.Inner)
		} else {
			assert.Equal(t, brep.NoFace, n.AdjacentFace)
		}
	}
	assert.True(t, found)
	assert.Same(t, f, tree.Face())
}

func TestNodeReturnsCopy(t *testing.T) {
	tree := build(t, brep.NewRectFace(0, unitPlane()))
	h := tree.Leaves()[0]
	n := tree.Node(h)
	require.NotEmpty(t, n.Samples)
	want := n.Samples[0]

	n.Samples[0] = v2.Vec{X: -9, Y: -9}
	n.TrimIndex = 99

	again := tree.Node(h)
	assert.Equal(t, want, again.Samples[0])
	assert.NotEqual(t, 99, again.TrimIndex)
}

func TestBuildIsDeterministic(t *testing.T) {
	mk := func() *Tree {
		f := brep.NewRectFace(0, unitPlane())
		f.AddLoop(brep.NewLoop(false, circleTrim(t, 0.5, 0.5, 0.3, true)))
		return build(t, f)
	}
	a, b := mk(), mk()
	require.Equal(t, a.Len(), b.Len())
	for h := 0; h < a.Len(); h++ {
		assert.Equal(t, a.Node(h).Box, b.Node(h).Box)
	}
}

func TestBuildRejectsEmptyFace(t *testing.T) {
	_, err := Build(brep.NewFace(0, unitPlane()), Options{})
	assert.ErrorIs(t, err, ErrNoLoops)
}
