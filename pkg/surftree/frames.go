package surftree

import (
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
)

// grid is the 3x3 frame sample of a patch:
//
//	3-------------------2
//	|    6         8    |
//	|         4         |
//	|    5         7    |
//	0-------------------1
//
// 0..3 are the corners counter-clockwise from (umin, vmin), 4 the center
// and 5..8 the quarter points.
type grid [9]geom.Frame

// singularStep is the fraction of the domain a singular sample moves
// toward the domain center.
const singularStep = 1e-6

// frameAt evaluates the frame at (u, v). At a singular point, such as a
// collapsed edge, the axes come from a point just inside the domain and
// the origin stays at (u, v). A frame that is singular there too keeps
// zero axes, which the flatness tests count as bent.
func frameAt(s kernel.Surface, u, v float64) geom.Frame {
	f, ok := s.FrameAt(u, v)
	if ok {
		return f
	}
	in, ok := s.FrameAt(inward(u, s.Domain(kernel.DirU)), inward(v, s.Domain(kernel.DirV)))
	if !ok {
		return f
	}
	in.Origin = f.Origin
	return in
}

func inward(t float64, d geom.Interval) float64 {
	step := singularStep * d.Length()
	switch {
	case t < d.Mid():
		return t + step
	case t > d.Mid():
		return t - step
	}
	return t
}

// newGrid evaluates all nine frames of the patch.
func newGrid(s kernel.Surface, u, v geom.Interval) grid {
	var g grid
	g[0] = frameAt(s, u.Min, v.Min)
	g[1] = frameAt(s, u.Max, v.Min)
	g[2] = frameAt(s, u.Max, v.Max)
	g[3] = frameAt(s, u.Min, v.Max)
	g[4] = frameAt(s, u.Mid(), v.Mid())
	g.fillQuarters(s, u, v)
	return g
}

// fillQuarters evaluates frames 5..8, the only ones a child cannot
// inherit from its parent.
func (g *grid) fillQuarters(s kernel.Surface, u, v geom.Interval) {
	uq, vq := u.Length()*0.25, v.Length()*0.25
	um, vm := u.Mid(), v.Mid()
	g[5] = frameAt(s, um-uq, vm-vq)
	g[6] = frameAt(s, um-uq, vm+vq)
	g[7] = frameAt(s, um+uq, vm-vq)
	g[8] = frameAt(s, um+uq, vm+vq)
}

// isFlat reports whether every pair of normals agrees within flatness.
func (g *grid) isFlat(flatness float64) bool {
	for i := 0; i < len(g); i++ {
		for j := i + 1; j < len(g); j++ {
			if g[i].ZAxis.Dot(g[j].ZAxis) < flatness {
				return false
			}
		}
	}
	return true
}

// isStraight reports whether every pair of U tangents agrees within
// flatness.
func (g *grid) isStraight(flatness float64) bool {
	for i := 0; i < len(g); i++ {
		for j := i + 1; j < len(g); j++ {
			if g[i].XAxis.Dot(g[j].XAxis) < flatness {
				return false
			}
		}
	}
	return true
}

// Frame pairs running along U (same v) and along V (same u).
var (
	pairsU = [4][2]int{{0, 1}, {3, 2}, {5, 7}, {6, 8}}
	pairsV = [4][2]int{{0, 3}, {1, 2}, {5, 6}, {7, 8}}
)

func (g *grid) flatAlong(pairs [4][2]int, flatness float64) bool {
	for _, p := range pairs {
		a, b := g[p[0]], g[p[1]]
		if a.ZAxis.Dot(b.ZAxis) < flatness || a.XAxis.Dot(b.XAxis) < flatness {
			return false
		}
	}
	return true
}

// isFlatU reports whether the patch bends little along U.
func (g *grid) isFlatU(flatness float64) bool { return g.flatAlong(pairsU, flatness) }

// isFlatV reports whether the patch bends little along V.
func (g *grid) isFlatV(flatness float64) bool { return g.flatAlong(pairsV, flatness) }
