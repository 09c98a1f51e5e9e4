package curvetree

import (
	"math"

	"github.com/chazu/surftree/pkg/geom"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// LeavesAbove returns the leaves whose boxes overlap the strip over u
// from v.Min upward.
func (t *Tree) LeavesAbove(u, v geom.Interval) []int {
	return t.leavesAbove(u, v, QueryTol)
}

// LeavesAbovePoint returns the leaves that may cross the upward ray
// from pt.
func (t *Tree) LeavesAbovePoint(pt v2.Vec, tol float64) []int {
	return t.leavesAbove(geom.Interval{Min: pt.X, Max: pt.X}, geom.Interval{Min: pt.Y, Max: pt.Y}, tol)
}

func (t *Tree) leavesAbove(u, v geom.Interval, tol float64) []int {
	var out []int
	for _, h := range t.sortedX {
		b := t.nodes[h].Box
		if b.Min.X-tol >= u.Max {
			break
		}
		if b.Max.X+tol < u.Min {
			continue
		}
		if b.Max.Y+tol > v.Min {
			out = append(out, h)
		}
	}
	return out
}

// LeavesRight returns the leaves whose boxes overlap the strip over v
// from u.Min rightward.
func (t *Tree) LeavesRight(u, v geom.Interval) []int {
	return t.leavesRight(u, v, QueryTol)
}

// LeavesRightPoint returns the leaves that may cross the rightward ray
// from pt.
func (t *Tree) LeavesRightPoint(pt v2.Vec, tol float64) []int {
	return t.leavesRight(geom.Interval{Min: pt.X, Max: pt.X}, geom.Interval{Min: pt.Y, Max: pt.Y}, tol)
}

func (t *Tree) leavesRight(u, v geom.Interval, tol float64) []int {
	var out []int
	for _, h := range t.sortedY {
		b := t.nodes[h].Box
		if b.Min.Y-tol >= v.Max {
			break
		}
		if b.Max.Y+tol < v.Min {
			continue
		}
		if b.Max.X+tol > u.Min {
			out = append(out, h)
		}
	}
	return out
}

// ClosestPointEstimate descends toward the child whose box center is
// nearest uv and returns the curve point at the middle of the leaf it
// reaches, with the leaf's curve interval. ok is false for a tree with no
// leaves. The answer is a seed, not the true closest point.
func (t *Tree) ClosestPointEstimate(uv v2.Vec) (v2.Vec, geom.Interval, bool) {
	if len(t.leaves) == 0 {
		return v2.Vec{}, geom.Interval{}, false
	}
	h := t.root
	for !t.nodes[h].Leaf {
		best, bestDist := -1, math.Inf(1)
		for _, c := range t.nodes[h].Children {
			d := geom.Flatten(t.nodes[c].Box.Center()).Sub(uv).Length()
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		h = best
	}
	n := &t.nodes[h]
	p := n.Trim.Curve().PointAt(n.Interval.Mid())
	return geom.Flatten(p), n.Interval, true
}

// IsTrimmed reports whether uv lies outside the face's trimmed region.
// It counts crossings of the upward ray from uv with the leaf sample
// polylines; an even count means the point is trimmed away.
func (t *Tree) IsTrimmed(uv v2.Vec) bool {
	crossings := 0
	for _, h := range t.LeavesAbovePoint(uv, QueryTol) {
		s := t.nodes[h].Samples
		for i := 0; i+1 < len(s); i++ {
			a, b := s[i], s[i+1]
			if (a.X <= uv.X) == (b.X <= uv.X) {
				continue
			}
			y := a.Y + (uv.X-a.X)*(b.Y-a.Y)/(b.X-a.X)
			if y > uv.Y {
				crossings++
			}
		}
	}
	return crossings%2 == 0
}

// Overlapping returns the leaves whose boxes overlap the UV rectangle.
func (t *Tree) Overlapping(u, v geom.Interval) []int {
	var out []int
	for _, h := range t.sortedX {
		b := t.nodes[h].Box
		if b.Min.X > u.Max {
			break
		}
		if b.Max.X < u.Min || b.Max.Y < v.Min || b.Min.Y > v.Max {
			continue
		}
		out = append(out, h)
	}
	return out
}
