package intersect

import (
	"math"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// onLineTol is the in-plane distance under which a vertex counts as lying
// on the plane-plane line.
const onLineTol = 1e-12

// triangle is a flat stand-in for part of a leaf patch, with the UV of
// each corner.
type triangle struct {
	p  [3]v3.Vec
	uv [3]v2.Vec
}

func (t *triangle) normal() v3.Vec {
	return t.p[1].Sub(t.p[0]).Cross(t.p[2].Sub(t.p[0]))
}

func (t *triangle) sdf() *sdf.Triangle3 {
	return &sdf.Triangle3{t.p[0], t.p[1], t.p[2]}
}

// leafTriangles splits a patch into the triangles (c0,c1,c2) and
// (c1,c2,c3), with c0=(umin,vmin), c1=(umin,vmax), c2=(umax,vmin) and
// c3=(umax,vmax).
func leafTriangles(n *node) [2]triangle {
	uv := [4]v2.Vec{
		geom.UV(n.u.Min, n.v.Min),
		geom.UV(n.u.Min, n.v.Max),
		geom.UV(n.u.Max, n.v.Min),
		geom.UV(n.u.Max, n.v.Max),
	}
	var c [4]v3.Vec
	for i, p := range uv {
		c[i] = n.root.PointAt(p.X, p.Y)
	}
	return [2]triangle{
		{p: [3]v3.Vec{c[0], c[1], c[2]}, uv: [3]v2.Vec{uv[0], uv[1], uv[2]}},
		{p: [3]v3.Vec{c[1], c[2], c[3]}, uv: [3]v2.Vec{uv[1], uv[2], uv[3]}},
	}
}

// intersectTriangles returns the middle of the segment two triangles
// share along their planes' common line. Parallel planes, zero-area
// triangles and disjoint segments report false.
func intersectTriangles(a, b *triangle) (v3.Vec, bool) {
	na, nb := geom.Unit(a.normal()), geom.Unit(b.normal())
	if na == (v3.Vec{}) || nb == (v3.Vec{}) {
		return v3.Vec{}, false
	}
	dir := na.Cross(nb)
	dd := dir.Dot(dir)
	if dd < onLineTol {
		return v3.Vec{}, false
	}
	// Point on both planes n·x = d.
	da, db := na.Dot(a.p[0]), nb.Dot(b.p[0])
	origin := nb.Cross(dir).MulScalar(da).Add(dir.Cross(na).MulScalar(db)).DivScalar(dd)
	dir = dir.DivScalar(math.Sqrt(dd))

	a0, a1, ok := a.span(origin, dir, na)
	if !ok {
		return v3.Vec{}, false
	}
	b0, b1, ok := b.span(origin, dir, nb)
	if !ok {
		return v3.Vec{}, false
	}
	lo, hi := max(a0, b0), min(a1, b1)
	if lo > hi {
		return v3.Vec{}, false
	}
	return origin.Add(dir.MulScalar(0.5 * (lo + hi))), true
}

// span returns the parameter range along origin + t*dir covered by the
// triangle. Sides are measured in the triangle's own plane.
func (t *triangle) span(origin, dir, n v3.Vec) (float64, float64, bool) {
	side := n.Cross(dir)
	var dist [3]float64
	for i, p := range t.p {
		dist[i] = p.Sub(origin).Dot(side)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	add := func(p v3.Vec) {
		s := p.Sub(origin).Dot(dir)
		lo, hi = min(lo, s), max(hi, s)
	}
	for i := range t.p {
		if math.Abs(dist[i]) <= onLineTol {
			add(t.p[i])
		}
		j := (i + 1) % 3
		if dist[i]*dist[j] < 0 && math.Abs(dist[i]) > onLineTol && math.Abs(dist[j]) > onLineTol {
			f := dist[i] / (dist[i] - dist[j])
			add(t.p[i].Add(t.p[j].Sub(t.p[i]).MulScalar(f)))
		}
	}
	return lo, hi, lo <= hi
}

// barycentricUV maps p, lying in the triangle's plane, to UV by
// barycentric interpolation of the corner UVs.
func (t *triangle) barycentricUV(p v3.Vec) v2.Vec {
	e0, e1, e2 := t.p[1].Sub(t.p[0]), t.p[2].Sub(t.p[0]), p.Sub(t.p[0])
	d00, d01, d11 := e0.Dot(e0), e0.Dot(e1), e1.Dot(e1)
	d20, d21 := e2.Dot(e0), e2.Dot(e1)
	den := d00*d11 - d01*d01
	if den == 0 {
		return t.uv[0]
	}
	l1 := (d11*d20 - d01*d21) / den
	l2 := (d00*d21 - d01*d20) / den
	l0 := 1 - l1 - l2
	return geom.UV(
		l0*t.uv[0].X+l1*t.uv[1].X+l2*t.uv[2].X,
		l0*t.uv[0].Y+l1*t.uv[1].Y+l2*t.uv[2].Y,
	)
}
