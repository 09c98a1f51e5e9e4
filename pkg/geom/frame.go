package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Frame is a local surface frame: origin on the surface, XAxis along the
// U tangent, ZAxis along the normal. Axes are unit length when the frame
// was evaluated at a regular point.
type Frame struct {
	Origin v3.Vec
	XAxis  v3.Vec
	YAxis  v3.Vec
	ZAxis  v3.Vec
}

// NewFrame builds a frame from the first partials at a surface point.
// ok is false at a singular point; the returned frame then carries
// whatever axes could be computed and zero for the rest.
func NewFrame(p, du, dv v3.Vec) (Frame, bool) {
	f := Frame{Origin: p}
	n := du.Cross(dv)
	nl := n.Length()
	dl := du.Length()
	if dl > 0 {
		f.XAxis = du.DivScalar(dl)
	}
	if nl == 0 || dl == 0 {
		return f, false
	}
	f.ZAxis = n.DivScalar(nl)
	f.YAxis = f.ZAxis.Cross(f.XAxis)
	return f, true
}

// Unit returns v normalized, or the zero vector when v has no length.
func Unit(v v3.Vec) v3.Vec {
	l := v.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return v.DivScalar(l)
}

// UV builds a parameter-space point.
func UV(u, v float64) v2.Vec {
	return v2.Vec{X: u, Y: v}
}

// Lift embeds a parameter-space point in the z=0 plane. Trim curves and
// pulled-back curves are stored this way.
func Lift(p v2.Vec) v3.Vec {
	return v3.Vec{X: p.X, Y: p.Y}
}

// Flatten drops the z coordinate.
func Flatten(p v3.Vec) v2.Vec {
	return v2.Vec{X: p.X, Y: p.Y}
}

// Cross2 is the z component of the 3D cross product of two planar vectors.
func Cross2(a, b v2.Vec) float64 {
	return a.X*b.Y - a.Y*b.X
}

// DistanceToLine2 returns the perpendicular distance from m to the line
// through a and b, or |m-a| when a and b coincide.
func DistanceToLine2(a, m, b v2.Vec) float64 {
	d := b.Sub(a)
	l := d.Length()
	if l == 0 {
		return m.Sub(a).Length()
	}
	return math.Abs(Cross2(d, m.Sub(a))) / l
}
