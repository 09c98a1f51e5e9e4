package geom

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// ZeroWidth is the axis width below which a box is considered flat
	// along that axis.
	ZeroWidth = 1e-12

	// MinWidthPad is added to both sides of a flat axis so that no box
	// ever has zero thickness.
	MinWidthPad = 0.001
)

// Box is an axis-aligned 3D bounding box.
type Box struct {
	Min v3.Vec `json:"min" yaml:"min"`
	Max v3.Vec `json:"max" yaml:"max"`
}

// EmptyBox returns an inverted box that any Extend call will replace.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: v3.Vec{X: inf, Y: inf, Z: inf},
		Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// BoxOf returns the tight box around pts. With no points the result is
// EmptyBox.
func BoxOf(pts ...v3.Vec) Box {
	b := EmptyBox()
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box is inverted on any axis.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b Box) Extend(p v3.Vec) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Overlaps reports whether the closed boxes share any point.
func (b Box) Overlaps(o Box) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

// Intersection returns the overlap of two boxes and whether it is
// non-empty.
func (b Box) Intersection(o Box) (Box, bool) {
	r := Box{Min: b.Min.Max(o.Min), Max: b.Max.Min(o.Max)}
	if r.IsEmpty() {
		return Box{}, false
	}
	return r, true
}

// Contains reports whether p lies inside the box widened by tol.
func (b Box) Contains(p v3.Vec, tol float64) bool {
	return p.X >= b.Min.X-tol && p.X <= b.Max.X+tol &&
		p.Y >= b.Min.Y-tol && p.Y <= b.Max.Y+tol &&
		p.Z >= b.Min.Z-tol && p.Z <= b.Max.Z+tol
}

// ContainsBox reports whether o lies inside b widened by tol.
func (b Box) ContainsBox(o Box, tol float64) bool {
	return b.Contains(o.Min, tol) && b.Contains(o.Max, tol)
}

// Center returns the midpoint of the box.
func (b Box) Center() v3.Vec {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Size returns the extent along each axis.
func (b Box) Size() v3.Vec {
	return b.Max.Sub(b.Min)
}

// Diagonal returns the length of the box diagonal.
func (b Box) Diagonal() float64 {
	return b.Size().Length()
}

// Volume returns the product of the three extents.
func (b Box) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Inflate pads every axis by d on both sides.
func (b Box) Inflate(d float64) Box {
	pad := v3.Vec{X: d, Y: d, Z: d}
	return Box{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

// WithMinWidth pads every axis narrower than ZeroWidth by MinWidthPad on
// both sides. Boxes stored in trees always pass through here.
func (b Box) WithMinWidth() Box {
	if b.IsEmpty() {
		return b
	}
	if b.Max.X-b.Min.X < ZeroWidth {
		b.Min.X -= MinWidthPad
		b.Max.X += MinWidthPad
	}
	if b.Max.Y-b.Min.Y < ZeroWidth {
		b.Min.Y -= MinWidthPad
		b.Max.Y += MinWidthPad
	}
	if b.Max.Z-b.Min.Z < ZeroWidth {
		b.Min.Z -= MinWidthPad
		b.Max.Z += MinWidthPad
	}
	return b
}

// DistanceTo returns the distance from p to the nearest point of the box,
// zero when p is inside.
func (b Box) DistanceTo(p v3.Vec) float64 {
	q := p.Max(b.Min).Min(b.Max)
	return q.Sub(p).Length()
}

// ToSDF converts the box to an sdfx box.
func (b Box) ToSDF() sdf.Box3 {
	return sdf.Box3{Min: b.Min, Max: b.Max}
}

// FromSDF converts an sdfx box.
func FromSDF(s sdf.Box3) Box {
	return Box{Min: s.Min, Max: s.Max}
}

func (b Box) String() string {
	return fmt.Sprintf("(%g %g %g)-(%g %g %g)", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
