// Package kernel defines the geometry collaborators that the spatial
// indexes consume: parametric surfaces and curves, and the B-rep face,
// loop and trim topology that bounds them. Implementations (nurbs, brep)
// live behind these interfaces so the indexes never depend on a concrete
// representation.
package kernel

import (
	"errors"

	"github.com/chazu/surftree/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrSplitFailed is returned by Surface.Split when the surface cannot be
// cut into two valid sub-patches at the requested parameter.
var ErrSplitFailed = errors.New("surface split failed")

// Parameter directions.
const (
	DirU = 0
	DirV = 1
)

// Derivatives holds a surface point and its first and second partials.
type Derivatives struct {
	P   v3.Vec
	Du  v3.Vec
	Dv  v3.Vec
	Duu v3.Vec
	Duv v3.Vec
	Dvv v3.Vec
}

// Surface is a parametric surface patch over a rectangular domain.
type Surface interface {
	// Domain returns the parameter interval in direction dir (DirU or DirV).
	Domain(dir int) geom.Interval
	PointAt(u, v float64) v3.Vec
	// Derivatives evaluates the point with first and second partials.
	Derivatives(u, v float64) (Derivatives, error)
	NormalAt(u, v float64) v3.Vec
	// FrameAt returns the local frame; ok is false at a singular point.
	FrameAt(u, v float64) (f geom.Frame, ok bool)
	// BoundingBox returns a box containing the whole patch.
	BoundingBox() geom.Box
	// SpanVector returns the distinct knot values in direction dir,
	// including both domain ends. A single-span patch returns two values.
	SpanVector(dir int) []float64
	// SurfaceSize returns approximate patch extents along U and V.
	SurfaceSize() (width, height float64, ok bool)
	// Split cuts the patch at t in direction dir. The pieces keep the
	// parent's parameterization. Failures wrap ErrSplitFailed.
	Split(dir int, t float64) (lo, hi Surface, err error)
}

// Curve is a parametric curve. Trim curves live in the z=0 plane of
// their surface's parameter space.
type Curve interface {
	Domain() geom.Interval
	PointAt(t float64) v3.Vec
	// Derivative returns the first derivative at t.
	Derivative(t float64) v3.Vec
	// TangentAt returns the unit tangent at t, or zero where the
	// derivative vanishes.
	TangentAt(t float64) v3.Vec
	// SpanVector returns the distinct knot values including both ends.
	SpanVector() []float64
	// IsLinear reports whether the curve deviates from its chord by at
	// most tol.
	IsLinear(tol float64) bool
	Length() float64
	BoundingBox() geom.Box
}

// TrimKind classifies how a trim's edge relates to neighbouring faces.
type TrimKind int

const (
	TrimUnknown  TrimKind = iota
	TrimBoundary          // edge used by this face only
	TrimMated             // edge shared with another face
	TrimSeam              // edge shared with this face across a closed direction
	TrimSingular          // lies on a collapsed side of the surface
)

func (k TrimKind) String() string {
	switch k {
	case TrimBoundary:
		return "boundary"
	case TrimMated:
		return "mated"
	case TrimSeam:
		return "seam"
	case TrimSingular:
		return "singular"
	default:
		return "unknown"
	}
}

// Trim is one curve of a trimming loop.
type Trim interface {
	Curve() Curve
	Kind() TrimKind
	// AdjacentFace returns the index of the face across the trim's edge,
	// or -1 when there is none.
	AdjacentFace() int
}

// Loop is an ordered, closed sequence of trims in parameter space.
type Loop interface {
	IsOuter() bool
	Trims() []Trim
	BoundingBox() geom.Box
}

// Face is a surface bounded by trimming loops. Loop 0 is the outer loop.
type Face interface {
	Index() int
	Surface() Surface
	Loops() []Loop
}
