// Package brep provides concrete faces, loops and trims implementing the
// kernel topology interfaces, plus structural validation of a face before
// it is indexed.
package brep

import (
	"fmt"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NoFace is the adjacent-face index of a trim with no neighbour.
const NoFace = -1

// Trim is a parameter-space curve bounding part of a face.
type Trim struct {
	curve    kernel.Curve
	kind     kernel.TrimKind
	adjacent int
}

var _ kernel.Trim = (*Trim)(nil)

// NewTrim returns a trim over curve. adjacent is the index of the face
// across the edge, or NoFace.
func NewTrim(curve kernel.Curve, kind kernel.TrimKind, adjacent int) *Trim {
	return &Trim{curve: curve, kind: kind, adjacent: adjacent}
}

func (t *Trim) Curve() kernel.Curve { return t.curve }
func (t *Trim) Kind() kernel.TrimKind { return t.kind }
func (t *Trim) AdjacentFace() int { return t.adjacent }

// Loop is an ordered closed chain of trims.
type Loop struct {
	outer bool
	trims []kernel.Trim
}

var _ kernel.Loop = (*Loop)(nil)

// NewLoop returns a loop over trims in order.
func NewLoop(outer bool, trims ...kernel.Trim) *Loop {
	return &Loop{outer: outer, trims: trims}
}

func (l *Loop) IsOuter() bool { return l.outer }
func (l *Loop) Trims() []kernel.Trim { return l.trims }

// BoundingBox is the union of the trim curve boxes.
func (l *Loop) BoundingBox() geom.Box {
	b := geom.EmptyBox()
	for _, t := range l.trims {
		b = b.Union(t.Curve().BoundingBox())
	}
	return b
}

// RectLoop returns a loop of four line trims around the UV rectangle.
// Outer loops run counter-clockwise and inner loops clockwise.
func RectLoop(u, v geom.Interval, outer bool) *Loop {
	corners := []v2.Vec{
		{X: u.Min, Y: v.Min}, {X: u.Max, Y: v.Min},
		{X: u.Max, Y: v.Max}, {X: u.Min, Y: v.Max},
	}
	if !outer {
		corners[1], corners[3] = corners[3], corners[1]
	}
	trims := make([]kernel.Trim, 4)
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		trims[i] = NewTrim(nurbs.NewLine(geom.Lift(a), geom.Lift(b)), kernel.TrimBoundary, NoFace)
	}
	return NewLoop(outer, trims...)
}

// PolylineLoop returns a loop made of one closed polyline trim. The first
// point is repeated at the end when needed.
func PolylineLoop(pts []v2.Vec, outer bool) (*Loop, error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("brep: polyline loop needs 3 points, got %d", len(pts))
	}
	lifted := make([]v2.Vec, len(pts), len(pts)+1)
	copy(lifted, pts)
	if lifted[0] != lifted[len(lifted)-1] {
		lifted = append(lifted, lifted[0])
	}
	c, err := nurbs.NewPolyline(liftAll(lifted))
	if err != nil {
		return nil, fmt.Errorf("brep: polyline loop: %w", err)
	}
	return NewLoop(outer, NewTrim(c, kernel.TrimBoundary, NoFace)), nil
}

func liftAll(pts []v2.Vec) []v3.Vec {
	out := make([]v3.Vec, len(pts))
	for i, p := range pts {
		out[i] = geom.Lift(p)
	}
	return out
}

// Face is a surface bounded by loops, outer loop first.
type Face struct {
	index   int
	surface kernel.Surface
	loops   []kernel.Loop
}

var _ kernel.Face = (*Face)(nil)

// NewFace returns a face over surface bounded by loops.
func NewFace(index int, surface kernel.Surface, loops ...kernel.Loop) *Face {
	return &Face{index: index, surface: surface, loops: loops}
}

// NewRectFace returns a face trimmed by the rectangle of its surface's
// full domain.
func NewRectFace(index int, surface kernel.Surface) *Face {
	outer := RectLoop(surface.Domain(kernel.DirU), surface.Domain(kernel.DirV), true)
	return NewFace(index, surface, outer)
}

func (f *Face) Index() int { return f.index }
func (f *Face) Surface() kernel.Surface { return f.surface }
func (f *Face) Loops() []kernel.Loop { return f.loops }

// AddLoop appends a loop.
func (f *Face) AddLoop(l kernel.Loop) {
	f.loops = append(f.loops, l)
}
