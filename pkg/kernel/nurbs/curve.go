package nurbs

import (
	"fmt"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// lengthSamples is the number of chords per knot span used by Length.
const lengthSamples = 16

// Curve is a rational B-spline curve. A nil Weights slice means every
// weight is 1.
type Curve struct {
	Degree  int
	Knots   []float64
	CVs     []v3.Vec
	Weights []float64
}

var _ kernel.Curve = (*Curve)(nil)

// NewCurve validates and returns a curve.
func NewCurve(degree int, knots []float64, cvs []v3.Vec, weights []float64) (*Curve, error) {
	if !validKnots(knots, degree, len(cvs)) {
		return nil, fmt.Errorf("nurbs: curve degree %d with %d knots and %d cvs: %w",
			degree, len(knots), len(cvs), ErrInvalid)
	}
	if weights != nil {
		if len(weights) != len(cvs) {
			return nil, fmt.Errorf("nurbs: %d weights for %d cvs: %w", len(weights), len(cvs), ErrInvalid)
		}
		for i, w := range weights {
			if w <= 0 {
				return nil, fmt.Errorf("nurbs: weight %d is %g: %w", i, w, ErrInvalid)
			}
		}
	}
	return &Curve{Degree: degree, Knots: knots, CVs: cvs, Weights: weights}, nil
}

// NewLine returns the degree-1 segment from a to b over [0,1].
func NewLine(a, b v3.Vec) *Curve {
	return &Curve{Degree: 1, Knots: []float64{0, 0, 1, 1}, CVs: []v3.Vec{a, b}}
}

// NewPolyline returns the exact piecewise-linear curve through pts. The
// parameter of point i is i, so the domain is [0, len(pts)-1].
func NewPolyline(pts []v3.Vec) (*Curve, error) {
	if len(pts) < 2 {
		return nil, fmt.Errorf("nurbs: polyline needs 2 points, got %d: %w", len(pts), ErrInvalid)
	}
	knots := make([]float64, 0, len(pts)+2)
	knots = append(knots, 0)
	for i := range pts {
		knots = append(knots, float64(i))
	}
	knots = append(knots, float64(len(pts)-1))
	cvs := make([]v3.Vec, len(pts))
	copy(cvs, pts)
	return &Curve{Degree: 1, Knots: knots, CVs: cvs}, nil
}

func (c *Curve) weight(i int) float64 {
	if c.Weights == nil {
		return 1
	}
	return c.Weights[i]
}

// Domain returns the valid parameter range.
func (c *Curve) Domain() geom.Interval {
	return geom.Interval{Min: c.Knots[c.Degree], Max: c.Knots[len(c.Knots)-c.Degree-1]}
}

// eval returns the point and first derivative at t, clamped to the domain.
func (c *Curve) eval(t float64) (v3.Vec, v3.Vec) {
	t = c.Domain().Clamp(t)
	p := c.Degree
	span := FindSpan(len(c.CVs)-1, p, t, c.Knots)
	ders := DersBasisFuns(span, t, p, 1, c.Knots)

	var a0, a1 v3.Vec
	var w0, w1 float64
	for j := 0; j <= p; j++ {
		i := span - p + j
		w := c.weight(i)
		a0 = a0.Add(c.CVs[i].MulScalar(ders[0][j] * w))
		a1 = a1.Add(c.CVs[i].MulScalar(ders[1][j] * w))
		w0 += ders[0][j] * w
		w1 += ders[1][j] * w
	}
	pt := a0.DivScalar(w0)
	d := a1.Sub(pt.MulScalar(w1)).DivScalar(w0)
	return pt, d
}

// PointAt evaluates the curve.
func (c *Curve) PointAt(t float64) v3.Vec {
	pt, _ := c.eval(t)
	return pt
}

// Derivative returns the first derivative at t.
func (c *Curve) Derivative(t float64) v3.Vec {
	_, d := c.eval(t)
	return d
}

// TangentAt returns the unit tangent, or zero where the derivative vanishes.
func (c *Curve) TangentAt(t float64) v3.Vec {
	return geom.Unit(c.Derivative(t))
}

// SpanVector returns the distinct knots of the domain.
func (c *Curve) SpanVector() []float64 {
	return distinctKnots(c.Knots, c.Degree)
}

// IsLinear reports whether every control point lies within tol of the
// chord between the end control points. By the convex hull property the
// curve then does too.
func (c *Curve) IsLinear(tol float64) bool {
	a, b := c.CVs[0], c.CVs[len(c.CVs)-1]
	ab := b.Sub(a)
	l := ab.Length()
	for _, p := range c.CVs[1 : len(c.CVs)-1] {
		var d float64
		if l == 0 {
			d = p.Sub(a).Length()
		} else {
			d = ab.Cross(p.Sub(a)).Length() / l
		}
		if d > tol {
			return false
		}
	}
	return true
}

// Length approximates the arc length with chords sampled per knot span.
func (c *Curve) Length() float64 {
	spans := c.SpanVector()
	total := 0.0
	for i := 0; i+1 < len(spans); i++ {
		prev := c.PointAt(spans[i])
		step := (spans[i+1] - spans[i]) / lengthSamples
		for k := 1; k <= lengthSamples; k++ {
			p := c.PointAt(spans[i] + float64(k)*step)
			total += p.Sub(prev).Length()
			prev = p
		}
	}
	return total
}

// BoundingBox bounds the control polygon.
func (c *Curve) BoundingBox() geom.Box {
	return geom.BoxOf(c.CVs...)
}

// Sample returns n+1 evenly spaced points over the domain.
func (c *Curve) Sample(n int) []v3.Vec {
	if n < 1 {
		n = 1
	}
	d := c.Domain()
	out := make([]v3.Vec, n+1)
	for i := 0; i <= n; i++ {
		out[i] = c.PointAt(d.ParameterAt(float64(i) / float64(n)))
	}
	return out
}
