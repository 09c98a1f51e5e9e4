// Package geom provides the value types shared by every index in surftree:
// parametric intervals, axis-aligned boxes, and local surface frames.
// Vectors are the sdfx v2/v3 types so boxes and triangles interoperate
// with the sdfx render package without conversion.
package geom

import (
	"fmt"
	"math"
)

// Interval is a closed parametric range. Min <= Max always holds for
// intervals built with NewInterval.
type Interval struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// NewInterval returns the interval spanning a and b in either order.
func NewInterval(a, b float64) Interval {
	if a > b {
		a, b = b, a
	}
	return Interval{Min: a, Max: b}
}

// Length returns Max - Min.
func (i Interval) Length() float64 {
	return i.Max - i.Min
}

// Mid returns the parametric midpoint.
func (i Interval) Mid() float64 {
	return 0.5 * (i.Min + i.Max)
}

// ParameterAt maps a normalized value in [0,1] onto the interval.
func (i Interval) ParameterAt(t float64) float64 {
	return i.Min + t*(i.Max-i.Min)
}

// NormalizedParameterAt is the inverse of ParameterAt. A zero-length
// interval maps everything to 0.
func (i Interval) NormalizedParameterAt(x float64) float64 {
	l := i.Length()
	if l == 0 {
		return 0
	}
	return (x - i.Min) / l
}

// Contains reports whether x lies inside the interval widened by tol.
func (i Interval) Contains(x, tol float64) bool {
	return x >= i.Min-tol && x <= i.Max+tol
}

// Overlaps reports whether two closed intervals share at least one value.
func (i Interval) Overlaps(o Interval) bool {
	return i.Min <= o.Max && o.Min <= i.Max
}

// Clamp pins x into the interval.
func (i Interval) Clamp(x float64) float64 {
	return math.Max(i.Min, math.Min(i.Max, x))
}

// Split cuts the interval at t. t outside the interval is clamped.
func (i Interval) Split(t float64) (Interval, Interval) {
	t = i.Clamp(t)
	return Interval{Min: i.Min, Max: t}, Interval{Min: t, Max: i.Max}
}

// IsDegenerate reports whether the interval is shorter than tol.
func (i Interval) IsDegenerate(tol float64) bool {
	return i.Length() <= tol
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Min, i.Max)
}

// NearEqual reports whether |a-b| <= tol.
func NearEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
