package pullback

import (
	"fmt"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

const (
	maxDegree = 3
	// peakSamples is the resolution of the basis peak search.
	peakSamples = 1001
)

// Fit interpolates samples. Two samples give a line over [0,1]. More
// give a clamped uniform B-spline of degree up to 3 passing through every
// sample, with the parameter of sample i at the peak of basis function i.
func Fit(samples []v2.Vec) (*nurbs.Curve, error) {
	n := len(samples)
	switch {
	case n < 2:
		return nil, fmt.Errorf("fit %d samples: %w", n, nurbs.ErrInvalid)
	case n == 2:
		return nurbs.NewLine(geom.Lift(samples[0]), geom.Lift(samples[1])), nil
	}

	p := min(maxDegree, n-1)
	knots := nurbs.ClampedUniformKnots(n, p)
	params := peakParams(knots, n, p)

	basis := mat.NewDense(n, n, nil)
	for i, t := range params {
		basis.SetRow(i, basisRow(knots, n, p, t))
	}
	rhs := mat.NewDense(n, 2, nil)
	for i, s := range samples {
		rhs.Set(i, 0, s.X)
		rhs.Set(i, 1, s.Y)
	}

	var lu mat.LU
	lu.Factorize(basis)
	if lu.Cond() > mat.ConditionTolerance {
		return nil, fmt.Errorf("fit %d samples: %w", n, ErrSingularFit)
	}
	var cps mat.Dense
	if err := lu.SolveTo(&cps, false, rhs); err != nil {
		return nil, fmt.Errorf("fit %d samples: %w: %w", n, ErrSingularFit, err)
	}

	cvs := make([]v3.Vec, n)
	for i := range cvs {
		cvs[i] = v3.Vec{X: cps.At(i, 0), Y: cps.At(i, 1)}
	}
	return nurbs.NewCurve(p, knots, cvs, nil)
}

// basisRow returns all n basis functions of degree p at t.
func basisRow(knots []float64, n, p int, t float64) []float64 {
	row := make([]float64, n)
	span := nurbs.FindSpan(n-1, p, t, knots)
	for j, b := range nurbs.BasisFuns(span, t, p, knots) {
		row[span-p+j] = b
	}
	return row
}

// peakParams scans every basis function over peakSamples uniform
// parameters and returns, per function, the last parameter before it
// first decreases. A function still rising at 1 peaks at 1.
func peakParams(knots []float64, n, p int) []float64 {
	rows := make([][]float64, peakSamples)
	for j := range rows {
		rows[j] = basisRow(knots, n, p, float64(j)/(peakSamples-1))
	}
	params := make([]float64, n)
	for i := range params {
		params[i] = 1
		for j := 1; j < peakSamples; j++ {
			if rows[j][i] < rows[j-1][i] {
				params[i] = float64(j-1) / (peakSamples - 1)
				break
			}
		}
	}
	return params
}
