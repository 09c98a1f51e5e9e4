// Package nurbs is the reference implementation of the kernel surface and
// curve interfaces: rational B-spline curves and tensor-product surfaces
// with clamped knot vectors. Splitting is exact, by repeated knot
// insertion, so sub-patches keep their parent's parameterization.
package nurbs

import (
	"errors"
	"sort"
)

// ErrInvalid is returned when a curve or surface definition is
// inconsistent (knot count, control point count, weights, degree).
var ErrInvalid = errors.New("nurbs: invalid definition")

// KnotTol is the distance under which two knot values are the same knot.
const KnotTol = 1e-12

// FindSpan returns the knot span index containing u, for a basis of
// degree p with n+1 control points.
func FindSpan(n, p int, u float64, knots []float64) int {
	if u >= knots[n+1] {
		return n
	}
	if u <= knots[p] {
		return p
	}
	low, high := p, n+1
	mid := (low + high) / 2
	for u < knots[mid] || u >= knots[mid+1] {
		if u < knots[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

// DersBasisFuns computes the non-zero basis functions and their
// derivatives up to order n at u. ders[k][j] is the k-th derivative of
// basis function span-p+j.
func DersBasisFuns(span int, u float64, p, n int, knots []float64) [][]float64 {
	ndu := make([][]float64, p+1)
	for i := range ndu {
		ndu[i] = make([]float64, p+1)
	}
	left := make([]float64, p+1)
	right := make([]float64, p+1)

	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = u - knots[span+1-j]
		right[j] = knots[span+j] - u
		saved := 0.0
		for r := 0; r < j; r++ {
			ndu[j][r] = right[r+1] + left[j-r]
			temp := ndu[r][j-1] / ndu[j][r]
			ndu[r][j] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		ndu[j][j] = saved
	}

	ders := make([][]float64, n+1)
	for k := range ders {
		ders[k] = make([]float64, p+1)
	}
	for j := 0; j <= p; j++ {
		ders[0][j] = ndu[j][p]
	}

	a := [2][]float64{make([]float64, p+1), make([]float64, p+1)}
	for r := 0; r <= p; r++ {
		s1, s2 := 0, 1
		a[0][0] = 1
		for k := 1; k <= n; k++ {
			d := 0.0
			rk, pk := r-k, p-k
			if r >= k {
				a[s2][0] = a[s1][0] / ndu[pk+1][rk]
				d = a[s2][0] * ndu[rk][pk]
			}
			j1 := 1
			if rk < -1 {
				j1 = -rk
			}
			j2 := k - 1
			if r-1 > pk {
				j2 = p - r
			}
			for j := j1; j <= j2; j++ {
				a[s2][j] = (a[s1][j] - a[s1][j-1]) / ndu[pk+1][rk+j]
				d += a[s2][j] * ndu[rk+j][pk]
			}
			if r <= pk {
				a[s2][k] = -a[s1][k-1] / ndu[pk+1][r]
				d += a[s2][k] * ndu[r][pk]
			}
			ders[k][r] = d
			s1, s2 = s2, s1
		}
	}

	f := float64(p)
	for k := 1; k <= n; k++ {
		for j := 0; j <= p; j++ {
			ders[k][j] *= f
		}
		f *= float64(p - k)
	}
	return ders
}

// BasisFuns returns the p+1 non-zero basis functions at u.
func BasisFuns(span int, u float64, p int, knots []float64) []float64 {
	return DersBasisFuns(span, u, p, 0, knots)[0]
}

// ClampedUniformKnots returns a clamped knot vector over [0,1] for n
// control points of degree p with uniformly spaced interior knots.
func ClampedUniformKnots(n, p int) []float64 {
	m := n + p + 1
	knots := make([]float64, m)
	interior := n - p
	for i := 0; i < m; i++ {
		switch {
		case i <= p:
			knots[i] = 0
		case i >= n:
			knots[i] = 1
		default:
			knots[i] = float64(i-p) / float64(interior)
		}
	}
	return knots
}

// distinctKnots returns the distinct knot values inside the valid domain
// [knots[p], knots[len-p-1]], both ends included.
func distinctKnots(knots []float64, p int) []float64 {
	lo, hi := knots[p], knots[len(knots)-p-1]
	out := []float64{lo}
	for _, k := range knots[p+1 : len(knots)-p] {
		if k-out[len(out)-1] > KnotTol && k <= hi {
			out = append(out, k)
		}
	}
	if hi-out[len(out)-1] > KnotTol {
		out = append(out, hi)
	}
	return out
}

func validKnots(knots []float64, p, ncv int) bool {
	if p < 1 || ncv < p+1 || len(knots) != ncv+p+1 {
		return false
	}
	if !sort.Float64sAreSorted(knots) {
		return false
	}
	return knots[len(knots)-p-1]-knots[p] > KnotTol
}
