package nurbs

import (
	"fmt"
	"math"

	"github.com/chazu/surftree/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// hpoint is a control point in homogeneous form (w*x, w*y, w*z, w).
type hpoint struct {
	P v3.Vec
	W float64
}

func lift(p v3.Vec, w float64) hpoint {
	return hpoint{P: p.MulScalar(w), W: w}
}

func (h hpoint) project() (v3.Vec, float64) {
	return h.P.DivScalar(h.W), h.W
}

func (h hpoint) add(o hpoint) hpoint {
	return hpoint{P: h.P.Add(o.P), W: h.W + o.W}
}

func (h hpoint) scale(f float64) hpoint {
	return hpoint{P: h.P.MulScalar(f), W: h.W * f}
}

// insertKnot inserts t once (Boehm's algorithm).
func insertKnot(p int, knots []float64, pts []hpoint, t float64) ([]float64, []hpoint) {
	k := FindSpan(len(pts)-1, p, t, knots)
	q := make([]hpoint, len(pts)+1)
	for i := 0; i <= k-p; i++ {
		q[i] = pts[i]
	}
	for i := k - p + 1; i <= k; i++ {
		alpha := (t - knots[i]) / (knots[i+p] - knots[i])
		q[i] = pts[i].scale(alpha).add(pts[i-1].scale(1 - alpha))
	}
	for i := k + 1; i < len(q); i++ {
		q[i] = pts[i-1]
	}
	nk := make([]float64, 0, len(knots)+1)
	nk = append(nk, knots[:k+1]...)
	nk = append(nk, t)
	nk = append(nk, knots[k+1:]...)
	return nk, q
}

// splitCurve cuts a homogeneous control polygon at t, raising the
// multiplicity of t to p and separating the two halves at the shared
// control point. t snaps to an existing knot within KnotTol.
func splitCurve(p int, knots []float64, pts []hpoint, t float64) ([]float64, []hpoint, []float64, []hpoint, error) {
	mult := 0
	for _, k := range knots {
		if math.Abs(k-t) <= KnotTol {
			t = k
			mult++
		}
	}
	if mult > p {
		return nil, nil, nil, nil, fmt.Errorf("knot %g has multiplicity %d above degree %d: %w",
			t, mult, p, kernel.ErrSplitFailed)
	}

	nk, q := knots, pts
	for r := mult; r < p; r++ {
		nk, q = insertKnot(p, nk, q, t)
	}

	a := -1
	for i, k := range nk {
		if k == t {
			a = i
			break
		}
	}
	if a < 1 || a-1 >= len(q) {
		return nil, nil, nil, nil, fmt.Errorf("knot %g not found after insertion: %w", t, kernel.ErrSplitFailed)
	}

	loKnots := make([]float64, 0, a+p+1)
	loKnots = append(loKnots, nk[:a+p]...)
	loKnots = append(loKnots, t)
	loPts := make([]hpoint, a)
	copy(loPts, q[:a])

	hiKnots := make([]float64, 0, len(nk)-a+1)
	hiKnots = append(hiKnots, t)
	hiKnots = append(hiKnots, nk[a:]...)
	hiPts := make([]hpoint, len(q)-a+1)
	copy(hiPts, q[a-1:])

	if len(loPts) < p+1 || len(hiPts) < p+1 {
		return nil, nil, nil, nil, fmt.Errorf("split at %g leaves too few control points: %w", t, kernel.ErrSplitFailed)
	}
	return loKnots, loPts, hiKnots, hiPts, nil
}
