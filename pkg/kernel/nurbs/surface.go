package nurbs

import (
	"fmt"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// sizeSamples is the number of chords used per iso-curve by SurfaceSize.
const sizeSamples = 8

// Surface is a rational tensor-product B-spline surface. CVs[i][j] is the
// control point at U index i and V index j. A nil Weights grid means
// every weight is 1.
type Surface struct {
	DegreeU int
	DegreeV int
	KnotsU  []float64
	KnotsV  []float64
	CVs     [][]v3.Vec
	Weights [][]float64
}

var _ kernel.Surface = (*Surface)(nil)

// NewSurface validates and returns a surface.
func NewSurface(degU, degV int, knotsU, knotsV []float64, cvs [][]v3.Vec, weights [][]float64) (*Surface, error) {
	if len(cvs) == 0 {
		return nil, fmt.Errorf("nurbs: surface has no cvs: %w", ErrInvalid)
	}
	if !validKnots(knotsU, degU, len(cvs)) {
		return nil, fmt.Errorf("nurbs: u degree %d with %d knots and %d cvs: %w",
			degU, len(knotsU), len(cvs), ErrInvalid)
	}
	nv := len(cvs[0])
	if !validKnots(knotsV, degV, nv) {
		return nil, fmt.Errorf("nurbs: v degree %d with %d knots and %d cvs: %w",
			degV, len(knotsV), nv, ErrInvalid)
	}
	for i, row := range cvs {
		if len(row) != nv {
			return nil, fmt.Errorf("nurbs: cv row %d has %d points, want %d: %w", i, len(row), nv, ErrInvalid)
		}
	}
	if weights != nil {
		if len(weights) != len(cvs) {
			return nil, fmt.Errorf("nurbs: %d weight rows for %d cv rows: %w", len(weights), len(cvs), ErrInvalid)
		}
		for i, row := range weights {
			if len(row) != nv {
				return nil, fmt.Errorf("nurbs: weight row %d has %d values, want %d: %w", i, len(row), nv, ErrInvalid)
			}
			for j, w := range row {
				if w <= 0 {
					return nil, fmt.Errorf("nurbs: weight (%d,%d) is %g: %w", i, j, w, ErrInvalid)
				}
			}
		}
	}
	return &Surface{
		DegreeU: degU, DegreeV: degV,
		KnotsU: knotsU, KnotsV: knotsV,
		CVs: cvs, Weights: weights,
	}, nil
}

func (s *Surface) weight(i, j int) float64 {
	if s.Weights == nil {
		return 1
	}
	return s.Weights[i][j]
}

func (s *Surface) degree(dir int) int {
	if dir == kernel.DirU {
		return s.DegreeU
	}
	return s.DegreeV
}

func (s *Surface) knots(dir int) []float64 {
	if dir == kernel.DirU {
		return s.KnotsU
	}
	return s.KnotsV
}

// Domain returns the valid parameter range in direction dir.
func (s *Surface) Domain(dir int) geom.Interval {
	k, p := s.knots(dir), s.degree(dir)
	return geom.Interval{Min: k[p], Max: k[len(k)-p-1]}
}

// Derivatives evaluates the point and partials up to second order. The
// parameters are clamped to the domain.
func (s *Surface) Derivatives(u, v float64) (kernel.Derivatives, error) {
	u = s.Domain(kernel.DirU).Clamp(u)
	v = s.Domain(kernel.DirV).Clamp(v)
	pu, pv := s.DegreeU, s.DegreeV
	su := FindSpan(len(s.CVs)-1, pu, u, s.KnotsU)
	sv := FindSpan(len(s.CVs[0])-1, pv, v, s.KnotsV)
	du, dv := min(2, pu), min(2, pv)
	nu := DersBasisFuns(su, u, pu, du, s.KnotsU)
	nv := DersBasisFuns(sv, v, pv, dv, s.KnotsV)

	// Homogeneous partials: a[k][l] is the weighted point, w[k][l] the weight.
	var a [3][3]v3.Vec
	var w [3][3]float64
	for k := 0; k <= du; k++ {
		for l := 0; l <= dv && k+l <= 2; l++ {
			for i := 0; i <= pu; i++ {
				ci := su - pu + i
				for j := 0; j <= pv; j++ {
					cj := sv - pv + j
					b := nu[k][i] * nv[l][j] * s.weight(ci, cj)
					a[k][l] = a[k][l].Add(s.CVs[ci][cj].MulScalar(b))
					w[k][l] += b
				}
			}
		}
	}
	if w[0][0] <= 0 {
		return kernel.Derivatives{}, fmt.Errorf("nurbs: zero weight at (%g, %g)", u, v)
	}

	inv := 1 / w[0][0]
	var d kernel.Derivatives
	d.P = a[0][0].MulScalar(inv)
	d.Du = a[1][0].Sub(d.P.MulScalar(w[1][0])).MulScalar(inv)
	d.Dv = a[0][1].Sub(d.P.MulScalar(w[0][1])).MulScalar(inv)
	d.Duu = a[2][0].
		Sub(d.Du.MulScalar(2 * w[1][0])).
		Sub(d.P.MulScalar(w[2][0])).
		MulScalar(inv)
	d.Duv = a[1][1].
		Sub(d.Dv.MulScalar(w[1][0])).
		Sub(d.Du.MulScalar(w[0][1])).
		Sub(d.P.MulScalar(w[1][1])).
		MulScalar(inv)
	d.Dvv = a[0][2].
		Sub(d.Dv.MulScalar(2 * w[0][1])).
		Sub(d.P.MulScalar(w[0][2])).
		MulScalar(inv)
	return d, nil
}

// PointAt evaluates the surface.
func (s *Surface) PointAt(u, v float64) v3.Vec {
	d, err := s.Derivatives(u, v)
	if err != nil {
		return v3.Vec{}
	}
	return d.P
}

// NormalAt returns the unit normal, or zero at a singular point.
func (s *Surface) NormalAt(u, v float64) v3.Vec {
	f, _ := s.FrameAt(u, v)
	return f.ZAxis
}

// FrameAt returns the local frame with XAxis along the U partial.
func (s *Surface) FrameAt(u, v float64) (geom.Frame, bool) {
	d, err := s.Derivatives(u, v)
	if err != nil {
		return geom.Frame{}, false
	}
	return geom.NewFrame(d.P, d.Du, d.Dv)
}

// BoundingBox bounds the control net.
func (s *Surface) BoundingBox() geom.Box {
	b := geom.EmptyBox()
	for _, row := range s.CVs {
		for _, p := range row {
			b = b.Extend(p)
		}
	}
	return b
}

// SpanVector returns the distinct knots of the domain in direction dir.
func (s *Surface) SpanVector(dir int) []float64 {
	return distinctKnots(s.knots(dir), s.degree(dir))
}

// SurfaceSize returns the longest of three sampled iso-curves in each
// direction. ok is false when either extent vanishes.
func (s *Surface) SurfaceSize() (float64, float64, bool) {
	du, dv := s.Domain(kernel.DirU), s.Domain(kernel.DirV)
	isoLen := func(fixed float64, alongU bool) float64 {
		total := 0.0
		var prev v3.Vec
		for k := 0; k <= sizeSamples; k++ {
			t := float64(k) / sizeSamples
			var p v3.Vec
			if alongU {
				p = s.PointAt(du.ParameterAt(t), fixed)
			} else {
				p = s.PointAt(fixed, dv.ParameterAt(t))
			}
			if k > 0 {
				total += p.Sub(prev).Length()
			}
			prev = p
		}
		return total
	}

	var width, height float64
	for _, f := range [3]float64{0, 0.5, 1} {
		width = max(width, isoLen(dv.ParameterAt(f), true))
		height = max(height, isoLen(du.ParameterAt(f), false))
	}
	if width <= geom.ZeroWidth || height <= geom.ZeroWidth {
		return width, height, false
	}
	return width, height, true
}

// Split cuts the surface at t in direction dir by knot insertion. t must
// lie strictly inside the domain.
func (s *Surface) Split(dir int, t float64) (kernel.Surface, kernel.Surface, error) {
	p := s.degree(dir)
	knots := s.knots(dir)
	dom := s.Domain(dir)
	if t <= dom.Min+KnotTol || t >= dom.Max-KnotTol {
		return nil, nil, fmt.Errorf("nurbs: split %s at %g outside %s: %w",
			dirName(dir), t, dom, kernel.ErrSplitFailed)
	}

	// Each iso-row across dir is split independently; knot changes are the
	// same for every row.
	var rows [][]hpoint
	if dir == kernel.DirU {
		rows = make([][]hpoint, len(s.CVs[0]))
		for j := range rows {
			rows[j] = make([]hpoint, len(s.CVs))
			for i := range s.CVs {
				rows[j][i] = lift(s.CVs[i][j], s.weight(i, j))
			}
		}
	} else {
		rows = make([][]hpoint, len(s.CVs))
		for i := range rows {
			rows[i] = make([]hpoint, len(s.CVs[i]))
			for j := range s.CVs[i] {
				rows[i][j] = lift(s.CVs[i][j], s.weight(i, j))
			}
		}
	}

	var loKnots, hiKnots []float64
	loRows := make([][]hpoint, len(rows))
	hiRows := make([][]hpoint, len(rows))
	for r, row := range rows {
		lk, lp, hk, hp, err := splitCurve(p, knots, row, t)
		if err != nil {
			return nil, nil, fmt.Errorf("nurbs: split %s at %g: %w", dirName(dir), t, err)
		}
		loKnots, hiKnots = lk, hk
		loRows[r], hiRows[r] = lp, hp
	}

	lo := s.rebuild(dir, loKnots, loRows)
	hi := s.rebuild(dir, hiKnots, hiRows)
	return lo, hi, nil
}

// rebuild assembles a surface from split rows, replacing the knots in dir.
func (s *Surface) rebuild(dir int, knots []float64, rows [][]hpoint) *Surface {
	out := &Surface{DegreeU: s.DegreeU, DegreeV: s.DegreeV, KnotsU: s.KnotsU, KnotsV: s.KnotsV}
	rational := s.Weights != nil
	if dir == kernel.DirU {
		out.KnotsU = knots
		nu, nv := len(rows[0]), len(rows)
		out.CVs = make([][]v3.Vec, nu)
		if rational {
			out.Weights = make([][]float64, nu)
		}
		for i := 0; i < nu; i++ {
			out.CVs[i] = make([]v3.Vec, nv)
			if rational {
				out.Weights[i] = make([]float64, nv)
			}
			for j := 0; j < nv; j++ {
				p, w := rows[j][i].project()
				out.CVs[i][j] = p
				if rational {
					out.Weights[i][j] = w
				}
			}
		}
		return out
	}

	out.KnotsV = knots
	out.CVs = make([][]v3.Vec, len(rows))
	if rational {
		out.Weights = make([][]float64, len(rows))
	}
	for i, row := range rows {
		out.CVs[i] = make([]v3.Vec, len(row))
		if rational {
			out.Weights[i] = make([]float64, len(row))
		}
		for j, h := range row {
			p, w := h.project()
			out.CVs[i][j] = p
			if rational {
				out.Weights[i][j] = w
			}
		}
	}
	return out
}

func dirName(dir int) string {
	if dir == kernel.DirU {
		return "u"
	}
	return "v"
}
