// Package closest finds the parameters of the point on a surface nearest
// a given 3D point. A surftree.Tree supplies the starting estimate and a
// Newton iteration on the squared distance refines it.
package closest

import (
	"log/slog"
	"math"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/obs"
	"github.com/chazu/surftree/pkg/surftree"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Defaults.
const (
	DefaultMaxIterations = 50
	DefaultMaxDivergence = 3

	// SamePointTol is the distance under which Project accepts a hit
	// without looking at further leaves.
	SamePointTol = 1e-6

	// nudge moves the iterate off a point where the Hessian is singular.
	nudge = 1e-7
)

// Options tunes the solver. Zero fields take their defaults.
type Options struct {
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// MaxDivergence is the number of distance increases tolerated before
	// an attempt is abandoned.
	MaxDivergence int `mapstructure:"max_divergence" yaml:"max_divergence"`

	Logger  *slog.Logger `mapstructure:"-" yaml:"-"`
	Metrics *obs.Metrics `mapstructure:"-" yaml:"-"`
}

// DefaultOptions returns the default solver options.
func DefaultOptions() Options {
	return Options{MaxIterations: DefaultMaxIterations, MaxDivergence: DefaultMaxDivergence}
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxDivergence <= 0 {
		o.MaxDivergence = DefaultMaxDivergence
	}
	return o
}

// Result is a converged solve.
type Result struct {
	UV         v2.Vec
	Point      v3.Vec
	Distance   float64
	Iterations int
	// Retried is set when the first attempt failed and the answer, if
	// any, came from the restart at the midpoint of the estimate's leaf
	// intervals.
	Retried bool
}

// Solver runs closest-point queries against one tree.
type Solver struct {
	tree *surftree.Tree
	surf kernel.Surface
	opts Options
	log  *slog.Logger
}

// NewSolver returns a solver over tree.
func NewSolver(tree *surftree.Tree, opts Options) *Solver {
	opts = opts.withDefaults()
	return &Solver{tree: tree, surf: tree.Surface(), opts: opts, log: obs.Logger(opts.Logger)}
}

// ClosestPoint returns the UV of the surface point nearest pt using
// default options. tol bounds the change in distance between the last two
// iterations.
func ClosestPoint(tree *surftree.Tree, pt v3.Vec, tol float64) (v2.Vec, bool) {
	r, ok := NewSolver(tree, Options{}).Solve(pt, tol)
	return r.UV, ok
}

// Solve seeds Newton's method from the tree estimate and iterates inside
// the surface domain. A failed attempt is retried once from the midpoint
// of the intervals of the leaf the estimate came from.
func (s *Solver) Solve(pt v3.Vec, tol float64) (Result, bool) {
	seed, u, v := s.tree.ClosestPointEstimate(pt)
	return s.solveFrom(pt, seed, geom.UV(u.Mid(), v.Mid()), tol)
}

// solveFrom runs Newton's method from seed and, when that fails, once
// more from retry.
func (s *Solver) solveFrom(pt v3.Vec, seed, retry v2.Vec, tol float64) (Result, bool) {
	du, dv := s.surf.Domain(kernel.DirU), s.surf.Domain(kernel.DirV)

	r, ok := s.newton(pt, seed, du, dv, tol)
	if ok {
		s.opts.Metrics.Solve(obs.SolveFound)
		return r, true
	}

	s.log.Debug("closest point retry", "point", pt, "seed", seed, "retry", retry, "iterations", r.Iterations)
	r, ok = s.newton(pt, retry, du, dv, tol)
	r.Retried = true
	if ok {
		s.opts.Metrics.Solve(obs.SolveRetried)
		return r, true
	}
	s.opts.Metrics.Solve(obs.SolveMissed)
	return r, false
}

// newton minimizes |S(u,v) - pt|² from seed, clamping every iterate to
// the u and v intervals. It succeeds when the distance changes by at most
// tol between iterations.
func (s *Solver) newton(pt v3.Vec, seed v2.Vec, u, v geom.Interval, tol float64) (Result, bool) {
	uv := clamp(seed, u, v)
	last := math.Inf(1)
	diverged := 0
	r := Result{UV: uv}

	for i := 0; i < s.opts.MaxIterations; i++ {
		r.Iterations = i + 1
		d, err := s.surf.Derivatives(uv.X, uv.Y)
		if err != nil {
			return r, false
		}
		delta := d.P.Sub(pt)
		dist := delta.Length()
		r.UV, r.Point, r.Distance = uv, d.P, dist

		if math.Abs(dist-last) <= tol {
			return r, true
		}
		if dist > last {
			diverged++
			if diverged >= s.opts.MaxDivergence {
				return r, false
			}
		}
		last = dist

		gu := 2 * d.Du.Dot(delta)
		gv := 2 * d.Dv.Dot(delta)
		huu := 2*d.Duu.Dot(delta) + 2*d.Du.Dot(d.Du)
		huv := 2*d.Duv.Dot(delta) + 2*d.Du.Dot(d.Dv)
		hvv := 2*d.Dvv.Dot(delta) + 2*d.Dv.Dot(d.Dv)

		det := huu*hvv - huv*huv
		if math.Abs(det) < geom.ZeroWidth {
			uv = clamp(geom.UV(uv.X+nudge, uv.Y+nudge), u, v)
			continue
		}
		step := geom.UV((hvv*gu-huv*gv)/det, (huu*gv-huv*gu)/det)
		uv = clamp(uv.Sub(step), u, v)
	}
	return r, false
}

func clamp(uv v2.Vec, u, v geom.Interval) v2.Vec {
	return geom.UV(u.Clamp(uv.X), v.Clamp(uv.Y))
}
