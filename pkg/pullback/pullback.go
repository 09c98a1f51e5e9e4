// Package pullback maps a 3D curve lying on a face's surface into the
// surface's parameter space. The curve is sampled adaptively, each sample
// mapped to UV by the closest-point solver, and the UV samples are
// interpolated by a line or a clamped B-spline.
package pullback

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/chazu/surftree/pkg/closest"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	"github.com/chazu/surftree/pkg/obs"
	"github.com/chazu/surftree/pkg/surftree"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

var (
	// ErrNoSurfacePoint is returned when a curve sample cannot be mapped
	// onto the surface.
	ErrNoSurfacePoint = errors.New("no surface point for curve sample")
	// ErrSingularFit is returned when the interpolation system has no
	// unique solution.
	ErrSingularFit = errors.New("singular interpolation system")
)

// Defaults.
const (
	DefaultTolerance = 1e-6
	DefaultFlatness  = 1e-3
	DefaultMaxDepth  = 16
	DefaultSeed      = 1

	// The bisection point is drawn from [rangeLo, rangeHi] of each span
	// so samples never fall on a regular grid.
	rangeLo = 0.45
	rangeHi = 0.55
)

// Options tunes a pullback. Zero fields take their defaults.
type Options struct {
	// Tolerance is handed to the closest-point solver.
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`
	// Flatness bounds the distance of a span's middle UV sample from the
	// chord through its end samples. Curves of length 1 or more scale it
	// by their length.
	Flatness float64 `mapstructure:"flatness" yaml:"flatness"`
	MaxDepth int     `mapstructure:"max_depth" yaml:"max_depth"`
	Seed     uint64  `mapstructure:"seed" yaml:"seed"`

	Solver closest.Options `mapstructure:"solver" yaml:"solver"`
	Logger *slog.Logger    `mapstructure:"-" yaml:"-"`
}

// DefaultOptions returns the default pullback options.
func DefaultOptions() Options {
	return Options{
		Tolerance: DefaultTolerance,
		Flatness:  DefaultFlatness,
		MaxDepth:  DefaultMaxDepth,
		Seed:      DefaultSeed,
		Solver:    closest.DefaultOptions(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.Flatness <= 0 {
		o.Flatness = d.Flatness
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.Seed == 0 {
		o.Seed = d.Seed
	}
	if o.Solver.Logger == nil {
		o.Solver.Logger = o.Logger
	}
	return o
}

type sampler struct {
	curve    kernel.Curve
	solver   *closest.Solver
	rng      *rand.Rand
	tol      float64
	flatness float64
	maxDepth int
	samples  []v2.Vec
}

// Pullback returns the UV curve of curve on face's surface. A nil tree is
// built untrimmed on demand.
func Pullback(face kernel.Face, curve kernel.Curve, tree *surftree.Tree, opts Options) (*nurbs.Curve, error) {
	samples, err := Samples(face, curve, tree, opts)
	if err != nil {
		return nil, err
	}
	c, err := Fit(samples)
	if err != nil {
		return nil, fmt.Errorf("pullback: face %d: %w", face.Index(), err)
	}
	return c, nil
}

// Samples returns the ordered UV samples Pullback interpolates. The first
// and last map the curve's domain ends.
func Samples(face kernel.Face, curve kernel.Curve, tree *surftree.Tree, opts Options) ([]v2.Vec, error) {
	if face == nil || curve == nil {
		return nil, errors.New("pullback: nil face or curve")
	}
	opts = opts.withDefaults()
	if tree == nil {
		var err error
		tree, err = surftree.Build(face, surftree.Options{Logger: opts.Logger})
		if err != nil {
			return nil, fmt.Errorf("pullback: %w", err)
		}
	}

	flatness := opts.Flatness
	if l := curve.Length(); l >= 1 {
		flatness *= l
	}
	s := &sampler{
		curve:    curve,
		solver:   closest.NewSolver(tree, opts.Solver),
		rng:      rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
		tol:      opts.Tolerance,
		flatness: flatness,
		maxDepth: opts.MaxDepth,
	}

	dom := curve.Domain()
	p1, err := s.toUV(dom.Min)
	if err != nil {
		return nil, fmt.Errorf("pullback: face %d: %w", face.Index(), err)
	}
	p2, err := s.toUV(dom.Max)
	if err != nil {
		return nil, fmt.Errorf("pullback: face %d: %w", face.Index(), err)
	}
	s.samples = append(s.samples, p1)
	if err := s.sample(dom.Min, dom.Max, p1, p2, 0); err != nil {
		return nil, fmt.Errorf("pullback: face %d: %w", face.Index(), err)
	}

	obs.Logger(opts.Logger).Debug("curve pulled back",
		"face", face.Index(), "samples", len(s.samples), "flatness", flatness)
	return s.samples, nil
}

func (s *sampler) toUV(t float64) (v2.Vec, error) {
	pt := s.curve.PointAt(t)
	r, ok := s.solver.Solve(pt, s.tol)
	if !ok {
		return v2.Vec{}, fmt.Errorf("t=%g at %v: %w", t, pt, ErrNoSurfacePoint)
	}
	return r.UV, nil
}

// sample bisects [t1, t2] until the UV chord is flat, appending the end
// sample of every accepted span.
func (s *sampler) sample(t1, t2 float64, p1, p2 v2.Vec, depth int) error {
	t := t1 + (rangeLo+s.rng.Float64()*(rangeHi-rangeLo))*(t2-t1)
	m, err := s.toUV(t)
	if err != nil {
		return err
	}
	if depth >= s.maxDepth || geom.DistanceToLine2(p1, m, p2) <= s.flatness {
		s.samples = append(s.samples, p2)
		return nil
	}
	if err := s.sample(t1, t, p1, m, depth+1); err != nil {
		return err
	}
	return s.sample(t, t2, m, p2, depth+1)
}
