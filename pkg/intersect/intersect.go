// Package intersect approximates the intersection curves of two
// surfaces. Each surface is covered by a 4-ary box hierarchy grown lazily
// and in lock-step with the other; only pairs of overlapping boxes are
// split further. At the depth cap every leaf patch is replaced by two
// triangles, triangle pairs are intersected, and the resulting points are
// chained into polylines.
package intersect

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/kernel/nurbs"
	"github.com/chazu/surftree/pkg/obs"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultMaxDepth is the number of lock-step split levels.
const DefaultMaxDepth = 8

// Options tunes an intersection. Zero fields take their defaults.
type Options struct {
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// MergeDistance is the chaining threshold. Zero or less derives it
	// from the surfaces' bounding box volumes.
	MergeDistance float64 `mapstructure:"merge_distance" yaml:"merge_distance"`
	// KeepTriangles records the leaf triangles in Stats for inspection.
	KeepTriangles bool `mapstructure:"keep_triangles" yaml:"keep_triangles"`

	Logger  *slog.Logger `mapstructure:"-" yaml:"-"`
	Metrics *obs.Metrics `mapstructure:"-" yaml:"-"`
}

// DefaultOptions returns the default intersection options.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth}
}

// Result is one intersection polyline. The three curves are degree-1
// NURBS through the chained points: in space, on A's domain and on B's
// domain.
type Result struct {
	Curve3D *nurbs.Curve
	CurveA  *nurbs.Curve
	CurveB  *nurbs.Curve
	Points  []v3.Vec
	UVA     []v2.Vec
	UVB     []v2.Vec
	Closed  bool
}

// Stats describes one run.
type Stats struct {
	// LeafPairs is the number of overlapping pairs reaching the depth cap.
	LeafPairs int
	// DroppedPairs counts pairs abandoned because a side failed to split.
	DroppedPairs int
	// Points counts the leaf estimates left after coincident ones merge.
	Points    int
	Threshold float64
	Triangles []*sdf.Triangle3
}

// Intersector runs surface-surface intersections.
type Intersector struct {
	opts Options
	log  *slog.Logger
}

// New returns an intersector.
func New(opts Options) *Intersector {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Intersector{opts: opts, log: obs.Logger(opts.Logger)}
}

// Intersect returns the intersection polylines of a and b with default
// options and the given chaining threshold.
func Intersect(a, b kernel.Surface, mergeDistance float64) ([]Result, error) {
	opts := DefaultOptions()
	opts.MergeDistance = mergeDistance
	res, _, err := New(opts).Intersect(a, b)
	return res, err
}

type pair struct{ a, b int }

// point is one intersection estimate.
type point struct {
	p   v3.Vec
	uvA v2.Vec
	uvB v2.Vec
}

// Intersect returns the intersection polylines of a and b. A node that
// cannot be split drops the pairs it takes part in; the run still
// succeeds and Stats counts the drops.
func (x *Intersector) Intersect(a, b kernel.Surface) ([]Result, Stats, error) {
	var st Stats
	if a == nil || b == nil {
		return nil, st, errors.New("intersect: nil surface")
	}

	var p pool
	ra, rb := p.root(a), p.root(b)
	pairs := []pair{{ra, rb}}
	var pts []point

	for h := 0; h <= x.opts.MaxDepth && len(pairs) > 0; h++ {
		candidates := pairs
		if h > 0 {
			candidates = candidates[:0:0]
			for _, pr := range pairs {
				ca, errA := p.split(pr.a)
				cb, errB := p.split(pr.b)
				if err := errors.Join(errA, errB); err != nil {
					st.DroppedPairs++
					x.log.Debug("intersection pair dropped", "depth", h, "err", err)
					continue
				}
				for _, i := range ca {
					for _, j := range cb {
						candidates = append(candidates, pair{i, j})
					}
				}
			}
		}

		pairs = pairs[:0:0]
		for _, pr := range candidates {
			overlap, ok := p.nodes[pr.a].box.Intersection(p.nodes[pr.b].box)
			if !ok {
				continue
			}
			if h < x.opts.MaxDepth {
				pairs = append(pairs, pr)
				continue
			}
			st.LeafPairs++
			if pt, ok := x.leafPoint(&p.nodes[pr.a], &p.nodes[pr.b], overlap, &st); ok {
				pts = append(pts, pt)
			}
		}
	}
	st.Threshold = x.opts.MergeDistance
	if st.Threshold <= 0 {
		st.Threshold = autoThreshold(p.nodes[ra].box.Volume(), p.nodes[rb].box.Volume())
	}
	pts = dropCoincident(pts, max(geom.ZeroWidth, st.Threshold*coincidentFrac))
	st.Points = len(pts)

	var out []Result
	for _, chain := range chainPoints(pts, st.Threshold) {
		r, err := buildResult(pts, chain)
		if err != nil {
			return nil, st, fmt.Errorf("intersect: %w", err)
		}
		out = append(out, r)
	}

	x.opts.Metrics.Intersection(st.DroppedPairs, len(out))
	x.log.Debug("surfaces intersected",
		"leaf_pairs", st.LeafPairs, "dropped", st.DroppedPairs, "points", st.Points,
		"polylines", len(out), "threshold", st.Threshold)
	return out, st, nil
}

// leafPoint intersects the triangle pairs of two leaves and averages the
// hits into one estimate, kept only inside the leaves' box overlap.
func (x *Intersector) leafPoint(na, nb *node, overlap geom.Box, st *Stats) (point, bool) {
	ta, tb := leafTriangles(na), leafTriangles(nb)
	if x.opts.KeepTriangles {
		st.Triangles = append(st.Triangles, ta[0].sdf(), ta[1].sdf(), tb[0].sdf(), tb[1].sdf())
	}

	var sum point
	hits := 0
	for i := range ta {
		for j := range tb {
			c, ok := intersectTriangles(&ta[i], &tb[j])
			if !ok {
				continue
			}
			sum.p = sum.p.Add(c)
			sum.uvA = sum.uvA.Add(ta[i].barycentricUV(c))
			sum.uvB = sum.uvB.Add(tb[j].barycentricUV(c))
			hits++
		}
	}
	if hits == 0 {
		return point{}, false
	}
	k := float64(hits)
	avg := point{p: sum.p.DivScalar(k), uvA: sum.uvA.DivScalar(k), uvB: sum.uvB.DivScalar(k)}
	if !overlap.Contains(avg.p, 0) {
		return point{}, false
	}
	return avg, true
}

// autoThreshold derives the chaining distance from the two root box
// volumes.
func autoThreshold(volA, volB float64) float64 {
	switch {
	case volA <= geom.ZeroWidth && volB <= geom.ZeroWidth:
		return 0
	case volA <= geom.ZeroWidth:
		return 0.2 * math.Cbrt(volB)
	case volB <= geom.ZeroWidth:
		return 0.2 * math.Cbrt(volA)
	}
	return 0.2 * math.Pow(volA*volB, 1.0/6)
}

func buildResult(pts []point, chain []int) (Result, error) {
	r := Result{
		Points: make([]v3.Vec, len(chain)),
		UVA:    make([]v2.Vec, len(chain)),
		UVB:    make([]v2.Vec, len(chain)),
		Closed: len(chain) > 3 && chain[0] == chain[len(chain)-1],
	}
	liftA := make([]v3.Vec, len(chain))
	liftB := make([]v3.Vec, len(chain))
	for i, k := range chain {
		r.Points[i], r.UVA[i], r.UVB[i] = pts[k].p, pts[k].uvA, pts[k].uvB
		liftA[i], liftB[i] = geom.Lift(pts[k].uvA), geom.Lift(pts[k].uvB)
	}
	var err error
	if r.Curve3D, err = nurbs.NewPolyline(r.Points); err != nil {
		return r, err
	}
	if r.CurveA, err = nurbs.NewPolyline(liftA); err != nil {
		return r, err
	}
	if r.CurveB, err = nurbs.NewPolyline(liftB); err != nil {
		return r, err
	}
	return r, nil
}
