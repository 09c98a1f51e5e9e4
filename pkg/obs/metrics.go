package obs

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricTreesBuilt    = "surftree_trees_built_total"
	metricBuildFailures = "surftree_build_failures_total"
	metricLeaves        = "surftree_tree_leaves"
	metricSolves        = "surftree_closest_point_solves_total"
	metricDroppedPairs  = "surftree_intersect_dropped_pairs_total"
	metricPolylines     = "surftree_intersect_polylines_total"

	labelKind   = "kind"
	labelResult = "result"
)

// Tree kinds.
const (
	KindSurface = "surface"
	KindCurve   = "curve"
)

// Solve results.
const (
	SolveFound   = "found"
	SolveRetried = "retried"
	SolveMissed  = "missed"
)

var leafBuckets = prometheus.ExponentialBuckets(1, 4, 8)

// Metrics holds the Prometheus instruments for index builds and queries.
// Every method is safe to call on a nil receiver (no-op), so callers pass
// nil when metrics are not wanted.
type Metrics struct {
	treesBuilt    *prometheus.CounterVec
	buildFailures prometheus.Counter
	leaves        *prometheus.HistogramVec
	solves        *prometheus.CounterVec
	droppedPairs  prometheus.Counter
	polylines     prometheus.Counter
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		treesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricTreesBuilt,
			Help: "Spatial trees built, by kind.",
		}, []string{labelKind}),
		buildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricBuildFailures,
			Help: "Surface tree builds aborted by a split failure.",
		}),
		leaves: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricLeaves,
			Help:    "Leaf count per built tree, by kind.",
			Buckets: leafBuckets,
		}, []string{labelKind}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricSolves,
			Help: "Closest-point solves, by result.",
		}, []string{labelResult}),
		droppedPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricDroppedPairs,
			Help: "Subsurface pairs dropped after a split failure.",
		}),
		polylines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPolylines,
			Help: "Intersection polylines produced.",
		}),
	}

	var errs []error
	for _, c := range []prometheus.Collector{
		m.treesBuilt, m.buildFailures, m.leaves, m.solves, m.droppedPairs, m.polylines,
	} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return m, nil
}

// TreeBuilt records a finished build of the given kind.
func (m *Metrics) TreeBuilt(kind string, leaves int) {
	if m == nil {
		return
	}
	m.treesBuilt.WithLabelValues(kind).Inc()
	m.leaves.WithLabelValues(kind).Observe(float64(leaves))
}

// BuildFailed records an aborted surface tree build.
func (m *Metrics) BuildFailed() {
	if m == nil {
		return
	}
	m.buildFailures.Inc()
}

// Solve records one closest-point solve outcome.
func (m *Metrics) Solve(result string) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(result).Inc()
}

// Intersection records the outcome of one intersection call.
func (m *Metrics) Intersection(dropped, polylines int) {
	if m == nil {
		return
	}
	m.droppedPairs.Add(float64(dropped))
	m.polylines.Add(float64(polylines))
}
