// Package curvetree indexes the trimming loops of a face in parameter
// space. Every trim is cut at its knots and at the points where its
// tangent turns vertical or horizontal, then bisected until each piece is
// close to a straight segment. Leaves are kept in two lists sorted by the
// minimum U and minimum V of their boxes for half-plane range queries,
// which back the point-in-trim test.
package curvetree

import (
	"log/slog"
	"slices"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Defaults.
const (
	DefaultCurveFlatness  = 0.95
	DefaultTrimSubFactor  = 1.0
	DefaultMaxLinearDepth = 20
	DefaultSampleCount    = 10
	DefaultLeafPad        = 0.0
	DefaultDegenerateTol  = 1e-6

	// QueryTol widens leaf boxes in the sorted-list range queries.
	QueryTol = 1e-6

	// tangentTol is the bisection tolerance when locating a vertical or
	// horizontal tangent, and spanTol the shortest span searched.
	tangentTol = 1e-5
	spanTol    = 1e-6
)

// Options tunes tree construction. Zero fields take their defaults.
type Options struct {
	CurveFlatness  float64 `mapstructure:"curve_flatness" yaml:"curve_flatness"`
	TrimSubFactor  float64 `mapstructure:"trim_sub_factor" yaml:"trim_sub_factor"`
	MaxLinearDepth int     `mapstructure:"max_linear_depth" yaml:"max_linear_depth"`
	SampleCount    int     `mapstructure:"sample_count" yaml:"sample_count"`
	LeafPad        float64 `mapstructure:"leaf_pad" yaml:"leaf_pad"`
	DegenerateTol  float64 `mapstructure:"degenerate_tol" yaml:"degenerate_tol"`

	Logger *slog.Logger `mapstructure:"-" yaml:"-"`
}

// DefaultOptions returns the default construction options.
func DefaultOptions() Options {
	return Options{
		CurveFlatness:  DefaultCurveFlatness,
		TrimSubFactor:  DefaultTrimSubFactor,
		MaxLinearDepth: DefaultMaxLinearDepth,
		SampleCount:    DefaultSampleCount,
		LeafPad:        DefaultLeafPad,
		DegenerateTol:  DefaultDegenerateTol,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CurveFlatness <= 0 {
		o.CurveFlatness = d.CurveFlatness
	}
	if o.TrimSubFactor <= 0 {
		o.TrimSubFactor = d.TrimSubFactor
	}
	if o.MaxLinearDepth <= 0 {
		o.MaxLinearDepth = d.MaxLinearDepth
	}
	if o.SampleCount < 2 {
		o.SampleCount = d.SampleCount
	}
	if o.LeafPad < 0 {
		o.LeafPad = d.LeafPad
	}
	if o.DegenerateTol <= 0 {
		o.DegenerateTol = d.DegenerateTol
	}
	return o
}

// Node is one box of the tree. Children are handles into the tree's node
// slice. Leaf fields are zero on interior nodes.
type Node struct {
	Box      geom.Box
	Interval geom.Interval
	Inner    bool
	Children []int

	Leaf         bool
	Loop         int
	TrimIndex    int
	Trim         kernel.Trim
	Kind         kernel.TrimKind
	AdjacentFace int
	// Samples are the evenly spaced curve points the leaf box was built
	// from, in parameter space.
	Samples []v2.Vec
}

// Tree is a built curve index. It is immutable after Build; Node hands
// out copies.
type Tree struct {
	face    kernel.Face
	nodes   []Node
	root    int
	leaves  []int
	sortedX []int
	sortedY []int
	depth   int
}

// Face returns the face the tree was built for.
func (t *Tree) Face() kernel.Face { return t.face }

// Root returns the handle of the root node.
func (t *Tree) Root() int { return t.root }

// Node returns a copy of the node for handle h.
func (t *Tree) Node(h int) Node {
	n := t.nodes[h]
	n.Children = slices.Clone(n.Children)
	n.Samples = slices.Clone(n.Samples)
	return n
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int { return t.depth }

// Leaves returns the leaf handles in construction order.
func (t *Tree) Leaves() []int { return t.leaves }

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int { return len(t.leaves) }
