// Package surftree builds a bounding-volume hierarchy over the parameter
// domain of a face's surface.
//
// Construction runs in two phases. The knot phase cuts the patch at its
// middle knot until every piece is a single polynomial span. The adaptive
// phase samples a 3x3 grid of frames on each piece and splits again until
// the piece is flat, straight and not too elongated, or the depth limit is
// reached. With Options.Trimmed the face's trimming loops are indexed by a
// curvetree.Tree and leaves that lie wholly outside the trimmed region are
// pruned.
package surftree

import (
	"log/slog"
	"math"
	"slices"

	"github.com/chazu/surftree/pkg/curvetree"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/obs"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Defaults.
const (
	DefaultDepthLimit        = 8
	DefaultFlatness          = 0.85
	DefaultAspectRatio       = 5.0
	DefaultEdgeMissTolerance = 5e-3
)

// Options tunes tree construction. Zero fields take their defaults.
type Options struct {
	// Trimmed indexes the trimming loops and prunes trimmed-away leaves.
	Trimmed    bool `mapstructure:"trimmed" yaml:"trimmed"`
	DepthLimit int  `mapstructure:"depth_limit" yaml:"depth_limit"`
	// Flatness is the smallest dot product accepted between any two
	// sampled normals, or any two sampled U tangents, of a leaf.
	Flatness    float64 `mapstructure:"flatness" yaml:"flatness"`
	AspectRatio float64 `mapstructure:"aspect_ratio" yaml:"aspect_ratio"`
	// EdgeMissTolerance inflates leaf boxes so rays grazing a patch edge
	// still hit a leaf.
	EdgeMissTolerance float64 `mapstructure:"edge_miss_tolerance" yaml:"edge_miss_tolerance"`

	Curve curvetree.Options `mapstructure:"curve" yaml:"curve"`

	Logger  *slog.Logger `mapstructure:"-" yaml:"-"`
	Metrics *obs.Metrics `mapstructure:"-" yaml:"-"`
}

// DefaultOptions returns the default construction options, untrimmed.
func DefaultOptions() Options {
	return Options{
		DepthLimit:        DefaultDepthLimit,
		Flatness:          DefaultFlatness,
		AspectRatio:       DefaultAspectRatio,
		EdgeMissTolerance: DefaultEdgeMissTolerance,
		Curve:             curvetree.DefaultOptions(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DepthLimit <= 0 {
		o.DepthLimit = d.DepthLimit
	}
	if o.Flatness <= 0 || o.Flatness > 1 {
		o.Flatness = d.Flatness
	}
	if o.AspectRatio <= 1 {
		o.AspectRatio = d.AspectRatio
	}
	if o.EdgeMissTolerance < 0 {
		o.EdgeMissTolerance = d.EdgeMissTolerance
	}
	if o.Curve.Logger == nil {
		o.Curve.Logger = o.Logger
	}
	return o
}

// Node is one box of the tree. Children are handles into the tree's node
// slice.
type Node struct {
	Box      geom.Box
	U, V     geom.Interval
	Depth    int
	Children []int
	Leaf     bool

	// Estimate and Normal are the surface point and unit normal at the
	// center of the node's UV rectangle.
	Estimate v3.Vec
	Normal   v3.Vec
	// Corners are the surface points at the UV rectangle's corners,
	// counter-clockwise from (umin, vmin).
	Corners [4]v3.Vec

	// Trimmed marks a node lying wholly outside the trimmed region.
	// CheckTrim marks a node some trim curve passes through. Trims holds
	// the handles of the curve tree leaves a leaf overlaps.
	Trimmed   bool
	CheckTrim bool
	Trims     []int
}

// UV returns the center of the node's parameter rectangle.
func (n Node) UV() v2.Vec { return geom.UV(n.U.Mid(), n.V.Mid()) }

// corner returns the UV of Corners[i].
func (n Node) corner(i int) v2.Vec {
	switch i {
	case 0:
		return geom.UV(n.U.Min, n.V.Min)
	case 1:
		return geom.UV(n.U.Max, n.V.Min)
	case 2:
		return geom.UV(n.U.Max, n.V.Max)
	default:
		return geom.UV(n.U.Min, n.V.Max)
	}
}

// Tree is a built surface index. It is immutable after Build; Node hands
// out copies.
type Tree struct {
	face   kernel.Face
	surf   kernel.Surface
	ctree  *curvetree.Tree
	nodes  []Node
	leaves []int
	depth  int
}

// Face returns the face the tree was built for.
func (t *Tree) Face() kernel.Face { return t.face }

// Surface returns the face's surface.
func (t *Tree) Surface() kernel.Surface { return t.surf }

// CurveTree returns the trim index, or nil for an untrimmed build.
func (t *Tree) CurveTree() *curvetree.Tree { return t.ctree }

// Root returns the handle of the root node.
func (t *Tree) Root() int { return 0 }

// Node returns a copy of the node for handle h.
func (t *Tree) Node(h int) Node {
	n := t.nodes[h]
	n.Children = slices.Clone(n.Children)
	n.Trims = slices.Clone(n.Trims)
	return n
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int { return t.depth }

// Leaves returns the leaf handles in depth-first order.
func (t *Tree) Leaves() []int { return t.leaves }

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int { return len(t.leaves) }

// ClosestPointEstimate descends toward the child whose cached surface
// point is nearest pt. It returns the UV of the reached leaf's cached
// sample, center or corner, nearest pt along with the leaf's intervals.
// It is a seed for the closest-point solver.
func (t *Tree) ClosestPointEstimate(pt v3.Vec) (v2.Vec, geom.Interval, geom.Interval) {
	h := t.Root()
	for !t.nodes[h].Leaf && len(t.nodes[h].Children) > 0 {
		best, bestDist := -1, math.Inf(1)
		for _, c := range t.nodes[h].Children {
			d := t.nodes[c].Estimate.Sub(pt).Length()
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		h = best
	}
	n := &t.nodes[h]

	uv, dist := n.UV(), n.Estimate.Sub(pt).Length()
	for i, c := range n.Corners {
		if d := c.Sub(pt).Length(); d < dist {
			uv, dist = n.corner(i), d
		}
	}
	return uv, n.U, n.V
}

// LeavesBoundingPoint returns the leaves whose boxes contain pt.
func (t *Tree) LeavesBoundingPoint(pt v3.Vec) []int {
	var out []int
	stack := []int{t.Root()}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[h]
		if !n.Box.Contains(pt, 0) {
			continue
		}
		if n.Leaf {
			out = append(out, h)
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// IsTrimmed reports whether uv lies outside the face's trimmed region.
// Without a curve tree only points outside the surface domain are
// trimmed.
func (t *Tree) IsTrimmed(uv v2.Vec) bool {
	if t.ctree != nil {
		return t.ctree.IsTrimmed(uv)
	}
	return !t.surf.Domain(kernel.DirU).Contains(uv.X, 0) ||
		!t.surf.Domain(kernel.DirV).Contains(uv.Y, 0)
}

// Mesh returns two triangles per leaf spanning the leaf's corners.
func (t *Tree) Mesh() *kernel.Mesh {
	m := &kernel.Mesh{Name: meshName(t.face)}
	for _, h := range t.leaves {
		c := t.nodes[h].Corners
		m.AddPatch(c[0], c[1], c[2], c[3])
	}
	return m
}
