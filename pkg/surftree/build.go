package surftree

import (
	"errors"
	"fmt"

	"github.com/chazu/surftree/pkg/curvetree"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/obs"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const noParent = -1

// item is one pending patch on the build worklist.
type item struct {
	surf   kernel.Surface
	u, v   geom.Interval
	frames grid
	depth  int
	knots  bool
	parent int
}

type builder struct {
	opts  Options
	ctree *curvetree.Tree
	nodes []Node
	work  []item
}

// Build constructs the surface tree for face. A failed split aborts the
// build with an error wrapping kernel.ErrSplitFailed.
func Build(face kernel.Face, opts Options) (*Tree, error) {
	if face == nil || face.Surface() == nil {
		return nil, errors.New("surftree: nil face or surface")
	}
	opts = opts.withDefaults()
	log := obs.Logger(opts.Logger)
	s := face.Surface()

	b := &builder{opts: opts}
	if opts.Trimmed {
		ct, err := curvetree.Build(face, opts.Curve)
		if err != nil {
			opts.Metrics.BuildFailed()
			return nil, fmt.Errorf("surftree: face %d: %w", face.Index(), err)
		}
		opts.Metrics.TreeBuilt(obs.KindCurve, ct.LeafCount())
		b.ctree = ct
	}

	u, v := s.Domain(kernel.DirU), s.Domain(kernel.DirV)
	b.push(item{surf: s, u: u, v: v, frames: newGrid(s, u, v), knots: true, parent: noParent})
	for len(b.work) > 0 {
		it := b.work[len(b.work)-1]
		b.work = b.work[:len(b.work)-1]
		if err := b.process(it); err != nil {
			opts.Metrics.BuildFailed()
			log.Debug("surface tree build failed", "face", face.Index(), "err", err)
			return nil, fmt.Errorf("surftree: face %d: %w", face.Index(), err)
		}
	}

	b.finish()
	t := &Tree{face: face, surf: s, ctree: b.ctree}
	t.nodes = b.compact()
	t.depth = t.collectLeaves(t.Root())

	opts.Metrics.TreeBuilt(obs.KindSurface, len(t.leaves))
	log.Debug("surface tree built",
		"face", face.Index(), "nodes", len(t.nodes), "leaves", len(t.leaves), "depth", t.depth,
		"trimmed", opts.Trimmed)
	return t, nil
}

func (b *builder) push(it item) { b.work = append(b.work, it) }

// pushChildren queues children so they pop in the order given.
func (b *builder) pushChildren(children ...item) {
	for i := len(children) - 1; i >= 0; i-- {
		b.push(children[i])
	}
}

// process turns one worklist item into a node and either finishes it as
// a leaf or queues its children.
func (b *builder) process(it item) error {
	h := len(b.nodes)
	g := &it.frames
	b.nodes = append(b.nodes, Node{
		U:        it.u,
		V:        it.v,
		Depth:    it.depth,
		Estimate: g[4].Origin,
		Normal:   g[4].ZAxis,
		Corners:  [4]v3.Vec{g[0].Origin, g[1].Origin, g[2].Origin, g[3].Origin},
	})
	if it.parent != noParent {
		p := &b.nodes[it.parent]
		p.Children = append(p.Children, h)
	}

	if it.depth >= b.opts.DepthLimit {
		b.leaf(h, it)
		return nil
	}

	if it.knots {
		su, sv := it.surf.SpanVector(kernel.DirU), it.surf.SpanVector(kernel.DirV)
		splitU, splitV := len(su) > 2, len(sv) > 2
		if splitU || splitV {
			us, vs := it.u.Mid(), it.v.Mid()
			if splitU {
				us = middleKnot(su)
			}
			if splitV {
				vs = middleKnot(sv)
			}
			return b.split(h, it, splitU, splitV, us, vs)
		}
		it.knots = false
	}

	r := b.opts.AspectRatio
	flat := b.opts.Flatness
	w, ht, _ := it.surf.SurfaceSize()
	ratio := w / ht
	if ratio < r && ratio > 1/r && g.isFlat(flat) && g.isStraight(flat) {
		b.leaf(h, it)
		return nil
	}

	flatU, flatV := g.isFlatU(flat), g.isFlatV(flat)
	switch {
	case (!flatV || ratio > r) && (!flatU || ht/w > r):
		return b.split(h, it, true, true, it.u.Mid(), it.v.Mid())
	case !flatU || ratio > r:
		return b.split(h, it, true, false, it.u.Mid(), it.v.Mid())
	default:
		return b.split(h, it, false, true, it.u.Mid(), it.v.Mid())
	}
}

// middleKnot returns spans[(n+1)/2] for a span vector of n spans.
func middleKnot(spans []float64) float64 {
	n := len(spans) - 1
	return spans[(n+1)/2]
}

// leaf finishes node h as a leaf.
func (b *builder) leaf(h int, it item) {
	n := &b.nodes[h]
	n.Leaf = true
	n.Box = it.surf.BoundingBox().Inflate(b.opts.EdgeMissTolerance).WithMinWidth()
	if b.ctree == nil {
		return
	}
	n.Trims = b.ctree.Overlapping(it.u, it.v)
	n.CheckTrim = len(n.Trims) > 0
	if !n.CheckTrim {
		n.Trimmed = b.ctree.IsTrimmed(n.UV())
	}
}

// split cuts the item's patch at us and/or vs and queues the pieces.
// Frames on the cut lines are evaluated once and shared by both sides.
func (b *builder) split(h int, it item, inU, inV bool, us, vs float64) error {
	s, g := it.surf, it.frames
	child := func(sub kernel.Surface, u, v geom.Interval) item {
		return item{surf: sub, u: u, v: v, depth: it.depth + 1, knots: it.knots, parent: h}
	}
	uLo, uHi := geom.Interval{Min: it.u.Min, Max: us}, geom.Interval{Min: us, Max: it.u.Max}
	vLo, vHi := geom.Interval{Min: it.v.Min, Max: vs}, geom.Interval{Min: vs, Max: it.v.Max}

	switch {
	case inU && inV:
		west, east, err := splitPatch(s, kernel.DirU, us, it.depth)
		if err != nil {
			return err
		}
		sw, nw, err := splitPatch(west, kernel.DirV, vs, it.depth)
		if err != nil {
			return err
		}
		se, ne, err := splitPatch(east, kernel.DirV, vs, it.depth)
		if err != nil {
			return err
		}

		s0 := frameAt(s, us, it.v.Min)
		s1 := frameAt(s, it.u.Min, vs)
		s2 := frameAt(s, us, it.v.Max)
		s3 := frameAt(s, it.u.Max, vs)
		center := g[4]
		if it.knots {
			center = frameAt(s, us, vs)
		}

		q0, q1 := child(sw, uLo, vLo), child(se, uHi, vLo)
		q2, q3 := child(ne, uHi, vHi), child(nw, uLo, vHi)
		q0.frames = grid{g[0], s0, center, s1, g[5]}
		q1.frames = grid{s0, g[1], s3, center, g[7]}
		q2.frames = grid{center, s3, g[2], s2, g[8]}
		q3.frames = grid{s1, center, s2, g[3], g[6]}
		for _, q := range []*item{&q0, &q1, &q2, &q3} {
			fill(q, it.knots)
		}
		b.pushChildren(q0, q1, q2, q3)

	case inU:
		west, east, err := splitPatch(s, kernel.DirU, us, it.depth)
		if err != nil {
			return err
		}
		bottom := frameAt(s, us, it.v.Min)
		top := frameAt(s, us, it.v.Max)

		w, e := child(west, uLo, it.v), child(east, uHi, it.v)
		w.frames = grid{g[0], bottom, top, g[3]}
		e.frames = grid{bottom, g[1], g[2], top}
		fill(&w, true)
		fill(&e, true)
		b.pushChildren(w, e)

	default:
		south, north, err := splitPatch(s, kernel.DirV, vs, it.depth)
		if err != nil {
			return err
		}
		left := frameAt(s, it.u.Min, vs)
		right := frameAt(s, it.u.Max, vs)

		lo, hi := child(south, it.u, vLo), child(north, it.u, vHi)
		lo.frames = grid{g[0], g[1], right, left}
		hi.frames = grid{left, right, g[2], g[3]}
		fill(&lo, true)
		fill(&hi, true)
		b.pushChildren(lo, hi)
	}
	return nil
}

// fill completes a child grid. The center is evaluated when the parent
// holds no frame there: after a 2-way split, or after a knot cut that
// need not fall at the parent's quarter points.
func fill(c *item, center bool) {
	if center {
		c.frames[4] = frameAt(c.surf, c.u.Mid(), c.v.Mid())
	}
	c.frames.fillQuarters(c.surf, c.u, c.v)
}

// splitPatch splits s and guarantees the error wraps kernel.ErrSplitFailed.
func splitPatch(s kernel.Surface, dir int, t float64, depth int) (kernel.Surface, kernel.Surface, error) {
	lo, hi, err := s.Split(dir, t)
	if err == nil && (lo == nil || hi == nil) {
		err = errors.New("empty piece")
	}
	if err == nil {
		return lo, hi, nil
	}
	name := "u"
	if dir == kernel.DirV {
		name = "v"
	}
	if errors.Is(err, kernel.ErrSplitFailed) {
		return nil, nil, fmt.Errorf("split %s at %g (depth %d): %w", name, t, depth, err)
	}
	return nil, nil, fmt.Errorf("split %s at %g (depth %d): %w: %w", name, t, depth, kernel.ErrSplitFailed, err)
}

// finish sets interior boxes and trim flags bottom-up. Nodes are appended
// before their children, so a reverse scan sees children first.
func (b *builder) finish() {
	for h := len(b.nodes) - 1; h >= 0; h-- {
		n := &b.nodes[h]
		if n.Leaf {
			continue
		}
		all := geom.EmptyBox()
		kept := geom.EmptyBox()
		n.Trimmed = b.ctree != nil
		for _, c := range n.Children {
			cn := &b.nodes[c]
			all = all.Union(cn.Box)
			if !cn.Trimmed {
				kept = kept.Union(cn.Box)
				n.Trimmed = false
			}
			n.CheckTrim = n.CheckTrim || cn.CheckTrim
		}
		n.Box = kept
		if kept.IsEmpty() {
			n.Box = all
		}
	}
}

// compact copies the untrimmed nodes into a fresh slice in depth-first
// order, remapping child handles.
func (b *builder) compact() []Node {
	out := make([]Node, 0, len(b.nodes))
	var visit func(h int) int
	visit = func(h int) int {
		idx := len(out)
		out = append(out, b.nodes[h])
		var kids []int
		for _, c := range b.nodes[h].Children {
			if b.nodes[c].Trimmed {
				continue
			}
			kids = append(kids, visit(c))
		}
		out[idx].Children = kids
		return idx
	}
	visit(0)
	return out
}

// collectLeaves records leaf handles and returns the deepest leaf depth.
func (t *Tree) collectLeaves(h int) int {
	n := &t.nodes[h]
	if n.Leaf {
		t.leaves = append(t.leaves, h)
		return n.Depth
	}
	deepest := n.Depth
	for _, c := range n.Children {
		deepest = max(deepest, t.collectLeaves(c))
	}
	return deepest
}

func meshName(f kernel.Face) string { return fmt.Sprintf("face-%d", f.Index()) }
