package curvetree

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/obs"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNoLoops is returned when a face has nothing to index.
var ErrNoLoops = errors.New("face has no trimming loops")

type builder struct {
	opts  Options
	diag  float64
	nodes []Node
}

// leafInfo is what every leaf cut from one trim shares.
type leafInfo struct {
	loop  int
	index int
	trim  kernel.Trim
	inner bool
}

// Build indexes every trim of every loop of face. Loop 0 is the outer
// loop; the rest are inner.
func Build(face kernel.Face, opts Options) (*Tree, error) {
	if face == nil {
		return nil, errors.New("curvetree: nil face")
	}
	opts = opts.withDefaults()
	loops := face.Loops()
	if len(loops) == 0 {
		return nil, fmt.Errorf("curvetree: face %d: %w", face.Index(), ErrNoLoops)
	}

	s := face.Surface()
	du, dv := s.Domain(kernel.DirU), s.Domain(kernel.DirV)
	b := &builder{opts: opts, diag: math.Hypot(du.Length(), dv.Length())}

	var top []int
	for li, loop := range loops {
		for ti, trim := range loop.Trims() {
			info := leafInfo{loop: li, index: ti, trim: trim, inner: li > 0}
			top = append(top, b.indexTrim(info)...)
		}
	}

	root := Node{Children: top, Box: geom.EmptyBox()}
	for _, h := range top {
		root.Box = root.Box.Union(b.nodes[h].Box)
	}
	if root.Box.IsEmpty() {
		root.Box = loops[0].BoundingBox().WithMinWidth()
	}
	b.nodes = append(b.nodes, root)

	t := &Tree{face: face, nodes: b.nodes, root: len(b.nodes) - 1}
	t.depth = t.collectLeaves(t.root, 0)
	t.sortedX = append([]int(nil), t.leaves...)
	sort.SliceStable(t.sortedX, func(i, j int) bool {
		return t.nodes[t.sortedX[i]].Box.Min.X < t.nodes[t.sortedX[j]].Box.Min.X
	})
	t.sortedY = append([]int(nil), t.leaves...)
	sort.SliceStable(t.sortedY, func(i, j int) bool {
		return t.nodes[t.sortedY[i]].Box.Min.Y < t.nodes[t.sortedY[j]].Box.Min.Y
	})

	obs.Logger(opts.Logger).Debug("curve tree built",
		"face", face.Index(), "loops", len(loops), "leaves", len(t.leaves), "depth", t.depth)
	return t, nil
}

// collectLeaves appends leaves in depth-first order and returns the depth
// below h.
func (t *Tree) collectLeaves(h, depth int) int {
	n := &t.nodes[h]
	if n.Leaf {
		t.leaves = append(t.leaves, h)
		return depth
	}
	deepest := depth
	for _, c := range n.Children {
		deepest = max(deepest, t.collectLeaves(c, depth+1))
	}
	return deepest
}

func (b *builder) add(n Node) int {
	b.nodes = append(b.nodes, n)
	return len(b.nodes) - 1
}

// indexTrim cuts one trim into spans and returns the handles of their
// subtrees. A span whose ends meet creates nothing.
func (b *builder) indexTrim(info leafInfo) []int {
	c := info.trim.Curve()
	var out []int
	lo := c.Domain().Min
	for _, hi := range splitPoints(c) {
		if geom.NearEqual(lo, hi, spanTol) {
			lo = hi
			continue
		}
		if c.PointAt(lo).Sub(c.PointAt(hi)).Length() > b.opts.DegenerateTol {
			out = append(out, b.subdivide(c, info, lo, hi, 0))
		}
		lo = hi
	}
	return out
}

// splitPoints returns the span ends of c in increasing order: every knot
// after the first, plus the vertical and horizontal tangent points inside
// each knot span of a curved trim. The last value is the domain end.
func splitPoints(c kernel.Curve) []float64 {
	spans := c.SpanVector()
	cuts := append([]float64(nil), spans[1:]...)
	if !c.IsLinear(spanTol) {
		for i := 0; i+1 < len(spans); i++ {
			r := geom.Interval{Min: spans[i], Max: spans[i+1]}
			if r.Length() > spanTol {
				cuts = hvTangents(c, r, cuts)
			}
		}
	}
	sort.Float64s(cuts)
	return cuts
}

// hvTangents appends the parameters in r where the tangent turns vertical
// or horizontal. A span holding both is halved and searched again.
func hvTangents(c kernel.Curve, r geom.Interval, out []float64) []float64 {
	// Ends are pulled inside r so a knot end reads this span's derivative.
	inset := r.Length() * 1e-9
	d0, d1 := c.Derivative(r.Min+inset), c.Derivative(r.Max-inset)
	vertical := d0.X*d1.X < 0
	horizontal := d0.Y*d1.Y < 0

	switch {
	case vertical && horizontal:
		left, right := r.Split(r.Mid())
		if left.Length() > spanTol {
			out = hvTangents(c, left, out)
		}
		if right.Length() > spanTol {
			out = hvTangents(c, right, out)
		}
	case vertical:
		out = append(out, tangentRoot(c, r, func(d v3.Vec) float64 { return d.X }))
	case horizontal:
		out = append(out, tangentRoot(c, r, func(d v3.Vec) float64 { return d.Y }))
	}
	return out
}

// tangentRoot bisects r on the sign of one derivative component.
func tangentRoot(c kernel.Curve, r geom.Interval, component func(v3.Vec) float64) float64 {
	lo, hi := r.Min, r.Max
	s0 := component(c.Derivative(lo + r.Length()*1e-9))
	for hi-lo > tangentTol {
		mid := 0.5 * (lo + hi)
		sm := component(c.Derivative(mid))
		if sm == 0 {
			return mid
		}
		if (sm < 0) == (s0 < 0) {
			lo, s0 = mid, sm
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// subdivide bisects [lo, hi] until the piece is linear or the depth cap
// is reached, and returns the handle of the subtree.
func (b *builder) subdivide(c kernel.Curve, info leafInfo, lo, hi float64, depth int) int {
	if depth >= b.opts.MaxLinearDepth || b.isLinear(c, lo, hi) {
		pts := b.sample(c, lo, hi)
		samples := make([]v2.Vec, len(pts))
		for i, p := range pts {
			samples[i] = geom.Flatten(p)
		}
		return b.add(Node{
			Box:          geom.BoxOf(pts...).Inflate(b.opts.LeafPad).WithMinWidth(),
			Interval:     geom.Interval{Min: lo, Max: hi},
			Inner:        info.inner,
			Leaf:         true,
			Loop:         info.loop,
			TrimIndex:    info.index,
			Trim:         info.trim,
			Kind:         info.trim.Kind(),
			AdjacentFace: info.trim.AdjacentFace(),
			Samples:      samples,
		})
	}

	mid := 0.5 * (lo + hi)
	l := b.subdivide(c, info, lo, mid, depth+1)
	r := b.subdivide(c, info, mid, hi, depth+1)
	return b.add(Node{
		Box:      b.nodes[l].Box.Union(b.nodes[r].Box),
		Interval: geom.Interval{Min: lo, Max: hi},
		Inner:    info.inner,
		Children: []int{l, r},
	})
}

// isLinear accepts a piece whose end tangents agree, whose chord is short
// against the domain diagonal, and whose samples all lie in the chord's
// direction as seen from the first sample.
func (b *builder) isLinear(c kernel.Curve, lo, hi float64) bool {
	flat := b.opts.CurveFlatness
	inset := (hi - lo) * 1e-9
	if c.TangentAt(lo+inset).Dot(c.TangentAt(hi-inset)) < flat {
		return false
	}
	p0, p1 := c.PointAt(lo), c.PointAt(hi)
	if p1.Sub(p0).Length() > b.opts.TrimSubFactor*b.diag {
		return false
	}

	pts := b.sample(c, lo, hi)
	a := geom.Unit(pts[len(pts)-1].Sub(pts[0]))
	dot := 1.0
	for _, p := range pts[1 : len(pts)-1] {
		dot *= a.Dot(geom.Unit(p.Sub(pts[0])))
		if dot < flat {
			return false
		}
	}
	return dot >= flat
}

// sample returns SampleCount evenly spaced points, the last exactly at hi.
func (b *builder) sample(c kernel.Curve, lo, hi float64) []v3.Vec {
	n := b.opts.SampleCount
	delta := (hi - lo) / float64(n-1)
	pts := make([]v3.Vec, n)
	for i := 0; i < n-1; i++ {
		pts[i] = c.PointAt(lo + delta*float64(i))
	}
	pts[n-1] = c.PointAt(hi)
	return pts
}
