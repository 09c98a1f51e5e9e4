package intersect

import (
	"fmt"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
)

// node is one subpatch of a surface being intersected. Children are
// created on first use and live in the pool at children..children+3.
type node struct {
	// root is the unsplit surface, evaluated for leaf triangles so that
	// subpatch reparameterizations never leak into the results.
	root     kernel.Surface
	surf     kernel.Surface
	u, v     geom.Interval
	box      geom.Box
	children int
	err      error
}

// pool owns every node of both hierarchies; nodes refer to each other by
// index.
type pool struct {
	nodes []node
}

func (p *pool) add(root, s kernel.Surface, u, v geom.Interval) int {
	p.nodes = append(p.nodes, node{
		root: root,
		surf: s,
		u:    u,
		v:    v,
		box:  s.BoundingBox().WithMinWidth(),
	})
	return len(p.nodes) - 1
}

func (p *pool) root(s kernel.Surface) int {
	return p.add(s, s, s.Domain(kernel.DirU), s.Domain(kernel.DirV))
}

// split returns the four children of node i, ordered (uLo,vLo),
// (uLo,vHi), (uHi,vLo), (uHi,vHi), splitting at the U and V midpoints on
// first call. A failed split is remembered and returned again.
func (p *pool) split(i int) ([4]int, error) {
	n := p.nodes[i]
	if n.err != nil {
		return [4]int{}, n.err
	}
	if n.children > 0 {
		c := n.children
		return [4]int{c, c + 1, c + 2, c + 3}, nil
	}

	pieces, err := quarter(n.surf, n.u.Mid(), n.v.Mid())
	if err != nil {
		err = fmt.Errorf("subpatch u=%v v=%v: %w", n.u, n.v, err)
		p.nodes[i].err = err
		return [4]int{}, err
	}
	ul, uh := n.u.Split(n.u.Mid())
	vl, vh := n.v.Split(n.v.Mid())
	doms := [4][2]geom.Interval{{ul, vl}, {ul, vh}, {uh, vl}, {uh, vh}}

	first := len(p.nodes)
	for k, s := range pieces {
		p.add(n.root, s, doms[k][0], doms[k][1])
	}
	p.nodes[i].children = first
	return [4]int{first, first + 1, first + 2, first + 3}, nil
}

func quarter(s kernel.Surface, um, vm float64) ([4]kernel.Surface, error) {
	var out [4]kernel.Surface
	lo, hi, err := s.Split(kernel.DirU, um)
	if err != nil {
		return out, err
	}
	for k, half := range []kernel.Surface{lo, hi} {
		if half == nil {
			return out, kernel.ErrSplitFailed
		}
		a, b, err := half.Split(kernel.DirV, vm)
		if err != nil {
			return out, err
		}
		if a == nil || b == nil {
			return out, kernel.ErrSplitFailed
		}
		out[2*k], out[2*k+1] = a, b
	}
	return out, nil
}
