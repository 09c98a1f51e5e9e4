package closest

import (
	"math"

	"github.com/chazu/surftree/pkg/surftree"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Project returns the UV of a surface point within tol of pt using
// default options. from is a nearby point already known to be on the
// surface, such as the previous sample of a curve being mapped.
func Project(tree *surftree.Tree, pt, from v3.Vec, tol float64) (v2.Vec, bool) {
	r, ok := NewSolver(tree, Options{}).Project(pt, from, tol)
	return r.UV, ok
}

// Project searches leaf by leaf for a surface point within tol of pt.
// Leaves whose boxes hold from are tried before leaves whose boxes hold
// pt. Each leaf runs Newton's method seeded at its center and confined to
// its own parameter rectangle. A hit closer than SamePointTol ends the
// search; otherwise the nearest hit within tol wins.
func (s *Solver) Project(pt, from v3.Vec, tol float64) (Result, bool) {
	best := Result{Distance: math.Inf(1)}
	found := false
	tried := make(map[int]bool)

	for _, leaves := range [2][]int{s.tree.LeavesBoundingPoint(from), s.tree.LeavesBoundingPoint(pt)} {
		for _, h := range leaves {
			if tried[h] {
				continue
			}
			tried[h] = true
			n := s.tree.Node(h)
			r, ok := s.newton(pt, n.UV(), n.U, n.V, tol)
			if !ok {
				continue
			}
			if r.Distance <= SamePointTol {
				return r, true
			}
			if r.Distance <= tol && r.Distance < best.Distance {
				best, found = r, true
			}
		}
	}
	return best, found
}
