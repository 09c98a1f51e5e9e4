package intersect

import (
	"cmp"
	"slices"
)

// coincidentFrac scales the chaining threshold down to the distance
// under which two estimates are the same point.
const coincidentFrac = 1e-6

// dropCoincident keeps the first of every group of points within eps of
// each other. Leaf pairs meeting at a shared edge report the same
// estimate.
func dropCoincident(pts []point, eps float64) []point {
	out := pts[:0:0]
	for _, p := range pts {
		if !slices.ContainsFunc(out, func(q point) bool { return q.p.Sub(p.p).Length() <= eps }) {
			out = append(out, p)
		}
	}
	return out
}

type link struct {
	i, j int
	d    float64
}

// chainPoints joins points into polylines of point indices. Every pair
// closer than threshold is visited in order of distance and joins the two
// polylines it connects when both points are still free ends. A polyline
// of three or more points whose ends are within threshold is closed by
// repeating its first index. Single points are dropped.
func chainPoints(pts []point, threshold float64) [][]int {
	var links []link
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if d := pts[i].p.Sub(pts[j].p).Length(); d < threshold {
				links = append(links, link{i, j, d})
			}
		}
	}
	slices.SortStableFunc(links, func(a, b link) int { return cmp.Compare(a.d, b.d) })

	lines := make([][]int, len(pts))
	// owner maps a point to the polyline it ends, or -1 once it is
	// interior.
	owner := make([]int, len(pts))
	for i := range pts {
		lines[i] = []int{i}
		owner[i] = i
	}

	for _, l := range links {
		a, b := owner[l.i], owner[l.j]
		if a < 0 || b < 0 || a == b {
			continue
		}
		la, lb := lines[a], lines[b]
		if la[len(la)-1] != l.i {
			slices.Reverse(la)
		}
		if lb[0] != l.j {
			slices.Reverse(lb)
		}
		joined := append(la, lb...)
		lines[a], lines[b] = joined, nil

		owner[l.i], owner[l.j] = -1, -1
		owner[joined[0]], owner[joined[len(joined)-1]] = a, a
	}

	var out [][]int
	for _, line := range lines {
		if len(line) < 2 {
			continue
		}
		head, tail := line[0], line[len(line)-1]
		if len(line) >= 3 && pts[head].p.Sub(pts[tail].p).Length() < threshold {
			line = append(line, head)
		}
		out = append(out, line)
	}
	return out
}
