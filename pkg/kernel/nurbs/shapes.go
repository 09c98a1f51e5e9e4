package nurbs

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NewPlane returns the bilinear parallelogram origin + u*uAxis + v*vAxis
// over [0,1]x[0,1].
func NewPlane(origin, uAxis, vAxis v3.Vec) *Surface {
	return NewBilinear(origin, origin.Add(uAxis), origin.Add(vAxis), origin.Add(uAxis).Add(vAxis))
}

// NewBilinear returns the degree 1x1 patch through four corners, named
// by their (u,v) corner.
func NewBilinear(p00, p10, p01, p11 v3.Vec) *Surface {
	return &Surface{
		DegreeU: 1, DegreeV: 1,
		KnotsU: []float64{0, 0, 1, 1},
		KnotsV: []float64{0, 0, 1, 1},
		CVs: [][]v3.Vec{
			{p00, p01},
			{p10, p11},
		},
	}
}

// NewCylinder returns an exact rational cylinder around the Z axis
// through center. U runs once around the circle in four quadratic spans;
// V runs from the base up by height.
func NewCylinder(center v3.Vec, radius, height float64) (*Surface, error) {
	if radius <= 0 || height <= 0 {
		return nil, fmt.Errorf("nurbs: cylinder radius %g height %g: %w", radius, height, ErrInvalid)
	}
	r := radius
	ring := [9][2]float64{
		{r, 0}, {r, r}, {0, r}, {-r, r}, {-r, 0}, {-r, -r}, {0, -r}, {r, -r}, {r, 0},
	}
	w := math.Sqrt2 / 2
	cvs := make([][]v3.Vec, len(ring))
	weights := make([][]float64, len(ring))
	for i, xy := range ring {
		base := center.Add(v3.Vec{X: xy[0], Y: xy[1]})
		cvs[i] = []v3.Vec{base, base.Add(v3.Vec{Z: height})}
		wi := 1.0
		if i%2 == 1 {
			wi = w
		}
		weights[i] = []float64{wi, wi}
	}
	knotsU := []float64{0, 0, 0, 0.25, 0.25, 0.5, 0.5, 0.75, 0.75, 1, 1, 1}
	return NewSurface(2, 1, knotsU, []float64{0, 0, 1, 1}, cvs, weights)
}

// NewDome returns a single-span bicubic patch over the square [0,size]²
// in XY whose boundary lies in z=0 and whose four interior control points
// are raised to height.
func NewDome(size, height float64) *Surface {
	knots := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	cvs := make([][]v3.Vec, 4)
	for i := range cvs {
		cvs[i] = make([]v3.Vec, 4)
		for j := range cvs[i] {
			z := 0.0
			if i > 0 && i < 3 && j > 0 && j < 3 {
				z = height
			}
			cvs[i][j] = v3.Vec{X: size * float64(i) / 3, Y: size * float64(j) / 3, Z: z}
		}
	}
	return &Surface{DegreeU: 3, DegreeV: 3, KnotsU: knots, KnotsV: knots, CVs: cvs}
}
