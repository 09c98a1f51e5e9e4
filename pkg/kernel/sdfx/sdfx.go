// Package sdfx writes index meshes and intersector leaf triangles as STL,
// and renders bounding boxes as solids, using the github.com/deadsy/sdfx
// library.
package sdfx

import (
	"errors"
	"fmt"

	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// DefaultBoxCells is the marching cubes resolution for RenderBox.
const DefaultBoxCells = 20

// ErrEmpty is returned when there is nothing to write.
var ErrEmpty = errors.New("sdfx: no triangles")

// SaveSTL writes the mesh as a binary STL file.
func SaveSTL(path string, m *kernel.Mesh) error {
	if m == nil || m.IsEmpty() {
		return ErrEmpty
	}
	return SaveTriangles(path, m.Triangles())
}

// SaveTriangles writes raw triangles as a binary STL file.
func SaveTriangles(path string, tris []*sdf.Triangle3) error {
	if len(tris) == 0 {
		return ErrEmpty
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("sdfx: save %s: %w", path, err)
	}
	return nil
}

// RenderBox tessellates a box as a solid by marching cubes over cells
// along its longest side. Flat boxes are padded to the minimum width
// first.
func RenderBox(b geom.Box, cells int) (*kernel.Mesh, error) {
	if b.IsEmpty() {
		return nil, fmt.Errorf("sdfx: render empty box")
	}
	if cells <= 0 {
		cells = DefaultBoxCells
	}
	b = b.WithMinWidth()

	s, err := sdf.Box3D(b.Size(), 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box %s: %w", b, err)
	}
	// Box3D is centered on the origin.
	s = sdf.Transform3D(s, sdf.Translate3d(b.Center()))

	m := &kernel.Mesh{Name: fmt.Sprintf("box %s", b)}
	for _, t := range render.ToTriangles(s, render.NewMarchingCubesUniform(cells)) {
		m.AddTriangle(t[0], t[1], t[2])
	}
	return m, nil
}
