package kernel

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle soup used to inspect index leaves: each leaf patch
// or intersector leaf contributes two triangles from its corners.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which face or surface this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// AddTriangle appends an unshared triangle with a flat face normal.
// Zero-area triangles are skipped.
func (m *Mesh) AddTriangle(a, b, c v3.Vec) bool {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l == 0 {
		return false
	}
	n = n.DivScalar(l)
	base := uint32(m.VertexCount())
	for _, p := range [3]v3.Vec{a, b, c} {
		m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	m.Indices = append(m.Indices, base, base+1, base+2)
	return true
}

// AddPatch appends the two triangles spanning a patch's corners, given
// counter-clockwise from (umin, vmin).
func (m *Mesh) AddPatch(c0, c1, c2, c3 v3.Vec) {
	m.AddTriangle(c0, c1, c2)
	m.AddTriangle(c0, c2, c3)
}

// Triangles converts the mesh to sdfx triangles for rendering or export.
func (m *Mesh) Triangles() []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for i := 0; i+2 < len(m.Indices); i += 3 {
		var t sdf.Triangle3
		for j := 0; j < 3; j++ {
			k := int(m.Indices[i+j]) * 3
			t[j] = v3.Vec{
				X: float64(m.Vertices[k]),
				Y: float64(m.Vertices[k+1]),
				Z: float64(m.Vertices[k+2]),
			}
		}
		out = append(out, &t)
	}
	return out
}
