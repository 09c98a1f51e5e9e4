// Package tessellate walks a scene and produces one leaf-patch mesh per
// face, built from the face's surface tree.
package tessellate

import (
	"fmt"

	"github.com/chazu/surftree/pkg/brep"
	"github.com/chazu/surftree/pkg/kernel"
	"github.com/chazu/surftree/pkg/scene"
	"github.com/chazu/surftree/pkg/surftree"
	"github.com/deadsy/sdfx/sdf"
)

// Part is one tessellated face.
type Part struct {
	Name string
	Face *brep.Face
	Tree *surftree.Tree
	Mesh *kernel.Mesh
}

// Tessellate walks the scene in insertion order and builds a tree and
// mesh for every face. The scene is never mutated.
func Tessellate(sc *scene.Scene, opts surftree.Options) ([]Part, error) {
	if sc == nil {
		return nil, nil
	}

	var parts []Part
	for _, id := range sc.Order {
		o := sc.Get(id)
		if o == nil {
			continue
		}
		switch o.Kind {
		case scene.KindFace:
			fd, ok := o.Data.(scene.FaceData)
			if !ok {
				return nil, fmt.Errorf("tessellate: face %s has unexpected data type %T", id.Short(), o.Data)
			}
			p, err := Face(fd.Face, o.Name, opts)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)

		case scene.KindSurface, scene.KindCurve, scene.KindTrim, scene.KindLoop:
			// Only faces carry a domain to index.

		default:
			return nil, fmt.Errorf("tessellate: unknown object kind %v", o.Kind)
		}
	}
	return parts, nil
}

// Face builds the tree and mesh of a single face. An empty name falls
// back to the mesh's face-index name.
func Face(f *brep.Face, name string, opts surftree.Options) (Part, error) {
	tree, err := surftree.Build(f, opts)
	if err != nil {
		return Part{}, fmt.Errorf("tessellate: face %d: %w", f.Index(), err)
	}
	mesh := tree.Mesh()
	if name != "" {
		mesh.Name = name
	} else {
		name = mesh.Name
	}
	return Part{Name: name, Face: f, Tree: tree, Mesh: mesh}, nil
}

// Triangles concatenates the meshes of parts.
func Triangles(parts []Part) []*sdf.Triangle3 {
	var tris []*sdf.Triangle3
	for _, p := range parts {
		tris = append(tris, p.Mesh.Triangles()...)
	}
	return tris
}
