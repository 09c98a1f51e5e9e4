package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chazu/surftree/pkg/brep"
	"github.com/chazu/surftree/pkg/export"
	"github.com/chazu/surftree/pkg/kernel/sdfx"
	"github.com/chazu/surftree/pkg/scene"
	"github.com/chazu/surftree/pkg/surftree"
	"github.com/chazu/surftree/pkg/tessellate"
	"github.com/deadsy/sdfx/sdf"
	"github.com/paulmach/orb/geojson"
)

// ErrNoFaces is returned when a scene defines no faces.
var ErrNoFaces = errors.New("scene has no faces")

// TreeSummary describes one built surface tree.
type TreeSummary struct {
	Face       int    `yaml:"face"`
	Name       string `yaml:"name"`
	Nodes      int    `yaml:"nodes"`
	Leaves     int    `yaml:"leaves"`
	Depth      int    `yaml:"depth"`
	TrimLeaves int    `yaml:"trim_leaves"`
	Box        string `yaml:"box"`
}

type treeFlags struct {
	face    string
	trimmed bool
	depth   int
	stl     string
	boxes   bool
	geojson string
}

// NewTreeCommand creates the tree subcommand.
func NewTreeCommand(g *Globals) *cobra.Command {
	var tf treeFlags

	cmd := &cobra.Command{
		Use:   "tree <scene>",
		Short: "Build surface trees and print their leaf and depth counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("trimmed") {
				r.cfg.Tree.Trimmed = tf.trimmed
			}
			if tf.depth > 0 {
				r.cfg.Tree.DepthLimit = tf.depth
			}
			if err := r.runTree(args[0], tf); err != nil {
				return err
			}
			return r.finish()
		},
	}

	cmd.Flags().StringVar(&tf.face, "face", "", "face name or index (default: every face)")
	cmd.Flags().BoolVar(&tf.trimmed, "trimmed", false, "index trimming loops and prune trimmed leaves")
	cmd.Flags().IntVar(&tf.depth, "depth", 0, "depth limit (0 = configured)")
	cmd.Flags().StringVar(&tf.stl, "stl", "", "write leaf patches as STL")
	cmd.Flags().BoolVar(&tf.boxes, "boxes", false, "with --stl, write leaf boxes as solids instead of patches")
	cmd.Flags().StringVar(&tf.geojson, "geojson", "", "write leaf domains and trim leaf boxes as GeoJSON")

	return cmd
}

func (r *run) faceParts(sc *scene.Scene, ref string) ([]tessellate.Part, error) {
	if ref == "" {
		parts, err := tessellate.Tessellate(sc, r.cfg.Tree)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return nil, ErrNoFaces
		}
		return parts, nil
	}
	f, err := sc.Face(ref)
	if err != nil {
		return nil, err
	}
	name := ""
	if sc.Lookup(ref) != nil {
		name = ref
	}
	p, err := tessellate.Face(f, name, r.cfg.Tree)
	if err != nil {
		return nil, err
	}
	return []tessellate.Part{p}, nil
}

func (r *run) buildTree(f *brep.Face) (*surftree.Tree, error) {
	tree, err := surftree.Build(f, r.cfg.Tree)
	if err != nil {
		return nil, fmt.Errorf("build face %d: %w", f.Index(), err)
	}
	return tree, nil
}

func (r *run) runTree(path string, tf treeFlags) error {
	sc, err := r.loadScene(path)
	if err != nil {
		return err
	}
	parts, err := r.faceParts(sc, tf.face)
	if err != nil {
		return err
	}

	summaries := make([]TreeSummary, 0, len(parts))
	tbl := newTable(table.Row{"Face", "Name", "Nodes", "Leaves", "Depth", "Trim leaves", "Box"})
	for _, p := range parts {
		tree := p.Tree
		s := TreeSummary{
			Face:   p.Face.Index(),
			Name:   p.Name,
			Nodes:  tree.Len(),
			Leaves: tree.LeafCount(),
			Depth:  tree.Depth(),
			Box:    tree.Node(tree.Root()).Box.String(),
		}
		if ct := tree.CurveTree(); ct != nil {
			s.TrimLeaves = ct.LeafCount()
		}
		summaries = append(summaries, s)
		tbl.AppendRow(table.Row{s.Face, s.Name, s.Nodes, s.Leaves, s.Depth, s.TrimLeaves, s.Box})
	}

	if tf.stl != "" {
		if err := r.writeTreeSTL(tf.stl, parts, tf.boxes); err != nil {
			return err
		}
	}
	if tf.geojson != "" {
		fc := geojson.NewFeatureCollection()
		for _, p := range parts {
			fc.Features = append(fc.Features, export.SurfaceTreeLeaves(p.Tree).Features...)
			if ct := p.Tree.CurveTree(); ct != nil {
				fc.Features = append(fc.Features, export.CurveTreeLeaves(ct).Features...)
			}
		}
		if err := writeFile(tf.geojson, func(w io.Writer) error { return export.Write(w, fc) }); err != nil {
			return err
		}
	}

	return r.emit(tbl, summaries)
}

func (r *run) writeTreeSTL(path string, parts []tessellate.Part, boxes bool) error {
	if !boxes {
		return r.saveSTL(path, tessellate.Triangles(parts))
	}
	var tris []*sdf.Triangle3
	for _, p := range parts {
		for _, h := range p.Tree.Leaves() {
			m, err := sdfx.RenderBox(p.Tree.Node(h).Box, 0)
			if err != nil {
				return err
			}
			tris = append(tris, m.Triangles()...)
		}
	}
	return r.saveSTL(path, tris)
}

func (r *run) saveSTL(path string, tris []*sdf.Triangle3) error {
	if err := sdfx.SaveTriangles(path, tris); err != nil {
		return err
	}
	r.log.Info("wrote stl", "path", path, "triangles", len(tris))
	return nil
}
