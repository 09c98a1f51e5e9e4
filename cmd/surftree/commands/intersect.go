package commands

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chazu/surftree/pkg/export"
	"github.com/chazu/surftree/pkg/intersect"
)

// IntersectSummary describes one intersection run.
type IntersectSummary struct {
	Polylines    []PolylineSummary `yaml:"polylines"`
	LeafPairs    int               `yaml:"leaf_pairs"`
	DroppedPairs int               `yaml:"dropped_pairs"`
	Points       int               `yaml:"points"`
	Threshold    float64           `yaml:"threshold"`
}

// PolylineSummary describes one intersection polyline.
type PolylineSummary struct {
	Points int    `yaml:"points"`
	Closed bool   `yaml:"closed"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
}

type intersectFlags struct {
	a, b    string
	depth   int
	merge   float64
	stl     string
	geojson string
}

// NewIntersectCommand creates the intersect subcommand.
func NewIntersectCommand(g *Globals) *cobra.Command {
	var xf intersectFlags

	cmd := &cobra.Command{
		Use:   "intersect <scene>",
		Short: "Approximate the intersection curves of two surfaces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if xf.depth > 0 {
				r.cfg.Intersect.MaxDepth = xf.depth
			}
			if xf.merge > 0 {
				r.cfg.Intersect.MergeDistance = xf.merge
			}
			if xf.stl != "" {
				r.cfg.Intersect.KeepTriangles = true
			}
			if err := r.runIntersect(args[0], xf); err != nil {
				return err
			}
			return r.finish()
		},
	}

	cmd.Flags().StringVar(&xf.a, "a", "", "first surface or face name")
	cmd.Flags().StringVar(&xf.b, "b", "", "second surface or face name")
	cmd.Flags().IntVar(&xf.depth, "depth", 0, "split levels (0 = configured)")
	cmd.Flags().Float64Var(&xf.merge, "merge", 0, "chaining distance (0 = configured or automatic)")
	cmd.Flags().StringVar(&xf.stl, "stl", "", "write the leaf triangles as STL")
	cmd.Flags().StringVar(&xf.geojson, "geojson", "", "write the UV polylines as GeoJSON")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")

	return cmd
}

func (r *run) runIntersect(path string, xf intersectFlags) error {
	sc, err := r.loadScene(path)
	if err != nil {
		return err
	}
	a, err := sc.Surface(xf.a)
	if err != nil {
		return err
	}
	b, err := sc.Surface(xf.b)
	if err != nil {
		return err
	}

	results, stats, err := intersect.New(r.cfg.Intersect).Intersect(a, b)
	if err != nil {
		return err
	}

	if xf.stl != "" {
		if err := r.saveSTL(xf.stl, stats.Triangles); err != nil {
			return err
		}
	}
	if xf.geojson != "" {
		fc := export.Intersections(results)
		if err := writeFile(xf.geojson, func(w io.Writer) error { return export.Write(w, fc) }); err != nil {
			return err
		}
	}

	s := IntersectSummary{
		LeafPairs:    stats.LeafPairs,
		DroppedPairs: stats.DroppedPairs,
		Points:       stats.Points,
		Threshold:    stats.Threshold,
	}
	tbl := newTable(table.Row{"#", "Points", "Closed", "Start", "End"})
	for i, res := range results {
		p := PolylineSummary{
			Points: len(res.Points),
			Closed: res.Closed,
			Start:  fmtVec3(res.Points[0]),
			End:    fmtVec3(res.Points[len(res.Points)-1]),
		}
		s.Polylines = append(s.Polylines, p)
		tbl.AppendRow(table.Row{i, p.Points, p.Closed, p.Start, p.End})
	}
	tbl.AppendFooter(table.Row{"", s.Points, "", "leaf pairs", s.LeafPairs})
	if s.DroppedPairs > 0 {
		r.log.Warn("subsurface pairs dropped", "count", s.DroppedPairs)
	}
	return r.emit(tbl, s)
}
