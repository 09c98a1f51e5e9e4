package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/chazu/surftree/pkg/export"
	"github.com/chazu/surftree/pkg/geom"
	"github.com/chazu/surftree/pkg/pullback"
)

// PullbackSummary describes a pulled-back curve.
type PullbackSummary struct {
	Face    int        `yaml:"face"`
	Curve   string     `yaml:"curve"`
	Samples int        `yaml:"samples"`
	Degree  int        `yaml:"degree"`
	CVs     int        `yaml:"cvs"`
	Start   [2]float64 `yaml:"start"`
	End     [2]float64 `yaml:"end"`
}

type pullbackFlags struct {
	face    string
	curve   string
	geojson string
}

// NewPullbackCommand creates the pullback subcommand.
func NewPullbackCommand(g *Globals) *cobra.Command {
	var pf pullbackFlags

	cmd := &cobra.Command{
		Use:   "pullback <scene>",
		Short: "Map a 3D curve on a face into the face's parameter space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if err := r.runPullback(args[0], pf); err != nil {
				return err
			}
			return r.finish()
		},
	}

	cmd.Flags().StringVar(&pf.face, "face", "", "face name or index")
	cmd.Flags().StringVar(&pf.curve, "curve", "", "name of a curve defined with defcurve")
	cmd.Flags().StringVar(&pf.geojson, "geojson", "", "write the UV curve as GeoJSON")
	_ = cmd.MarkFlagRequired("face")
	_ = cmd.MarkFlagRequired("curve")

	return cmd
}

func (r *run) runPullback(path string, pf pullbackFlags) error {
	sc, err := r.loadScene(path)
	if err != nil {
		return err
	}
	face, err := sc.Face(pf.face)
	if err != nil {
		return err
	}
	curve, err := sc.Curve(pf.curve)
	if err != nil {
		return err
	}
	tree, err := r.buildTree(face)
	if err != nil {
		return err
	}

	samples, err := pullback.Samples(face, curve, tree, r.cfg.Pullback)
	if err != nil {
		return err
	}
	uv, err := pullback.Fit(samples)
	if err != nil {
		return fmt.Errorf("pullback: face %d: %w", face.Index(), err)
	}

	d := uv.Domain()
	start, end := geom.Flatten(uv.PointAt(d.Min)), geom.Flatten(uv.PointAt(d.Max))
	s := PullbackSummary{
		Face:    face.Index(),
		Curve:   pf.curve,
		Samples: len(samples),
		Degree:  uv.Degree,
		CVs:     len(uv.CVs),
		Start:   [2]float64{start.X, start.Y},
		End:     [2]float64{end.X, end.Y},
	}

	if pf.geojson != "" {
		fc := geojson.NewFeatureCollection()
		fc.Append(export.Pullback(face.Index(), uv, export.DefaultSamples))
		if err := writeFile(pf.geojson, func(w io.Writer) error { return export.Write(w, fc) }); err != nil {
			return err
		}
	}

	tbl := newTable(table.Row{"Face", "Curve", "Samples", "Degree", "CVs", "Start UV", "End UV"})
	tbl.AppendRow(table.Row{
		s.Face, s.Curve, s.Samples, s.Degree, s.CVs,
		fmt.Sprintf("(%.6g, %.6g)", s.Start[0], s.Start[1]),
		fmt.Sprintf("(%.6g, %.6g)", s.End[0], s.End[1]),
	})
	return r.emit(tbl, s)
}
