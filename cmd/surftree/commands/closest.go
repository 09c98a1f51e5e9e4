package commands

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chazu/surftree/pkg/closest"
)

// ErrNoClosestPoint is returned when the solver does not converge.
var ErrNoClosestPoint = errors.New("no closest point found")

// ClosestSummary is the outcome of one closest-point query.
type ClosestSummary struct {
	Face       int     `yaml:"face"`
	U          float64 `yaml:"u"`
	V          float64 `yaml:"v"`
	Point      string  `yaml:"point"`
	Distance   float64 `yaml:"distance"`
	Iterations int     `yaml:"iterations"`
	Retried    bool    `yaml:"retried"`
}

type closestFlags struct {
	face  string
	point string
	from  string
	tol   float64
}

// NewClosestCommand creates the closest subcommand.
func NewClosestCommand(g *Globals) *cobra.Command {
	var cf closestFlags

	cmd := &cobra.Command{
		Use:   "closest <scene>",
		Short: "Find the surface parameters nearest a 3D point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if cf.tol > 0 {
				r.cfg.Tolerance = cf.tol
			}
			if err := r.runClosest(args[0], cf); err != nil {
				return err
			}
			return r.finish()
		},
	}

	cmd.Flags().StringVar(&cf.face, "face", "", "face name or index")
	cmd.Flags().StringVar(&cf.point, "point", "", "query point as x,y,z")
	cmd.Flags().StringVar(&cf.from, "from", "", "known surface point near the query; searches leaf by leaf")
	cmd.Flags().Float64Var(&cf.tol, "tol", 0, "convergence tolerance (0 = configured)")
	_ = cmd.MarkFlagRequired("face")
	_ = cmd.MarkFlagRequired("point")

	return cmd
}

func (r *run) runClosest(path string, cf closestFlags) error {
	pt, err := parseVec3(cf.point)
	if err != nil {
		return fmt.Errorf("--point: %w", err)
	}

	sc, err := r.loadScene(path)
	if err != nil {
		return err
	}
	face, err := sc.Face(cf.face)
	if err != nil {
		return err
	}
	tree, err := r.buildTree(face)
	if err != nil {
		return err
	}

	solver := closest.NewSolver(tree, r.cfg.Closest)
	var (
		res closest.Result
		ok  bool
	)
	if cf.from != "" {
		from, err := parseVec3(cf.from)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		res, ok = solver.Project(pt, from, r.cfg.Tolerance)
	} else {
		res, ok = solver.Solve(pt, r.cfg.Tolerance)
	}
	if !ok {
		return fmt.Errorf("face %d, point %s: %w", face.Index(), fmtVec3(pt), ErrNoClosestPoint)
	}

	s := ClosestSummary{
		Face:       face.Index(),
		U:          res.UV.X,
		V:          res.UV.Y,
		Point:      fmtVec3(res.Point),
		Distance:   res.Distance,
		Iterations: res.Iterations,
		Retried:    res.Retried,
	}
	tbl := newTable(table.Row{"Face", "U", "V", "Point", "Distance", "Iterations", "Retried"})
	tbl.AppendRow(table.Row{s.Face, s.U, s.V, s.Point, s.Distance, s.Iterations, s.Retried})
	return r.emit(tbl, s)
}
