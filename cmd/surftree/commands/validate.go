package commands

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chazu/surftree/pkg/brep"
)

// ErrInvalidScene is returned when a face has error-severity findings.
var ErrInvalidScene = errors.New("scene has invalid faces")

// Finding is one validation result.
type Finding struct {
	Face     int    `yaml:"face"`
	Severity string `yaml:"severity"`
	Code     string `yaml:"code"`
	Loop     int    `yaml:"loop"`
	Trim     int    `yaml:"trim"`
	Message  string `yaml:"message"`
}

// NewValidateCommand creates the validate subcommand.
func NewValidateCommand(g *Globals) *cobra.Command {
	var tol float64

	cmd := &cobra.Command{
		Use:   "validate <scene>",
		Short: "Check every face's loops before indexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if err := r.runValidate(args[0], tol); err != nil {
				return err
			}
			return r.finish()
		},
	}

	cmd.Flags().Float64Var(&tol, "tol", brep.DefaultClosureTol, "loop closure and domain tolerance")

	return cmd
}

func (r *run) runValidate(path string, tol float64) error {
	sc, err := r.loadScene(path)
	if err != nil {
		return err
	}

	byFace := sc.Validate(tol)
	faces := make([]int, 0, len(byFace))
	for f := range byFace {
		faces = append(faces, f)
	}
	slices.Sort(faces)

	findings := []Finding{}
	invalid := 0
	tbl := newTable(table.Row{"Face", "Severity", "Code", "Loop", "Trim", "Message"})
	for _, f := range faces {
		errs := byFace[f]
		if brep.HasErrors(errs) {
			invalid++
		}
		for _, e := range errs {
			fd := Finding{Face: f, Severity: e.Severity.String(), Code: e.Code, Loop: e.Loop, Trim: e.Trim, Message: e.Message}
			findings = append(findings, fd)
			tbl.AppendRow(table.Row{fd.Face, fd.Severity, fd.Code, fd.Loop, fd.Trim, fd.Message})
		}
	}
	tbl.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("%d faces, %d invalid", len(sc.Faces()), invalid)})

	if err := r.emit(tbl, findings); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d: %w", invalid, len(sc.Faces()), ErrInvalidScene)
	}
	return nil
}
