// Package main provides the entry point for the surftree CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/surftree/cmd/surftree/commands"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var g commands.Globals

	root := &cobra.Command{
		Use:   "surftree",
		Short: "Spatial indexing and intersection of trimmed surfaces",
		Long: `surftree builds bounding-volume hierarchies over trimmed surfaces
described in a Lisp scene script, and answers queries against them.

Commands:
  tree       Build surface trees and report their shape
  closest    Closest point on a face
  pullback   Map a 3D curve into a face's parameter space
  intersect  Surface-surface intersection polylines
  validate   Structural checks on every face`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.Register(root)

	root.AddCommand(
		commands.NewTreeCommand(&g),
		commands.NewClosestCommand(&g),
		commands.NewPullbackCommand(&g),
		commands.NewIntersectCommand(&g),
		commands.NewValidateCommand(&g),
	)
	return root
}
