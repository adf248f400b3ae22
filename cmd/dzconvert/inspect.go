package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menta2k/deepzoom/pkg/dzi"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.dzi",
		Short: "Print a descriptor and the level geometry it implies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := dzi.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := doc.Validate(); err != nil {
				return err
			}

			cfg, err := a.loadConfig(a.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			planner := cfg.Planner()
			planner.TileSize = doc.TileSize
			planner.Overlap = doc.Overlap

			levels, err := planner.Plan(doc.Width, doc.Height)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Image: %dx%d\n", doc.Width, doc.Height)
			fmt.Fprintf(out, "Tiles: %dpx, overlap %d, format %s\n\n", doc.TileSize, doc.Overlap, doc.Format)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tSCALE\tSIZE\tGRID\tTILES")
			for _, lvl := range levels {
				fmt.Fprintf(tw, "%d\t1/%d\t%dx%d\t%dx%d\t%d\n",
					lvl.Index, lvl.Scale, lvl.Width, lvl.Height, lvl.Columns, lvl.Rows, lvl.TileCount())
			}
			return tw.Flush()
		},
	}
}
