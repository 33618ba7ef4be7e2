package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bankloan/dataset"
	"github.com/YuminosukeSato/bankloan/sklearn/model_selection"
)

func newGridCmd(a *app) *cobra.Command {
	var predictors int
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the Latin-hypercube candidate grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			space := model_selection.DefaultSpace().Finalize(predictors)
			grid, err := model_selection.LatinHypercube(space, a.cfg.GridSize, a.cfg.Seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := space.Names()
			fmt.Fprintf(out, ".config\t%s\n", strings.Join(names, "\t"))
			for _, set := range grid.Sets {
				row := make([]string, len(names))
				for i, n := range names {
					row[i] = fmt.Sprintf("%.6g", set.Values[n])
				}
				fmt.Fprintf(out, "%s\t%s\n", set.ID, strings.Join(row, "\t"))
			}
			return nil
		},
	}
	// ID and the label are not predictors
	cmd.Flags().IntVar(&predictors, "predictors", len(dataset.Columns)-2, "number of predictors bounding mtry")
	return cmd
}
