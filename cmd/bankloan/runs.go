package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/store"
)

func newRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List tuning runs stored in --results-db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ResultsDB == "" {
				return errors.NewValidationError("results_db", "is required for runs", a.cfg.ResultsDB)
			}
			db, err := store.Open(cmd.Context(), a.cfg.ResultsDB)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.Runs(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%s\t%s\t%s\tseed=%d\t%s=%s\n",
					r.ID, r.StartedAt.Format("2006-01-02T15:04:05Z"), r.Data, r.Seed, r.Metric, r.BestConfig)
			}
			return nil
		},
	}
}
