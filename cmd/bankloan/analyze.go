package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bankloan/analysis"
	"github.com/YuminosukeSato/bankloan/report"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis and write plots, predictions and a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := analysis.Run(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			best, err := res.Tuning.ShowBest(a.cfg.Metric, 5)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Best candidates by %s (%d bootstraps):\n", a.cfg.Metric, len(res.Resamples))
			if err := report.TuningTable(out, best, res.Space.Names()); err != nil {
				return err
			}

			fmt.Fprintln(out, "\nHoldout metrics:")
			if err := report.MetricsTable(out, res.TestMetrics); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nAt P(%s) >= %g (Youden alternative: %.3f):\n",
				a.cfg.ThresholdClass, a.cfg.Threshold, res.Youden)
			if err := report.MetricsTable(out, res.ClassifiedMetrics); err != nil {
				return err
			}

			fmt.Fprintln(out, "\nWrote:")
			for _, f := range res.Files {
				fmt.Fprintln(out, "  "+f)
			}
			return nil
		},
	}
}
