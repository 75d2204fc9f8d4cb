package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/service"
)

var embedLimit int

var embedJobsCmd = &cobra.Command{
	Use:   "embed-jobs",
	Short: "Compute embeddings for jobs that do not have one",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.Backfill.Run(cmd.Context(), service.TriggerCLI, embedLimit)
		if err != nil {
			return err
		}
		a.Logger.Info("embedding backfill done",
			zap.String("status", run.Status),
			zap.Int("embedded", run.Embedded),
			zap.Int("failed", run.Failed),
			zap.Int("pending_at_start", run.Total))
		cmd.Printf("embedded %d job(s), %d failed\n", run.Embedded, run.Failed)
		return nil
	},
}

func init() {
	embedJobsCmd.Flags().IntVarP(&embedLimit, "limit", "l", 0, "embed at most this many jobs (0 = all)")
	rootCmd.AddCommand(embedJobsCmd)
}
