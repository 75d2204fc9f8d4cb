package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/launchpad-match/internal/importer"
)

var (
	importWindow int
	importLimit  int
)

var importJobsCmd = &cobra.Command{
	Use:   "import-jobs FILE",
	Short: "Import job postings from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		records, err := importer.Decode(f)
		if err != nil {
			return err
		}

		a, err := setup(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := importer.Import(cmd.Context(), a.Jobs, records, importer.Options{
			DefaultWindow: importWindow,
			Limit:         importLimit,
			Logger:        a.Logger,
		})
		if err != nil {
			return err
		}
		for _, p := range res.Problems {
			cmd.PrintErrln(p)
		}
		cmd.Printf("created %d, skipped %d duplicate(s), failed %d\n", res.Created, res.Skipped, res.Failed)
		return nil
	},
}

func init() {
	importJobsCmd.Flags().IntVar(&importWindow, "default-window", 0, "days from today used as application end date when a record has none (0 = leave empty)")
	importJobsCmd.Flags().IntVarP(&importLimit, "limit", "l", 0, "import at most this many records (0 = all)")
	rootCmd.AddCommand(importJobsCmd)
}
