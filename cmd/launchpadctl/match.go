package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/launchpad-match/internal/export"
)

var (
	matchFallback bool
	matchLimit    int
	matchExport   string
)

var matchCmd = &cobra.Command{
	Use:   "match CANDIDATE_ID",
	Short: "Rank jobs for a candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		run := a.Matches.Match
		if matchFallback {
			run = a.Matches.Fallback
		}
		out, err := run(cmd.Context(), args[0], matchLimit)
		if err != nil {
			return err
		}

		cmd.Printf("%d match(es) for %s (%s mode)\n", len(out.Matches), out.Candidate.Name, out.Mode)
		for i, m := range out.Matches {
			cmd.Printf("%2d. %5.1f  %s", i+1, m.Score, m.Job.Title)
			if m.Job.Company != "" {
				cmd.Printf(" @ %s", m.Job.Company)
			}
			cmd.Println()
			if len(m.Reasons) > 0 {
				cmd.Printf("      %s\n", strings.Join(m.Reasons, " | "))
			}
		}

		if matchExport != "" {
			path, err := export.MatchesToExcel(out.Candidate, out.Matches, out.Mode, matchExport)
			if err != nil {
				return err
			}
			cmd.Printf("exported to %s\n", path)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().BoolVar(&matchFallback, "fallback", false, "use rule-based matching only")
	matchCmd.Flags().IntVarP(&matchLimit, "limit", "l", 10, "maximum number of jobs")
	matchCmd.Flags().StringVar(&matchExport, "export", "", "also write the results to this .xlsx file")
	rootCmd.AddCommand(matchCmd)
}
