package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"quizsphere/internal/config"
	"quizsphere/internal/domain"
)

// NewReportsCmd lists archived reports for a participant.
func NewReportsCmd(configPath *string) *cobra.Command {
	var participant string
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List archived reports for a participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			reports, err := rt.service.History(cmd.Context(), participant)
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().StringVar(&participant, "participant", "", "participant email or label")
	_ = cmd.MarkFlagRequired("participant")
	return cmd
}

func printReports(out io.Writer, reports []domain.Report) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(out, "no reports")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMPLETED\tSCORE\tPERFORMANCE\tTIME\tTRIGGER")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.CompletedAt.Format("2006-01-02 15:04"), r.Score, r.Performance, r.TimeSpent, r.Trigger)
	}
	return w.Flush()
}
