package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services/report"
)

func parseType(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case "daily":
		return models.ReportTypeDaily, nil
	case "weekly":
		return models.ReportTypeWeekly, nil
	}
	return "", fmt.Errorf("unknown report type %q, expected daily or weekly", arg)
}

func (a *App) reportCmd() *cobra.Command {
	var userID uint
	var date string

	cmd := &cobra.Command{
		Use:   "report <daily|weekly>",
		Short: "Generate and store one user's report",
		Long: `Generate a report for a single user and print its summary.

--date picks the day (daily) or the last day of the week (weekly);
it defaults to today.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportType, err := parseType(args[0])
			if err != nil {
				return err
			}
			if userID == 0 {
				return fmt.Errorf("--user is required")
			}
			var day *time.Time
			if date != "" {
				t, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				day = &t
			}

			var rec *report.Record
			if reportType == models.ReportTypeDaily {
				rec, err = a.reports.GenerateDaily(cmd.Context(), userID, day)
			} else {
				rec, err = a.reports.GenerateWeekly(cmd.Context(), userID, day)
			}
			if err != nil {
				return fmt.Errorf("generating report: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s report %s (%s - %s)\n", rec.Type, rec.ID,
				rec.WindowStart.Format("2006-01-02"), rec.WindowEnd.Format("2006-01-02"))
			fmt.Fprintf(out, "created=%d completed=%d in_progress=%d overdue=%d\n",
				rec.Statistics.CreatedCount, rec.Statistics.CompletedCount,
				rec.Statistics.InProgressCount, rec.Statistics.OverdueCount)
			fmt.Fprintln(out, rec.Summary)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user ID")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD")
	return cmd
}

func (a *App) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <daily|weekly>",
		Short: "Email the report to every verified user now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportType, err := parseType(args[0])
			if err != nil {
				return err
			}

			var result report.BatchResult
			if reportType == models.ReportTypeDaily {
				result, err = a.scheduler.RunDaily(cmd.Context())
			} else {
				result, err = a.scheduler.RunWeekly(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("running batch: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d users, %d sent, %d failed in %s\n",
				result.Trigger, result.Total, result.Success, result.Failed, result.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func (a *App) pruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete reports past the retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.settings().RetentionDays
			}
			if days <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "retention disabled, nothing to prune")
				return nil
			}
			deleted, err := report.PruneReports(cmd.Context(), a.store, days, time.Now())
			if err != nil {
				return fmt.Errorf("pruning reports: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d report(s) older than %d day(s)\n", deleted, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (defaults to the configured value)")
	return cmd
}
