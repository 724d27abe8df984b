package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagewise/bookstore/backend/internal/app"
)

var (
	cleanupStaleAfter time.Duration
	analyzeOwner      string
	analyzeDays       int
	analyzeTimeout    time.Duration
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Fail reports stuck in a non-terminal state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanupStaleAfter <= 0 {
			return fmt.Errorf("--stale-after must be positive")
		}
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			n, err := c.Insights.CleanupStuckReports(ctx, cleanupStaleAfter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"failed_reports": n,
				"stale_after":    cleanupStaleAfter.String(),
			})
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Generate an insight report and wait for it to finish",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeOwner == "" {
			return fmt.Errorf("--owner is required")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
		defer cancel()

		return withContainer(ctx, func(ctx context.Context, c *app.Container) error {
			report, err := c.Insights.Generate(ctx, analyzeOwner, analyzeDays)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <report-id>",
	Short: "Show the progress of a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			p, err := c.Insights.ReportProgress(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		})
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupStaleAfter, "stale-after", 5*time.Minute, "age after which a generating report counts as stuck")

	analyzeCmd.Flags().StringVar(&analyzeOwner, "owner", "", "owner id the report belongs to (required)")
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 30, "length of the sales window in days")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "maximum time to wait for the report")
	analyzeCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(cleanupCmd, analyzeCmd, progressCmd)
}
