package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/credit-quality/internal/db"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect stored quality reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Print the enriched document of a stored report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

var (
	reportsSourceKey   string
	reportsOnlyFailing bool
	reportsLimit       int
)

func init() {
	reportsListCmd.Flags().StringVarP(&reportsSourceKey, "source-key", "k", "", "Only reports for this baseline key")
	reportsListCmd.Flags().BoolVar(&reportsOnlyFailing, "failing", false, "Only reports below the threshold")
	reportsListCmd.Flags().IntVar(&reportsLimit, "limit", 50, "Maximum number of reports")

	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd)
	rootCmd.AddCommand(reportsCmd)
}

func runReportsList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	database, err := requireDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	reports, err := database.ListReports(ctx, db.ReportFilters{
		SourceKey:   reportsSourceKey,
		OnlyFailing: reportsOnlyFailing,
		Limit:       reportsLimit,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), reports)
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid report id %q: %w", args[0], err)
	}

	ctx := context.Background()
	database, err := requireDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	report, err := database.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("report %s not found", id)
	}
	_, err = cmd.OutOrStdout().Write(append(report.Content, '\n'))
	return err
}
