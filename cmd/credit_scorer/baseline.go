package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/credit-quality/internal/consensus"
	"github.com/jonathan/credit-quality/internal/db"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage consensus baselines stored in PostgreSQL",
}

var baselineImportCmd = &cobra.Command{
	Use:   "import <corpus.json>",
	Short: "Validate a baseline corpus file and store every entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaselineImport,
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored baselines",
	Args:  cobra.NoArgs,
	RunE:  runBaselineList,
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <source-key>",
	Short: "Print a stored baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaselineShow,
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete <source-key>",
	Short: "Delete a stored baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaselineDelete,
}

func init() {
	baselineCmd.AddCommand(baselineImportCmd, baselineListCmd, baselineShowCmd, baselineDeleteCmd)
	rootCmd.AddCommand(baselineCmd)
}

// requireDB connects to the configured database, failing when none is configured.
func requireDB(ctx context.Context) (*db.DB, error) {
	if appConfig.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (use --db-url or DATABASE_URL)")
	}
	return connectDB(ctx, appConfig)
}

func runBaselineImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// A missing file is an empty corpus to the scorer, but an import of nothing is a mistake.
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("failed to read corpus file: %w", err)
	}
	corpus, err := consensus.LoadCorpus(args[0])
	if err != nil {
		return err
	}

	database, err := requireDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := database.SaveCorpus(ctx, corpus)
	if err != nil {
		return err
	}
	appLogger.Info("baselines imported", zap.Int("count", n), zap.String("path", args[0]))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d baselines\n", n)
	return nil
}

func runBaselineList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	database, err := requireDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	summaries, err := database.ListBaselines(ctx)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), summaries)
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	database, err := requireDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	baseline, err := database.GetBaseline(ctx, args[0])
	if err != nil {
		return err
	}
	if baseline == nil {
		return fmt.Errorf("no baseline stored for %q", args[0])
	}
	return writeJSON(cmd.OutOrStdout(), baseline)
}

func runBaselineDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	database, err := requireDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.DeleteBaseline(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted baseline %s\n", args[0])
	return nil
}
