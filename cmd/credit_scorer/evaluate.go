package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/credit-quality/internal/metrics"
	"github.com/jonathan/credit-quality/internal/observability"
	"github.com/jonathan/credit-quality/internal/quality"
	"github.com/jonathan/credit-quality/internal/schemas"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <file|->",
	Short: "Score an already valid JSON document",
	Long: `Scores a document that is known to be valid JSON, skipping the repair cascade.
Placeholders are still resolved. With --validate the document is first checked against a
JSON Schema file and rejected if it does not conform.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

var (
	evaluateSourceKey      string
	evaluateExpectedFields int
	evaluateValidate       string
	evaluateEnriched       bool
	evaluateVerbose        bool
)

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateSourceKey, "source-key", "k", "", "Baseline key (defaults to the file name)")
	evaluateCmd.Flags().IntVar(&evaluateExpectedFields, "expected-fields", 0, "Expected number of leaf fields for the emptiness percentage")
	evaluateCmd.Flags().StringVar(&evaluateValidate, "validate", "", "JSON Schema file the document must satisfy")
	evaluateCmd.Flags().BoolVar(&evaluateEnriched, "enriched", false, "Print the whole enriched document instead of the metadata")
	evaluateCmd.Flags().BoolVarP(&evaluateVerbose, "verbose", "v", false, "Print a score breakdown to stderr")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	if evaluateValidate != "" {
		schemaContent, err := os.ReadFile(evaluateValidate)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		if err := schemas.ValidateJSONString(string(schemaContent), raw); err != nil {
			return fmt.Errorf("document does not match schema: %w", err)
		}
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return fmt.Errorf("input is not valid JSON, use the score command to repair it: %w", err)
	}

	database, err := connectDB(ctx, appConfig)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}
	corpus, err := loadCorpus(ctx, appConfig, database)
	if err != nil {
		return err
	}

	engine, err := newEngine(appConfig, appLogger, engineDeps{corpus: corpus, recorder: metrics.NewRecorder(nil)})
	if err != nil {
		return err
	}

	report := engine.Score(value, quality.Options{
		SourceKey:      sourceKeyFor(args[0], evaluateSourceKey),
		ExpectedFields: evaluateExpectedFields,
	})

	if evaluateVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintReport(report.Metadata)
	}
	if evaluateEnriched {
		return writeJSON(cmd.OutOrStdout(), report.Enriched())
	}
	return writeJSON(cmd.OutOrStdout(), report.Metadata)
}
