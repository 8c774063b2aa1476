package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/credit-quality/internal/db"
	"github.com/jonathan/credit-quality/internal/logger"
	"github.com/jonathan/credit-quality/internal/metrics"
	"github.com/jonathan/credit-quality/internal/observability"
	"github.com/jonathan/credit-quality/internal/quality"
	"github.com/jonathan/credit-quality/internal/schemas"
	"github.com/jonathan/credit-quality/internal/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score <file|->...",
	Short: "Repair and score one or more generator outputs",
	Long: `Repairs each input, resolves placeholders and scores the result. The enriched document,
the payload with a "metadata" block attached, is printed to stdout for a single input or
written to --out-dir as <name>.scored.json for several.

The baseline key for each document defaults to its file name without extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

var (
	scoreOutDir         string
	scoreSourceKey      string
	scoreExpectedFields int
	scoreConcurrency    int
	scoreVerbose        bool
	scoreStrict         bool
	scoreMetricsFile    string
	scorePushgateway    string
)

// errBelowThreshold is returned by --strict runs when a document fails the pass mark.
var errBelowThreshold = errors.New("one or more documents scored below the accuracy threshold")

func init() {
	scoreCmd.Flags().StringVar(&scoreOutDir, "out-dir", "", "Directory for scored documents (required for several inputs)")
	scoreCmd.Flags().StringVarP(&scoreSourceKey, "source-key", "k", "", "Baseline key (single input only)")
	scoreCmd.Flags().IntVar(&scoreExpectedFields, "expected-fields", 0, "Expected number of leaf fields for the emptiness percentage")
	scoreCmd.Flags().IntVar(&scoreConcurrency, "concurrency", quality.DefaultConcurrency, "Documents scored in parallel")
	scoreCmd.Flags().BoolVarP(&scoreVerbose, "verbose", "v", false, "Print a score breakdown per document to stderr")
	scoreCmd.Flags().BoolVar(&scoreStrict, "strict", false, "Exit non-zero when any document is below the threshold")
	scoreCmd.Flags().StringVar(&scoreMetricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	scoreCmd.Flags().StringVar(&scorePushgateway, "pushgateway", "", "Push metrics to this Prometheus Pushgateway URL when done")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) > 1 && scoreOutDir == "" {
		return fmt.Errorf("--out-dir is required when scoring %d files", len(args))
	}
	if len(args) > 1 && scoreSourceKey != "" {
		return fmt.Errorf("--source-key applies to a single input only")
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
	schema, err := loadSchema(appConfig)
	if err != nil {
		return err
	}
	regen, closeRegen, err := newRegenerator(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer closeRegen()

	schemaContent := ""
	if schema != nil {
		data, err := json.Marshal(schema)
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		schemaContent = string(data)
	}

	recorder := metrics.NewRecorder(nil)
	engine, err := newEngine(appConfig, appLogger, engineDeps{corpus: corpus, regen: regen, recorder: recorder})
	if err != nil {
		return err
	}

	inputs := make([]quality.Input, 0, len(args))
	for _, path := range args {
		raw, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		inputs = append(inputs, quality.Input{
			Raw: raw,
			Options: quality.Options{
				SourceKey:      sourceKeyFor(path, scoreSourceKey),
				Schema:         schema,
				ExpectedFields: scoreExpectedFields,
			},
		})
	}

	start := time.Now()
	reports, err := engine.ProcessBatch(ctx, inputs, scoreConcurrency)
	if err != nil {
		return fmt.Errorf("scoring interrupted: %w", err)
	}
	appLogger.Info("batch scored", zap.Int("documents", len(reports)), zap.Duration("elapsed", time.Since(start)))

	if scoreOutDir != "" {
		if err := os.MkdirAll(scoreOutDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	printer := observability.NewPrinter(cmd.ErrOrStderr())
	failing := 0
	for i, report := range reports {
		enriched := report.Enriched()

		if scoreVerbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "\n== %s ==\n", args[i])
			printer.PrintReport(report.Metadata)
		}
		if !report.Metadata.MeetsThreshold {
			failing++
		}
		if schemaContent != "" {
			if err := schemas.ValidateValue(schemaContent, report.Value); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s does not match schema: %v\n", args[i], err)
			}
		}

		if database != nil {
			if err := saveReport(ctx, database, report.Metadata, enriched); err != nil {
				return err
			}
		}

		out := ""
		if scoreOutDir != "" {
			out = filepath.Join(scoreOutDir, scoredName(args[i], i))
		}
		if err := writeJSONFile(cmd.OutOrStdout(), out, enriched); err != nil {
			return err
		}
	}

	if scoreMetricsFile != "" {
		if err := recorder.WriteTextfile(scoreMetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if scorePushgateway != "" {
		if err := recorder.Push(ctx, scorePushgateway, rootCmd.Name()); err != nil {
			return err
		}
	}

	if scoreStrict && failing > 0 {
		return fmt.Errorf("%w (%d of %d)", errBelowThreshold, failing, len(reports))
	}
	return nil
}

func saveReport(ctx context.Context, database *db.DB, meta *types.Metadata, enriched any) error {
	row, err := db.NewReport(meta, enriched)
	if err != nil {
		return err
	}
	if err := database.SaveReport(ctx, row); err != nil {
		return err
	}
	appLogger.Debug("report saved", zap.String(logger.FieldReportID, row.ID.String()))
	return nil
}

// scoredName maps an input path to its output file name. Stdin is named by position.
func scoredName(path string, index int) string {
	if path == "-" {
		return fmt.Sprintf("stdin-%d.scored.json", index)
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".scored.json"
}
