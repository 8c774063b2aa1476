package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/credit-quality/internal/jsonrepair"
	"github.com/jonathan/credit-quality/internal/logger"
	"github.com/jonathan/credit-quality/internal/placeholder"
)

var repairCmd = &cobra.Command{
	Use:   "repair <file|->",
	Short: "Repair malformed generator output into valid JSON",
	Long: `Runs the local repair tiers over the input and, when they all fail and escalation is
enabled, asks the generator once to regenerate. Placeholder identifiers are resolved unless
--keep-placeholders is set. Input that cannot be recovered yields an empty record.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

var (
	repairOutput           string
	repairKeepPlaceholders bool
	repairVerbose          bool
)

func init() {
	repairCmd.Flags().StringVarP(&repairOutput, "out", "o", "", "Output file path (defaults to stdout)")
	repairCmd.Flags().BoolVar(&repairKeepPlaceholders, "keep-placeholders", false, "Leave placeholder sentinels unresolved")
	repairCmd.Flags().BoolVarP(&repairVerbose, "verbose", "v", false, "Print the tier attempts to stderr")

	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, err := readInput(cmd.InOrStdin(), args[0])
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

	repairer := jsonrepair.New(jsonrepair.Options{
		Regenerator: regen,
		Sentinel:    appConfig.PlaceholderSentinel,
		Logger:      appLogger,
	})
	result, err := repairer.Repair(ctx, raw, schema)
	if err != nil {
		return fmt.Errorf("repair interrupted: %w", err)
	}

	if repairVerbose {
		for _, attempt := range result.Attempts {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", attempt)
		}
	}
	if result.Degraded {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: input could not be recovered, emitting empty record\n")
	}
	appLogger.Info("repair finished",
		zap.String(logger.FieldTier, result.Tier),
		zap.Bool("regenerated", result.Regenerated),
		zap.Bool("degraded", result.Degraded))

	value := result.Value
	if !repairKeepPlaceholders {
		value = placeholder.New(appConfig.PlaceholderSentinel).Resolve(value)
	}
	return writeJSONFile(cmd.OutOrStdout(), repairOutput, value)
}
