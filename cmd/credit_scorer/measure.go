package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/credit-quality/internal/emptiness"
	"github.com/jonathan/credit-quality/internal/jsonrepair"
	"github.com/jonathan/credit-quality/internal/types"
)

var measureCmd = &cobra.Command{
	Use:   "measure <file|->",
	Short: "Measure how many leaf fields of a document are populated",
	Long: `Counts populated and total leaf fields of a JSON document. Malformed input is run
through the local repair tiers first; no regeneration is attempted.`,
	Args: cobra.ExactArgs(1),
	RunE: runMeasure,
}

var measureExpected int

func init() {
	measureCmd.Flags().IntVar(&measureExpected, "expected", 0, "Expected number of leaf fields")

	rootCmd.AddCommand(measureCmd)
}

func runMeasure(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		repaired, tier, _, repairErr := jsonrepair.New(jsonrepair.Options{Logger: appLogger}).RepairLocal(raw)
		if repairErr != nil {
			return fmt.Errorf("failed to parse input: %w", repairErr)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: input repaired by %s tier\n", tier)
		value = repaired
	}

	var result types.EmptinessResult
	if measureExpected > 0 {
		result = emptiness.MeasureExpected(value, measureExpected)
	} else {
		result = emptiness.Measure(value)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
