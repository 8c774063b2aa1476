// Package main provides the CLI entrypoint for credit_scorer
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/credit-quality/internal/config"
	"github.com/jonathan/credit-quality/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "credit_scorer",
	Short: "Recover and score structured credit data produced by a language model",
	Long: `Repairs malformed JSON emitted by an upstream generator, resolves placeholder identifiers
and scores the result for structural validity, emptiness, completeness and agreement with
a consensus baseline.

Configuration is read from --config (JSON or YAML), then CREDIT_QUALITY_* environment
variables, then flags.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadRuntime,
	PersistentPostRunE: syncLogger,
}

var (
	rootConfigPath string

	appConfig *config.Config
	appLogger *zap.Logger
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", "", "Path to config file (JSON or YAML)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.String("baseline", "", "Path to baseline corpus JSON file")
	flags.String("schema", "", "Path to JSON Schema rendered into the regeneration prompt")
	flags.String("db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	flags.String("api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	flags.Float64("threshold", 0, "Minimum accuracy percentage for a document to pass")
	flags.String("strategy", "", "Primary completeness strategy (section_balanced or weighted_field)")
	flags.Bool("no-escalate", false, "Never ask the generator to regenerate unrecoverable output")
}

// flagBindings maps persistent flags to config keys.
var flagBindings = map[string]string{
	"debug":     config.KeyDebug,
	"log-json":  config.KeyLogJSON,
	"baseline":  config.KeyBaselinePath,
	"schema":    config.KeySchemaPath,
	"db-url":    config.KeyDatabaseURL,
	"api-key":   config.KeyAPIKey,
	"threshold": config.KeyMinAccuracyThreshold,
	"strategy":  config.KeyStrategy,
}

func loadRuntime(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(rootConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	for name, key := range flagBindings {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	if noEscalate, _ := flags.GetBool("no-escalate"); noEscalate {
		v.Set(config.KeyEscalationEnabled, false)
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogJSON, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appConfig = cfg
	appLogger = log
	return nil
}

func syncLogger(_ *cobra.Command, _ []string) error {
	if appLogger != nil {
		// stderr does not support fsync on every platform
		_ = appLogger.Sync()
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
