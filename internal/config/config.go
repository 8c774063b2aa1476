// Package config provides configuration loading and validation for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/jonathan/credit-quality/internal/completeness"
	"github.com/jonathan/credit-quality/internal/jsonrepair"
)

// EnvPrefix prefixes every environment override, e.g. CREDIT_QUALITY_API_KEY.
const EnvPrefix = "CREDIT_QUALITY"

// Config keys, shared with CLI flag bindings.
const (
	KeyBaselinePath         = "baseline_path"
	KeySchemaPath           = "schema_path"
	KeyDatabaseURL          = "database_url"
	KeyAPIKey               = "api_key"
	KeyModel                = "model"
	KeyMinAccuracyThreshold = "min_accuracy_threshold"
	KeyStrategy             = "strategy"
	KeySectionWeights       = "section_weights"
	KeyFieldWeights         = "field_weights"
	KeyPlaceholderSentinel  = "placeholder_sentinel"
	KeyLogJSON              = "log_json"
	KeyDebug                = "debug"
	KeyEscalationEnabled    = "escalation_enabled"
)

// Config represents the engine configuration. It can be loaded from a JSON or YAML file and
// overridden through the environment; missing values use defaults.
type Config struct {
	// Paths
	BaselinePath string `mapstructure:"baseline_path"` // Baseline corpus JSON file
	SchemaPath   string `mapstructure:"schema_path"`   // JSON Schema handed to the regeneration prompt
	DatabaseURL  string `mapstructure:"database_url"`  // PostgreSQL connection URL

	// Upstream generator
	APIKey            string            `mapstructure:"api_key"`            // Gemini API key
	Model             map[string]string `mapstructure:"model"`              // Tier name to model overrides
	EscalationEnabled bool              `mapstructure:"escalation_enabled"` // Allow one regeneration per document

	// Scoring
	MinAccuracyThreshold float64 `mapstructure:"min_accuracy_threshold" validate:"gte=0,lte=100"`
	Strategy             string  `mapstructure:"strategy" validate:"required,oneof=section_balanced weighted_field"`
	PlaceholderSentinel  string  `mapstructure:"placeholder_sentinel" validate:"required"`

	// Weight tables are keyed by section or qualified field path. Viper folds key case and
	// splits on dots, so these are read separately and canonicalised.
	SectionWeights map[string]float64 `mapstructure:"-"`
	FieldWeights   map[string]float64 `mapstructure:"-"`

	// Logging
	LogJSON bool `mapstructure:"log_json"`
	Debug   bool `mapstructure:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		EscalationEnabled:    true,
		MinAccuracyThreshold: completeness.DefaultMinAccuracyThreshold,
		Strategy:             string(completeness.StrategySectionBalanced),
		PlaceholderSentinel:  jsonrepair.DefaultSentinel,
	}
}

// NewViper returns a viper instance carrying defaults, environment bindings and, when path is
// not empty, the given config file. Callers may bind flags on it before calling FromViper.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault(KeyBaselinePath, "")
	v.SetDefault(KeySchemaPath, "")
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyEscalationEnabled, defaults.EscalationEnabled)
	v.SetDefault(KeyMinAccuracyThreshold, defaults.MinAccuracyThreshold)
	v.SetDefault(KeyStrategy, defaults.Strategy)
	v.SetDefault(KeyPlaceholderSentinel, defaults.PlaceholderSentinel)
	v.SetDefault(KeyLogJSON, false)
	v.SetDefault(KeyDebug, false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key environment: %w", err)
	}
	if err := v.BindEnv(KeyDatabaseURL, EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind database url environment: %w", err)
	}

	if path == "" {
		return v, nil
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return v, nil
}

// FromViper decodes a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	sections, err := weightTable(v.Get(KeySectionWeights), "")
	if err != nil {
		return nil, fmt.Errorf("config error: %s: %w", KeySectionWeights, err)
	}
	fields, err := weightTable(v.Get(KeyFieldWeights), "")
	if err != nil {
		return nil, fmt.Errorf("config error: %s: %w", KeyFieldWeights, err)
	}
	cfg.SectionWeights = canonicalKeys(sections, completeness.Sections)
	cfg.FieldWeights = canonicalKeys(fields, knownFieldPaths())

	// A file may blank a key explicitly, which viper reports as set.
	merged := cfg.MergeWithDefaults(Default())
	return &merged, nil
}

// LoadConfig loads configuration from a JSON or YAML file, applying defaults and environment
// overrides. An empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config error: '%s' failed %s check (got %v)", configKey(fe.StructField()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if _, err := completeness.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Weights returns the completeness weight tables with the configured overrides applied.
func (c *Config) Weights() completeness.Weights {
	return completeness.DefaultWeights().WithOverrides(c.SectionWeights, c.FieldWeights)
}

// ScoringStrategy returns the configured primary strategy.
func (c *Config) ScoringStrategy() completeness.Strategy {
	return completeness.Strategy(c.Strategy)
}

// MergeWithDefaults returns a new Config with empty string and map fields filled from
// defaults. The threshold and bools are taken as given since zero is meaningful for them.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.BaselinePath == "" {
		result.BaselinePath = defaults.BaselinePath
	}
	if result.SchemaPath == "" {
		result.SchemaPath = defaults.SchemaPath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Strategy == "" {
		result.Strategy = defaults.Strategy
	}
	if result.PlaceholderSentinel == "" {
		result.PlaceholderSentinel = defaults.PlaceholderSentinel
	}

	// Map fields: use default if empty
	if len(result.Model) == 0 {
		result.Model = defaults.Model
	}
	if len(result.SectionWeights) == 0 {
		result.SectionWeights = defaults.SectionWeights
	}
	if len(result.FieldWeights) == 0 {
		result.FieldWeights = defaults.FieldWeights
	}

	// Bool fields and the threshold: zero is a valid setting, so we don't merge
	// (CLI flags should always win for these)

	return result
}

// weightTable flattens a possibly nested map into dot-joined keys with float values.
func weightTable(raw any, prefix string) (map[string]float64, error) {
	if raw == nil {
		return nil, nil
	}
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(m))
	for key, value := range m {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch value.(type) {
		case map[string]any, map[any]any:
			inner, err := weightTable(value, path)
			if err != nil {
				return nil, err
			}
			for k, w := range inner {
				out[k] = w
			}
			continue
		}
		weight, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", path, err)
		}
		out[path] = weight
	}
	return out, nil
}

// canonicalKeys restores the case of known keys. Unknown keys are kept as given.
func canonicalKeys(table map[string]float64, known []string) map[string]float64 {
	if len(table) == 0 {
		return nil
	}
	byFold := make(map[string]string, len(known))
	for _, k := range known {
		byFold[strings.ToLower(k)] = k
	}
	out := make(map[string]float64, len(table))
	for key, weight := range table {
		if canonical, ok := byFold[strings.ToLower(key)]; ok {
			key = canonical
		}
		out[key] = weight
	}
	return out
}

func knownFieldPaths() []string {
	fields := completeness.DefaultWeights().Fields
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func configKey(structField string) string {
	switch structField {
	case "MinAccuracyThreshold":
		return KeyMinAccuracyThreshold
	case "Strategy":
		return KeyStrategy
	case "PlaceholderSentinel":
		return KeyPlaceholderSentinel
	default:
		return structField
	}
}
