package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/credit-quality/internal/completeness"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"baseline_path": "baselines.json",
		"min_accuracy_threshold": 80,
		"strategy": "weighted_field",
		"model": {"standard": "gemini-custom"},
		"debug": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "baselines.json", cfg.BaselinePath)
	assert.Equal(t, 80.0, cfg.MinAccuracyThreshold)
	assert.Equal(t, completeness.StrategyWeightedField, cfg.ScoringStrategy())
	assert.Equal(t, "gemini-custom", cfg.Model["standard"])
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.EscalationEnabled, "default should survive a file that omits it")
	assert.Equal(t, "{{uuid}}", cfg.PlaceholderSentinel)
}

func TestLoadConfig_YAMLWeights(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
section_weights:
  personalInfo: 0.4
  education: 0.2
  experience: 0.2
  skills: 0.2
field_weights:
  personalInfo:
    email: 5
  experience.company: 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"personalInfo": 0.4,
		"education":    0.2,
		"experience":   0.2,
		"skills":       0.2,
	}, cfg.SectionWeights)
	assert.Equal(t, 5.0, cfg.FieldWeights["personalInfo.email"])
	assert.Equal(t, 4.0, cfg.FieldWeights["experience.company"])
	require.NoError(t, cfg.Validate())

	w := cfg.Weights()
	assert.Equal(t, 0.4, w.Sections["personalInfo"])
	assert.Equal(t, 3.0, w.Fields["personalInfo.name"], "untouched fields keep defaults")
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/quality")
	t.Setenv("CREDIT_QUALITY_MIN_ACCURACY_THRESHOLD", "55")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-key", cfg.APIKey)
	assert.Equal(t, "postgres://localhost/quality", cfg.DatabaseURL)
	assert.Equal(t, 55.0, cfg.MinAccuracyThreshold)

	t.Setenv("CREDIT_QUALITY_API_KEY", "prefixed-key")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", cfg.APIKey, "prefixed variable wins over the generic one")
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, Default().MinAccuracyThreshold, cfg.MinAccuracyThreshold)
	assert.Equal(t, Default().Strategy, cfg.Strategy)
	assert.True(t, cfg.EscalationEnabled)
	assert.Nil(t, cfg.SectionWeights)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_BlankKeysFallBackToDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
strategy: ""
placeholder_sentinel: ""
min_accuracy_threshold: 0
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, Default().Strategy, cfg.Strategy)
	assert.Equal(t, Default().PlaceholderSentinel, cfg.PlaceholderSentinel)
	assert.Equal(t, 0.0, cfg.MinAccuracyThreshold, "explicit zero threshold is kept")
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeConfig(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_BadWeight(t *testing.T) {
	path := writeConfig(t, "config.json", `{"field_weights": {"skills": "heavy"}}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field_weights")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "threshold above 100",
			mutate:  func(c *Config) { c.MinAccuracyThreshold = 101 },
			wantErr: "min_accuracy_threshold",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.MinAccuracyThreshold = -1 },
			wantErr: "min_accuracy_threshold",
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Strategy = "vibes" },
			wantErr: "strategy",
		},
		{
			name: "section weights off by more than tolerance",
			mutate: func(c *Config) {
				c.SectionWeights = map[string]float64{"personalInfo": 0.5, "education": 0.2, "experience": 0.2, "skills": 0.2}
			},
			wantErr: "sum to 1.100",
		},
		{
			name: "section weights within tolerance",
			mutate: func(c *Config) {
				c.SectionWeights = map[string]float64{"personalInfo": 0.2505, "education": 0.25, "experience": 0.3, "skills": 0.2}
			},
		},
		{
			name:    "negative field weight",
			mutate:  func(c *Config) { c.FieldWeights = map[string]float64{"skills": -2} },
			wantErr: "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		BaselinePath:         "default-baselines.json",
		DatabaseURL:          "postgres://default",
		MinAccuracyThreshold: 70,
		Strategy:             "section_balanced",
		PlaceholderSentinel:  "{{uuid}}",
		Model:                map[string]string{"standard": "default-model"},
	}

	partial := Config{
		BaselinePath: "custom.json",
		Strategy:     "weighted_field",
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "custom.json", merged.BaselinePath)
	assert.Equal(t, "weighted_field", merged.Strategy)

	// Default values should fill in empty fields
	assert.Equal(t, "postgres://default", merged.DatabaseURL)
	assert.Equal(t, 0.0, merged.MinAccuracyThreshold, "a zero threshold is a valid setting")
	assert.Equal(t, "{{uuid}}", merged.PlaceholderSentinel)
	assert.Equal(t, "default-model", merged.Model["standard"])
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{BaselinePath: "b.json", Strategy: "weighted_field"}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "b.json", merged.BaselinePath)
	assert.Equal(t, "weighted_field", merged.Strategy)
	assert.Empty(t, merged.DatabaseURL)
}
