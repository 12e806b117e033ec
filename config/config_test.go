package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Pipeline.MaxItems)
	assert.Equal(t, 500, cfg.Pipeline.MaxTextChars)
	assert.Equal(t, 0.8, cfg.Risk.PercentWeight)
	assert.Equal(t, 0.2, cfg.Risk.ConfidenceWeight)
	assert.Equal(t, "hugot", cfg.Classifier.Backend)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.False(t, cfg.Server.TrustUserHeader)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_ITEMS", "10")
	t.Setenv("SOURCE_TIMEOUT", "3s")
	t.Setenv("RISK_PERCENT_WEIGHT", "0.7")
	t.Setenv("CLASSIFIER_BACKEND", "vader")
	t.Setenv("CLASSIFIER_LABEL_ALIASES", "LABEL_0=negative, LABEL_1=positive")
	t.Setenv("REDDIT_ENABLED", "false")
	t.Setenv("TRUST_USER_HEADER", "true")
	t.Setenv("RECORD_TIMEZONE", "Asia/Kolkata")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Pipeline.MaxItems)
	assert.Equal(t, 3*time.Second, cfg.Pipeline.SourceTimeout)
	assert.Equal(t, 0.7, cfg.Risk.PercentWeight)
	assert.Equal(t, "vader", cfg.Classifier.Backend)
	assert.Equal(t, map[string]string{"LABEL_0": "negative", "LABEL_1": "positive"}, cfg.Classifier.LabelAliases)
	assert.False(t, cfg.Sources.Reddit.Enabled)
	assert.True(t, cfg.Server.TrustUserHeader)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentilyst.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  maxItems: 12
  maxTextChars: 200
  sourceTimeout: 4s
store:
  backend: postgres
  postgresDsn: postgres://localhost/sentilyst
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv("MAX_ITEMS", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Pipeline.MaxItems)
	assert.Equal(t, 200, cfg.Pipeline.MaxTextChars)
	assert.Equal(t, 4*time.Second, cfg.Pipeline.SourceTimeout)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.RequestTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad int", map[string]string{"MAX_ITEMS": "lots"}},
		{"bad duration", map[string]string{"SOURCE_TIMEOUT": "soon"}},
		{"bad bool", map[string]string{"CLASSIFIER_WARMUP": "maybe"}},
		{"bad alias", map[string]string{"CLASSIFIER_LABEL_ALIASES": "LABEL_0"}},
		{"unknown backend", map[string]string{"CLASSIFIER_BACKEND": "oracle"}},
		{"remote without endpoint", map[string]string{"CLASSIFIER_BACKEND": "remote"}},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}},
		{"unknown store", map[string]string{"STORE_BACKEND": "mongo"}},
		{"negative risk weight", map[string]string{"RISK_PERCENT_WEIGHT": "-0.5"}},
		{"missing config file", map[string]string{configPathEnv: "/nonexistent/sentilyst.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	t.Setenv("RECORD_TIMEZONE", "Mars/Olympus_Mons")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.MaxTextChars = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Classifier.BatchSize = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Backend = "dynamodb"
	assert.NoError(t, cfg.Validate())
}

func TestIsProduction(t *testing.T) {
	t.Setenv("APP_ENV", "")
	assert.Equal(t, "dev", AppEnv())
	assert.False(t, IsProduction())

	t.Setenv("APP_ENV", PRODUCTION_ENV)
	assert.True(t, IsProduction())
}
