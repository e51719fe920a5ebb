package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Models.Timeout)
	assert.Equal(t, "./data", cfg.Artifacts.Location)
	assert.Empty(t, cfg.Features.Holidays)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
server:
  port: "9000"
models:
  timeout: 5s
  classifier:
    url: http://file-classifier
artifacts:
  location: gs://bucket/prefix
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "7000")
	t.Setenv("REGRESSOR_URL", "http://env-regressor")
	t.Setenv("HOLIDAYS", "2024-12-25, 2025-01-01")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Models.Timeout)
	assert.Equal(t, "http://file-classifier", cfg.Models.Classifier.URL)
	assert.Equal(t, "http://env-regressor", cfg.Models.Regressor.URL)
	assert.Equal(t, "gs://bucket/prefix", cfg.Artifacts.Location)
	assert.Equal(t, []string{"2024-12-25", "2025-01-01"}, cfg.Features.Holidays)
}

func TestValidate_Errors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = ""
	cfg.Models.Timeout = 0
	cfg.Models.Regressor = ModelConfig{}
	cfg.Features.Holidays = []string{"25/12/2024"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "models.timeout")
	assert.Contains(t, err.Error(), "models.regressor")
	assert.Contains(t, err.Error(), "features.holidays")
}

func TestValidateReport(t *testing.T) {
	cfg := defaultConfig()
	assert.Error(t, cfg.ValidateReport())

	cfg.Report.WebhookURL = "https://hooks.slack.com/services/x"
	assert.NoError(t, cfg.ValidateReport())
}

func TestHolidayDates(t *testing.T) {
	dates, err := FeaturesConfig{Holidays: []string{"2024-04-21"}}.HolidayDates()
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, time.April, dates[0].Month())
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "database.url", envTransformFunc("DATABASE_URL"))
	assert.Equal(t, "report.webhook_url", envTransformFunc("SLACK_WEBHOOK_URL"))
	assert.Empty(t, envTransformFunc("HOME"))
}
