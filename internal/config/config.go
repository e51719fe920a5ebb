// Package config loads settings for the prediction server and the cluster
// report job. Values are layered: struct defaults, then an optional YAML file,
// then environment variables (a local .env file is read first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/growthlab/config.yaml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Models    ModelsConfig    `koanf:"models"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Recommend RecommendConfig `koanf:"recommend"`
	Features  FeaturesConfig  `koanf:"features"`
	Report    ReportConfig    `koanf:"report"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port         string        `koanf:"port"`
	Env          string        `koanf:"env"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// ModelConfig selects a scoring backend: URL wins over Artifact.
type ModelConfig struct {
	URL      string `koanf:"url"`
	Artifact string `koanf:"artifact"`
}

type ModelsConfig struct {
	Classifier ModelConfig   `koanf:"classifier"`
	Regressor  ModelConfig   `koanf:"regressor"`
	Timeout    time.Duration `koanf:"timeout"`
}

// ArtifactsConfig points at a local directory or a gs://bucket/prefix URI.
type ArtifactsConfig struct {
	Location string `koanf:"location"`
}

type RecommendConfig struct {
	TopRoutesFile string `koanf:"top_routes_file"`
	FallbackFile  string `koanf:"fallback_file"`
}

// FeaturesConfig.Holidays is empty by default, which keeps is_holiday false.
type FeaturesConfig struct {
	Holidays []string `koanf:"holidays"`
}

type ReportConfig struct {
	WebhookURL        string        `koanf:"webhook_url"`
	Timeout           time.Duration `koanf:"timeout"`
	CurrentCustomers  string        `koanf:"current_customers"`
	PreviousCustomers string        `koanf:"previous_customers"`
	CurrentClusters   string        `koanf:"current_clusters"`
	PreviousClusters  string        `koanf:"previous_clusters"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Env:          "development",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			ConnectTimeout: 10 * time.Second,
		},
		Models: ModelsConfig{
			Classifier: ModelConfig{Artifact: "models/repurchase_classifier.json"},
			Regressor:  ModelConfig{Artifact: "models/days_to_next_purchase_regressor.json"},
			Timeout:    2 * time.Second,
		},
		Artifacts: ArtifactsConfig{Location: "./data"},
		Recommend: RecommendConfig{
			TopRoutesFile: "recommendations/top_routes.csv",
			FallbackFile:  "recommendations/fallback_routes.json",
		},
		Report: ReportConfig{
			Timeout:           10 * time.Second,
			CurrentCustomers:  "clusters/customers.csv",
			PreviousCustomers: "clusters/customers_previous.csv",
			CurrentClusters:   "clusters/clusters.csv",
			PreviousClusters:  "clusters/clusters_previous.csv",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads .env, the optional config file and the environment.
func Load() (*Config, error) {
	// .env is optional; the process environment is authoritative.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	cfg.Features.Holidays = splitList(cfg.Features.Holidays)
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeys maps environment variable names (lowercased) to config keys.
var envKeys = map[string]string{
	"port":                      "server.port",
	"go_env":                    "server.env",
	"read_timeout":              "server.read_timeout",
	"write_timeout":             "server.write_timeout",
	"database_url":              "database.url",
	"database_timeout":          "database.connect_timeout",
	"classifier_url":            "models.classifier.url",
	"classifier_artifact":       "models.classifier.artifact",
	"regressor_url":             "models.regressor.url",
	"regressor_artifact":        "models.regressor.artifact",
	"model_timeout":             "models.timeout",
	"artifacts_location":        "artifacts.location",
	"top_routes_file":           "recommend.top_routes_file",
	"fallback_routes_file":      "recommend.fallback_file",
	"holidays":                  "features.holidays",
	"slack_webhook_url":         "report.webhook_url",
	"report_timeout":            "report.timeout",
	"report_customers":          "report.current_customers",
	"report_customers_previous": "report.previous_customers",
	"report_clusters":           "report.current_clusters",
	"report_clusters_previous":  "report.previous_clusters",
	"log_level":                 "logging.level",
	"log_format":                "logging.format",
}

// envTransformFunc returns "" for unknown variables so koanf skips them.
func envTransformFunc(key string) string {
	return envKeys[strings.ToLower(key)]
}

// splitList flattens comma-separated entries coming from env vars.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the settings the prediction server needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Models.Timeout <= 0 {
		errs = append(errs, errors.New("models.timeout must be positive"))
	}
	for name, m := range map[string]ModelConfig{"classifier": c.Models.Classifier, "regressor": c.Models.Regressor} {
		if m.URL == "" && m.Artifact == "" {
			errs = append(errs, fmt.Errorf("models.%s needs a url or an artifact", name))
		}
	}
	if _, err := c.Features.HolidayDates(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateReport checks the settings the cluster report job needs.
func (c *Config) ValidateReport() error {
	if c.Report.WebhookURL == "" {
		return errors.New("report.webhook_url is required")
	}
	if c.Report.CurrentCustomers == "" || c.Report.PreviousCustomers == "" {
		return errors.New("report customer snapshot names are required")
	}
	return nil
}

// HolidayDates parses the configured holidays (YYYY-MM-DD).
func (f FeaturesConfig) HolidayDates() ([]time.Time, error) {
	dates := make([]time.Time, 0, len(f.Holidays))
	for _, h := range f.Holidays {
		d, err := time.Parse(time.DateOnly, h)
		if err != nil {
			return nil, fmt.Errorf("features.holidays: invalid date %q", h)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}
