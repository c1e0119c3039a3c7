// Package config holds the validated run configuration for an export.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultStartTime is the fallback window start when neither a start date
// nor a start time is given (2025-01-01 00:00:00 UTC).
const defaultStartTime int64 = 1735689600000

// Config is the full run configuration. It is immutable once validated.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	AccountID string `yaml:"account_id"`
	OrgID     string `yaml:"org_id"`
	ProjectID string `yaml:"project_id"`

	// Exactly one of AuthToken / APIKey must be set.
	AuthToken string `yaml:"auth_token"`
	APIKey    string `yaml:"api_key"`

	PageSize        int      `yaml:"page_size"`
	ExcludeProjects []string `yaml:"exclude_projects"`
	EnvFilter       string   `yaml:"env_filter"`

	// StartDate / EndDate are YYYY-MM-DD and take precedence over the raw
	// millisecond bounds. Resolve converts them.
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	StartTime int64  `yaml:"start_time"`
	EndTime   int64  `yaml:"end_time"`

	// SplitThreshold and SplitWindowDays bound the range splitter. The
	// defaults match the Harness query cap (10000 results, 10-day
	// sub-windows).
	SplitThreshold  int `yaml:"split_threshold"`
	SplitWindowDays int `yaml:"split_window_days"`

	Output   string `yaml:"output"`
	Format   string `yaml:"format"`
	URLStyle string `yaml:"url_style"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		BaseURL:         "https://app.harness.io",
		PageSize:        50,
		EnvFilter:       "Production",
		StartTime:       0,
		EndTime:         0,
		SplitThreshold:  10000,
		SplitWindowDays: 10,
		Output:          "pipeline_executions.csv",
		Format:          "csv",
		URLStyle:        "link",
		LogLevel:        "info",
	}
}

// LoadFile merges a YAML config file into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv fills unset credentials and identifiers from the environment,
// loading a .env file first when present.
func (c *Config) LoadEnv() {
	_ = godotenv.Load()

	if c.AuthToken == "" {
		c.AuthToken = os.Getenv("HARNESS_AUTH_TOKEN")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("HARNESS_API_KEY")
	}
	if c.AccountID == "" {
		c.AccountID = os.Getenv("HARNESS_ACCOUNT_ID")
	}
	if c.OrgID == "" {
		c.OrgID = os.Getenv("HARNESS_ORG_ID")
	}
}

// Resolve converts the date strings into millisecond bounds and applies
// the time-window defaults. now supplies the default end bound.
func (c *Config) Resolve(now time.Time) error {
	if c.StartDate != "" {
		ms, err := DateToMillis(c.StartDate, false)
		if err != nil {
			return err
		}
		c.StartTime = ms
	} else if c.StartTime == 0 {
		c.StartTime = defaultStartTime
	}

	if c.EndDate != "" {
		ms, err := DateToMillis(c.EndDate, true)
		if err != nil {
			return err
		}
		c.EndTime = ms
	} else if c.EndTime == 0 {
		c.EndTime = now.UTC().UnixMilli()
	}

	return nil
}

// Validate checks the configuration. It must pass before any network call.
func (c *Config) Validate() error {
	hasToken := c.AuthToken != ""
	hasKey := c.APIKey != ""
	if !hasToken && !hasKey {
		return &ConfigError{Field: "credentials", Message: "either an auth token or an API key is required"}
	}
	if hasToken && hasKey {
		return &ConfigError{Field: "credentials", Message: "auth token and API key are mutually exclusive, provide only one"}
	}

	if c.AccountID == "" {
		return &ConfigError{Field: "account_id", Message: "account identifier is required"}
	}
	if c.OrgID == "" {
		return &ConfigError{Field: "org_id", Message: "organization identifier is required"}
	}

	if c.PageSize <= 0 {
		return &ConfigError{Field: "page_size", Message: "must be a positive integer"}
	}

	if c.StartTime > c.EndTime {
		return &ConfigError{Field: "time_range", Message: fmt.Sprintf("start %d is after end %d", c.StartTime, c.EndTime)}
	}

	if c.SplitThreshold <= 0 {
		return &ConfigError{Field: "split_threshold", Message: "must be a positive integer"}
	}
	if c.SplitWindowDays <= 0 {
		return &ConfigError{Field: "split_window_days", Message: "must be a positive integer"}
	}

	if c.Format != "csv" && c.Format != "table" {
		return &ConfigError{Field: "format", Message: "must be 'csv' or 'table'"}
	}
	if c.URLStyle != "link" && c.URLStyle != "formula" {
		return &ConfigError{Field: "url_style", Message: "must be 'link' or 'formula'"}
	}

	return nil
}

// SplitWindow returns the splitter sub-window width as a duration.
func (c *Config) SplitWindow() time.Duration {
	return time.Duration(c.SplitWindowDays) * 24 * time.Hour
}

// DateToMillis converts a YYYY-MM-DD date string to an epoch-millisecond
// timestamp in UTC. With endOfDay the result is 23:59:59.999 of that day,
// otherwise midnight.
func DateToMillis(dateStr string, endOfDay bool) (int64, error) {
	t, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return 0, &ConfigError{
			Field:   "date",
			Message: fmt.Sprintf("invalid date format %q, expected YYYY-MM-DD", dateStr),
		}
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}

	return t.UnixMilli(), nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
