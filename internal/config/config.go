// Package config holds the settings shared by the ledger binaries. Values
// come from LEDGER_* environment variables and may be overridden by flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dvloznov/finance-ledger/internal/logger"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the runtime configuration.
type Config struct {
	StoreDriver string
	SQLitePath  string

	// SettingsBucket and SettingsObject locate the GCS settings document.
	// An empty bucket keeps settings in the primary store.
	SettingsBucket string
	SettingsObject string

	// BigQueryProject enables the ledger export when set.
	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string

	// Location is the IANA zone used to derive "today".
	Location string

	LogLevel  string
	LogFormat string

	HTTPPort    string
	JobInterval time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		StoreDriver:     DriverSQLite,
		SQLitePath:      "ledger.db",
		SettingsObject:  "settings.json",
		BigQueryDataset: "finance",
		BigQueryTable:   "ledger_snapshot",
		Location:        "Local",
		LogLevel:        "info",
		LogFormat:       string(logger.FormatConsole),
		HTTPPort:        "8080",
		JobInterval:     time.Hour,
	}
}

// FromEnv overlays LEDGER_* environment variables on the defaults.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("LEDGER_STORE", &cfg.StoreDriver)
	str("LEDGER_SQLITE_PATH", &cfg.SQLitePath)
	str("LEDGER_SETTINGS_BUCKET", &cfg.SettingsBucket)
	str("LEDGER_SETTINGS_OBJECT", &cfg.SettingsObject)
	str("LEDGER_BIGQUERY_PROJECT", &cfg.BigQueryProject)
	str("LEDGER_BIGQUERY_DATASET", &cfg.BigQueryDataset)
	str("LEDGER_BIGQUERY_TABLE", &cfg.BigQueryTable)
	str("LEDGER_LOCATION", &cfg.Location)
	str("LEDGER_LOG_LEVEL", &cfg.LogLevel)
	str("LEDGER_LOG_FORMAT", &cfg.LogFormat)
	str("LEDGER_HTTP_PORT", &cfg.HTTPPort)

	if v, ok := lookup("LEDGER_JOB_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: LEDGER_JOB_INTERVAL: %w", err)
		}
		cfg.JobInterval = d
	}
	return cfg, cfg.Validate()
}

// RegisterFlags binds the configuration to flags on fs, using the current
// values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.StoreDriver, "store", c.StoreDriver, "storage driver: memory or sqlite (LEDGER_STORE)")
	fs.StringVar(&c.SQLitePath, "db", c.SQLitePath, "SQLite database path (LEDGER_SQLITE_PATH)")
	fs.StringVar(&c.SettingsBucket, "settings-bucket", c.SettingsBucket, "GCS bucket holding settings (LEDGER_SETTINGS_BUCKET)")
	fs.StringVar(&c.SettingsObject, "settings-object", c.SettingsObject, "GCS object holding settings (LEDGER_SETTINGS_OBJECT)")
	fs.StringVar(&c.BigQueryProject, "bq-project", c.BigQueryProject, "BigQuery project for the ledger export (LEDGER_BIGQUERY_PROJECT)")
	fs.StringVar(&c.BigQueryDataset, "bq-dataset", c.BigQueryDataset, "BigQuery dataset (LEDGER_BIGQUERY_DATASET)")
	fs.StringVar(&c.BigQueryTable, "bq-table", c.BigQueryTable, "BigQuery table (LEDGER_BIGQUERY_TABLE)")
	fs.StringVar(&c.Location, "location", c.Location, "IANA time zone for \"today\" (LEDGER_LOCATION)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (LEDGER_LOG_LEVEL)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: console or json (LEDGER_LOG_FORMAT)")
	fs.StringVar(&c.HTTPPort, "port", c.HTTPPort, "HTTP server port (LEDGER_HTTP_PORT)")
	fs.DurationVar(&c.JobInterval, "interval", c.JobInterval, "interval between scheduled jobs (LEDGER_JOB_INTERVAL)")
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("config: sqlite store needs a database path")
	}
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	if c.JobInterval <= 0 {
		return fmt.Errorf("config: job interval must be positive, got %s", c.JobInterval)
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("config: invalid port %q", c.HTTPPort)
	}
	return nil
}

// TimeLocation resolves Location.
func (c Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" || c.Location == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("config: location %q: %w", c.Location, err)
	}
	return loc, nil
}

// ExportEnabled reports whether the BigQuery export is configured.
func (c Config) ExportEnabled() bool { return c.BigQueryProject != "" }
