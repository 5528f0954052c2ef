// Package config loads the nsedata YAML configuration and applies
// environment variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the nsedata tools.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Fetch    Fetch    `yaml:"fetch"`
	Universe Universe `yaml:"universe"`
	Logging  Logging  `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// PriceHistoryDir is where per-symbol stock CSVs live.
func (s Storage) PriceHistoryDir() string {
	return filepath.Join(s.DataDir, "price_history")
}

// IndexHistoryDir is where index history CSVs live.
func (s Storage) IndexHistoryDir() string {
	return filepath.Join(s.DataDir, "index_history")
}

// SnapshotDir is where Parquet snapshot exports are written.
func (s Storage) SnapshotDir() string {
	return filepath.Join(s.DataDir, "snapshots")
}

// Fetch holds the explicit fetch/merge parameters that used to be ambient
// provider-client defaults.
type Fetch struct {
	DefaultSeries   string `yaml:"default_series"`     // series assumed when a source omits one
	ChunkDays       int    `yaml:"chunk_days"`         // max days per secondary-source window
	TimeoutSeconds  int    `yaml:"timeout_seconds"`    // wall-clock bound per fetch attempt
	StartDate       string `yaml:"start_date"`         // earliest date to backfill (YYYY-MM-DD)
	RateLimitPerMin int    `yaml:"rate_limit_per_min"` // per-symbol request pacing in the drivers
}

// Timeout returns the per-attempt fetch timeout as a duration.
func (f Fetch) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Universe describes where the tradable universe comes from.
type Universe struct {
	Exchange   string `yaml:"exchange"`
	StocksCSV  string `yaml:"stocks_csv"`
	IndicesCSV string `yaml:"indices_csv"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it,
// applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NSE_DEFAULT_SERIES"); v != "" {
		cfg.Fetch.DefaultSeries = v
	}
	if v := os.Getenv("NSE_CHUNK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Fetch.ChunkDays = n
		}
	}
	if v := os.Getenv("NSE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Fetch.TimeoutSeconds = n
		}
	}
}

// applyDefaults fills unset fields with the stock defaults.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "db", "stock.db")
	}
	if cfg.Fetch.DefaultSeries == "" {
		cfg.Fetch.DefaultSeries = "EQ"
	}
	if cfg.Fetch.ChunkDays <= 0 {
		cfg.Fetch.ChunkDays = 60
	}
	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 20
	}
	if cfg.Fetch.StartDate == "" {
		cfg.Fetch.StartDate = "2020-01-01"
	}
	if cfg.Fetch.RateLimitPerMin <= 0 {
		cfg.Fetch.RateLimitPerMin = 30
	}
	if cfg.Universe.Exchange == "" {
		cfg.Universe.Exchange = "NSE"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
