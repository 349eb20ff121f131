// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and the environment.
// - Errors are wrapped with this package's sentinel kinds.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// HistoryURL is the upstream endpoint returning completed sessions.
	HistoryURL string `koanf:"history_url"`

	// HistoryPath is the gjson path of the session array in the upstream
	// body; empty means the body itself is the array.
	HistoryPath string `koanf:"history_path"`

	// FetchTimeoutMS bounds a single upstream HTTP attempt.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// FetchRPS caps upstream requests per second.
	FetchRPS int `koanf:"fetch_rps"`

	// FetchMaxElapsedMS bounds all retries of one fetch.
	FetchMaxElapsedMS int `koanf:"fetch_max_elapsed_ms"`

	// RefreshIntervalMS drives the background history poller; 0 disables it.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`

	// CacheTTLMS is how long a history snapshot is served before a
	// prediction triggers a fresh fetch.
	CacheTTLMS int `koanf:"cache_ttl_ms"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// SupplementaryVoters is the number of synthetic voters in the ensemble.
	SupplementaryVoters int `koanf:"supplementary_voters"`

	// SupplementaryMinConfidence and SupplementaryMaxConfidence bound the
	// confidence drawn by each synthetic voter, [min, max).
	SupplementaryMinConfidence float64 `koanf:"supplementary_min_confidence"`
	SupplementaryMaxConfidence float64 `koanf:"supplementary_max_confidence"`

	// RandomSeed makes predictions reproducible when non-zero.
	RandomSeed int64 `koanf:"random_seed"`

	// LedgerDriver selects the prediction ledger: memory, sqlite or postgres.
	LedgerDriver string `koanf:"ledger_driver"`

	// LedgerDSN is the data source name for sqlite/postgres ledgers.
	LedgerDSN string `koanf:"ledger_dsn"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		LogFormat:                  "text",
		Addr:                       ":9080",
		HistoryURL:                 "http://localhost:9090/sessions",
		HistoryPath:                "",
		FetchTimeoutMS:             5_000,
		FetchRPS:                   5,
		FetchMaxElapsedMS:          15_000,
		RefreshIntervalMS:          10_000,
		CacheTTLMS:                 5_000,
		MaxHistoryLimit:            500,
		SupplementaryVoters:        5,
		SupplementaryMinConfidence: 0.6,
		SupplementaryMaxConfidence: 0.8,
		RandomSeed:                 0,
		LedgerDriver:               "memory",
		LedgerDSN:                  "",
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration { return ms(c.FetchTimeoutMS) }

// FetchMaxElapsed returns FetchMaxElapsedMS as a duration.
func (c *Config) FetchMaxElapsed() time.Duration { return ms(c.FetchMaxElapsedMS) }

// RefreshInterval returns RefreshIntervalMS as a duration.
func (c *Config) RefreshInterval() time.Duration { return ms(c.RefreshIntervalMS) }

// CacheTTL returns CacheTTLMS as a duration.
func (c *Config) CacheTTL() time.Duration { return ms(c.CacheTTLMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
