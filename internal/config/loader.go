package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs read before koanf runs.
const (
	envPrefix     = "TAIXIU_"
	envConfigFile = "TAIXIU_CONFIG"
	envDotEnvFile = "TAIXIU_ENV_FILE"
	defaultDotEnv = ".env"
)

// Known ledger drivers.
var ledgerDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true} //nolint:gochecknoglobals // read-only lookup

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TAIXIU_CONFIG is set
//  3. env (prefix TAIXIU_), after a .env file has been merged into the
//     process environment without overriding variables already set
func Load(_ context.Context) (*Config, error) {
	base := New()

	if err := loadDotEnv(); err != nil {
		return nil, loadErr(ErrDotEnv, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadErr(ErrConfigFile, fmt.Errorf("%s: %w", path, err))
		}
	}

	// TAIXIU_HISTORY_URL -> history_url (flat keys, underscores kept)
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadErr(ErrEnvVars, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, loadErr(ErrDecode, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadErr(source, err error) error {
	return fmt.Errorf("%w: %w: %w", ErrLoadConfig, source, err)
}

// loadDotEnv merges a .env file into the environment when one exists.
func loadDotEnv() error {
	path := os.Getenv(envDotEnvFile)
	if path == "" {
		path = defaultDotEnv
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.HistoryURL) == "":
		return fmt.Errorf("%w: history_url must not be empty", ErrInvalidConfig)
	case c.SupplementaryVoters < 0:
		return fmt.Errorf("%w: supplementary_voters must not be negative", ErrInvalidConfig)
	case c.SupplementaryMinConfidence < 0 ||
		c.SupplementaryMaxConfidence > 1 ||
		c.SupplementaryMinConfidence >= c.SupplementaryMaxConfidence:
		return fmt.Errorf("%w: supplementary confidence range must satisfy 0 <= min < max <= 1", ErrInvalidConfig)
	case !ledgerDrivers[c.LedgerDriver]:
		return fmt.Errorf("%w: unknown ledger_driver %q", ErrInvalidConfig, c.LedgerDriver)
	case c.LedgerDriver != "memory" && c.LedgerDSN == "":
		return fmt.Errorf("%w: ledger_dsn is required for the %s ledger", ErrInvalidConfig, c.LedgerDriver)
	}
	return nil
}
