package config

import "errors"

// Sentinel error kinds for this package. Load failures wrap ErrLoadConfig
// and one of the source errors, so callers can tell which layer failed.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	ErrDotEnv     = errors.New("read .env file")
	ErrConfigFile = errors.New("read config file")
	ErrEnvVars    = errors.New("read TAIXIU_ environment")
	ErrDecode     = errors.New("decode config values")
)
