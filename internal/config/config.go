package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Ledger backend selectors.
const (
	BackendSheet    = "sheet"
	BackendPostgres = "postgres"
)

// Config contains runtime configuration required by the service.
type Config struct {
	ListenAddr string

	LedgerBackend string
	SheetAPIURL   string
	SheetAPIToken string
	DBURL         string
	LedgerTimeout time.Duration

	RateLimit  int
	RateWindow time.Duration

	LogLevel string

	// StatsRedisAddr enables Redis-backed throttle stats when non-empty.
	StatsRedisAddr string
}

// Load reads values from environment variables.
//
// Required: SHEET_API_URL (sheet backend) or DB_URL (postgres backend).
// Everything else has a working default.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     envOr("LISTEN_ADDR", ":8080"),
		LedgerBackend:  strings.ToLower(envOr("LEDGER_BACKEND", BackendSheet)),
		SheetAPIURL:    strings.TrimSpace(os.Getenv("SHEET_API_URL")),
		SheetAPIToken:  strings.TrimSpace(os.Getenv("SHEET_API_TOKEN")),
		DBURL:          strings.TrimSpace(os.Getenv("DB_URL")),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		StatsRedisAddr: strings.TrimSpace(os.Getenv("STATS_REDIS_ADDR")),
	}

	switch cfg.LedgerBackend {
	case BackendSheet:
		if cfg.SheetAPIURL == "" {
			return Config{}, errors.New("SHEET_API_URL required for the sheet ledger backend")
		}
	case BackendPostgres:
		if cfg.DBURL == "" {
			return Config{}, errors.New("DB_URL required for the postgres ledger backend")
		}
	default:
		return Config{}, fmt.Errorf(`LEDGER_BACKEND must be %q or %q`, BackendSheet, BackendPostgres)
	}

	var err error
	if cfg.RateLimit, err = envInt("RATE_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit < 1 {
		return Config{}, errors.New("RATE_LIMIT must be >= 1")
	}
	if cfg.RateWindow, err = envDuration("RATE_WINDOW", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LedgerTimeout, err = envDuration("LEDGER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 15m: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
