package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all engine settings. Values come from the environment with
// sensible defaults; an optional .env file in the data dir or the current
// directory supplies deployment overrides.
type Config struct {
	// Remote optimizer service
	OptimizerURL   string        // base URL of the optimizer HTTP API
	RequestTimeout time.Duration // per-request timeout for optimizer calls

	// Dashboard-facing server
	ListenAddr  string // address for the websocket/API server
	MetricsAddr string // address for the Prometheus metrics endpoint

	// Engine timing
	RefreshInterval time.Duration // auto-refresh poll period
	PhaseHold       time.Duration // minimum visible duration of each cycle phase
	ToastVisible    time.Duration // how long a toast stays on screen
	ToastExit       time.Duration // exit-transition window before disposal

	// History bounds
	ActivityLimit   int // activity feed cap
	DecisionDisplay int // decisions shown on the dashboard
	DecisionFetch   int // decisions requested from the service

	// Persistence
	DataDir string // directory for the persisted activity feed

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	dataDir := "/var/lib/optiview"
	if dir := os.Getenv("OPTIVIEW_DATA_DIR"); dir != "" {
		dataDir = dir
	}

	// Load .env if present (deployment overrides first, then dev convenience)
	envFile := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("Failed to load .env file")
		} else {
			log.Info().Str("file", envFile).Msg("Loaded .env file for deployment overrides")
		}
	}
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded configuration from .env in current directory")
	}

	cfg := &Config{
		OptimizerURL:    "http://localhost:8000",
		RequestTimeout:  15 * time.Second,
		ListenAddr:      ":7680",
		MetricsAddr:     ":9096",
		RefreshInterval: 10 * time.Second,
		PhaseHold:       500 * time.Millisecond,
		ToastVisible:    4000 * time.Millisecond,
		ToastExit:       300 * time.Millisecond,
		ActivityLimit:   20,
		DecisionDisplay: 5,
		DecisionFetch:   10,
		DataDir:         dataDir,
		LogLevel:        "info",
		LogFormat:       "auto",
	}

	applyString(&cfg.OptimizerURL, "OPTIVIEW_OPTIMIZER_URL")
	applyString(&cfg.ListenAddr, "OPTIVIEW_LISTEN_ADDR")
	applyString(&cfg.MetricsAddr, "OPTIVIEW_METRICS_ADDR")
	applyString(&cfg.LogLevel, "OPTIVIEW_LOG_LEVEL")
	applyString(&cfg.LogFormat, "OPTIVIEW_LOG_FORMAT")
	applyDuration(&cfg.RequestTimeout, "OPTIVIEW_REQUEST_TIMEOUT")
	applyDuration(&cfg.RefreshInterval, "OPTIVIEW_REFRESH_INTERVAL")
	applyDuration(&cfg.PhaseHold, "OPTIVIEW_PHASE_HOLD")
	applyInt(&cfg.ActivityLimit, "OPTIVIEW_ACTIVITY_LIMIT")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OptimizerURL == "" {
		return fmt.Errorf("optimizer URL must not be empty")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.RefreshInterval)
	}
	if c.ActivityLimit <= 0 {
		return fmt.Errorf("activity limit must be positive, got %d", c.ActivityLimit)
	}
	return nil
}

func applyString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, keeping default")
		return
	}
	*dst = d
}

func applyInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer, keeping default")
		return
	}
	*dst = n
}
