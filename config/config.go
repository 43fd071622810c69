package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Engine     EngineConfig     `yaml:"engine"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// AuthConfig holds the token secret and the administrator identity the
// engine state is seeded with.
type AuthConfig struct {
	Secret          string `yaml:"secret"`
	Admin           string `yaml:"admin"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// EngineConfig seeds the escrow engine parameters on first startup.
// Later changes go through the admin API and persist in the database.
type EngineConfig struct {
	Oracle                string `yaml:"oracle"`
	RatePerMinuteCents    int64  `yaml:"rate_per_minute_cents"`
	MinDepositCents       int64  `yaml:"min_deposit_cents"`
	CheckInTimeoutSeconds int64  `yaml:"checkin_timeout_seconds"`
}

// SensorConfig holds the sensor gateway polling configuration.
type SensorConfig struct {
	Enabled         bool              `yaml:"enabled"`
	URL             string            `yaml:"url"`
	Headers         map[string]string `yaml:"headers"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-"` // Ignored by YAML parser
	OccupiedBelowCM float64           `yaml:"occupied_below_cm"`
	FreeAboveCM     float64           `yaml:"free_above_cm"`
	DebounceCount   int               `yaml:"debounce_count"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads the configuration from the given path and applies defaults
// and sanity floors.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret must be configured")
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 24 * 60
	}

	// The default tariff: 10 cents per minute, 2.00 minimum deposit,
	// 5 minute check-in window.
	if cfg.Engine.RatePerMinuteCents <= 0 {
		cfg.Engine.RatePerMinuteCents = 10
	}
	if cfg.Engine.MinDepositCents <= 0 {
		cfg.Engine.MinDepositCents = 200
	}
	if cfg.Engine.CheckInTimeoutSeconds < 60 {
		cfg.Engine.CheckInTimeoutSeconds = 300
	}

	if cfg.Sensor.IntervalSeconds <= 0 {
		cfg.Sensor.IntervalSeconds = 5
	}
	cfg.Sensor.Interval = time.Duration(cfg.Sensor.IntervalSeconds) * time.Second

	// Hysteresis thresholds: occupancy is entered below the lower bound
	// and left above the upper bound, never flipping on a single noisy
	// reading in between.
	if cfg.Sensor.OccupiedBelowCM <= 0 {
		cfg.Sensor.OccupiedBelowCM = 20.0
	}
	if cfg.Sensor.FreeAboveCM <= cfg.Sensor.OccupiedBelowCM {
		cfg.Sensor.FreeAboveCM = cfg.Sensor.OccupiedBelowCM + 7.0
	}
	if cfg.Sensor.DebounceCount <= 0 {
		cfg.Sensor.DebounceCount = 3
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
