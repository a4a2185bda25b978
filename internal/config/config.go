// Package config defines the top-level configuration for the PolyDraft
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYDRAFT_* environment variables.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Venue     VenueConfig     `toml:"venue"`
	Payment   PaymentConfig   `toml:"payment"`
	Game      GameConfig      `toml:"game"`
	Sweep     SweepConfig     `toml:"sweep"`
	Ingest    IngestConfig    `toml:"ingest"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// VenueConfig holds the market venue API parameters.
type VenueConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// PaymentConfig holds the on-chain payment verification parameters for
// premium packs. When disabled, the premium purchase endpoint rejects all
// requests.
type PaymentConfig struct {
	Enabled  bool   `toml:"enabled"`
	RPCURL   string `toml:"rpc_url"`
	Token    string `toml:"token"`    // ERC-20 contract address (USDC)
	Treasury string `toml:"treasury"` // address that must receive the transfer
	// PremiumPrice is the pack price in the token's smallest unit
	// (5_000_000 = 5 USDC at 6 decimals).
	PremiumPrice uint64 `toml:"premium_price"`
}

// GameConfig holds gameplay parameters.
type GameConfig struct {
	PackSize int `toml:"pack_size"`
}

// SweepConfig tunes the resolution sweep loop.
type SweepConfig struct {
	Interval    duration `toml:"interval"`
	BatchSize   int      `toml:"batch_size"`
	Concurrency int      `toml:"concurrency"`
	ClaimWindow duration `toml:"claim_window"`
	PollTimeout duration `toml:"poll_timeout"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// IngestConfig tunes the pool ingestion loop.
type IngestConfig struct {
	Interval duration `toml:"interval"`
}

// ReconcileConfig tunes the settlement reconciliation loop.
type ReconcileConfig struct {
	Interval  duration `toml:"interval"`
	BatchSize int      `toml:"batch_size"`
}

// ArchiveConfig tunes the cold-storage archival cron.
type ArchiveConfig struct {
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "polydraft",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polydraft-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Venue: VenueConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Payment: PaymentConfig{
			Enabled:      false,
			Token:        "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", // USDC on Polygon
			PremiumPrice: 5_000_000,
		},
		Game: GameConfig{
			PackSize: 5,
		},
		Sweep: SweepConfig{
			Interval:    duration{time.Minute},
			BatchSize:   20,
			Concurrency: 5,
			ClaimWindow: duration{2 * time.Minute},
			PollTimeout: duration{15 * time.Second},
			RateLimit:   30,
			RateWindow:  duration{time.Minute},
		},
		Ingest: IngestConfig{
			Interval: duration{10 * time.Minute},
		},
		Reconcile: ReconcileConfig{
			Interval:  duration{5 * time.Minute},
			BatchSize: 50,
		},
		Archive: ArchiveConfig{
			Cron:          "0 3 * * *",
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"event.resolved", "pack.settled", "sweep.error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":  true,
	"sweep":  true,
	"ingest": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, sweep, ingest, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only checked when archival is enabled.
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Venue
	if c.Venue.GammaHost == "" {
		errs = append(errs, "venue: gamma_host must not be empty")
	}

	// Payment — all chain parameters are required when enabled.
	if c.Payment.Enabled {
		if c.Payment.RPCURL == "" {
			errs = append(errs, "payment: rpc_url is required when enabled")
		}
		if c.Payment.Token == "" {
			errs = append(errs, "payment: token is required when enabled")
		}
		if c.Payment.Treasury == "" {
			errs = append(errs, "payment: treasury is required when enabled")
		}
		if c.Payment.PremiumPrice == 0 {
			errs = append(errs, "payment: premium_price must be > 0 when enabled")
		}
	}

	// Game
	if c.Game.PackSize < 1 || c.Game.PackSize > 10 {
		errs = append(errs, fmt.Sprintf("game: pack_size must be 1-10, got %d", c.Game.PackSize))
	}

	// Sweep
	if c.Sweep.Interval.Duration <= 0 {
		errs = append(errs, "sweep: interval must be > 0")
	}
	if c.Sweep.BatchSize < 1 {
		errs = append(errs, "sweep: batch_size must be >= 1")
	}
	if c.Sweep.Concurrency < 1 {
		errs = append(errs, "sweep: concurrency must be >= 1")
	}

	// Ingest
	if c.Ingest.Interval.Duration <= 0 {
		errs = append(errs, "ingest: interval must be > 0")
	}

	// Reconcile
	if c.Reconcile.Interval.Duration <= 0 {
		errs = append(errs, "reconcile: interval must be > 0")
	}
	if c.Reconcile.BatchSize < 1 {
		errs = append(errs, "reconcile: batch_size must be >= 1")
	}

	// Archive
	if c.Archive.RetentionDays < 1 {
		errs = append(errs, "archive: retention_days must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
