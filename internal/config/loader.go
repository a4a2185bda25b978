package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYDRAFT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYDRAFT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "POLYDRAFT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "POLYDRAFT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "POLYDRAFT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "POLYDRAFT_DATABASE_NAME")
	setStr(&cfg.Database.User, "POLYDRAFT_DATABASE_USER")
	setStr(&cfg.Database.Password, "POLYDRAFT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "POLYDRAFT_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "POLYDRAFT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "POLYDRAFT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "POLYDRAFT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POLYDRAFT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYDRAFT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYDRAFT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYDRAFT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYDRAFT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYDRAFT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYDRAFT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYDRAFT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYDRAFT_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYDRAFT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYDRAFT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYDRAFT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYDRAFT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYDRAFT_S3_FORCE_PATH_STYLE")

	// ── Venue ──
	setStr(&cfg.Venue.GammaHost, "POLYDRAFT_VENUE_GAMMA_HOST")

	// ── Payment ──
	setBool(&cfg.Payment.Enabled, "POLYDRAFT_PAYMENT_ENABLED")
	setStr(&cfg.Payment.RPCURL, "POLYDRAFT_PAYMENT_RPC_URL")
	setStr(&cfg.Payment.Token, "POLYDRAFT_PAYMENT_TOKEN")
	setStr(&cfg.Payment.Treasury, "POLYDRAFT_PAYMENT_TREASURY")
	setUint64(&cfg.Payment.PremiumPrice, "POLYDRAFT_PAYMENT_PREMIUM_PRICE")

	// ── Game ──
	setInt(&cfg.Game.PackSize, "POLYDRAFT_GAME_PACK_SIZE")

	// ── Sweep ──
	setDuration(&cfg.Sweep.Interval, "POLYDRAFT_SWEEP_INTERVAL")
	setInt(&cfg.Sweep.BatchSize, "POLYDRAFT_SWEEP_BATCH_SIZE")
	setInt(&cfg.Sweep.Concurrency, "POLYDRAFT_SWEEP_CONCURRENCY")
	setDuration(&cfg.Sweep.ClaimWindow, "POLYDRAFT_SWEEP_CLAIM_WINDOW")
	setDuration(&cfg.Sweep.PollTimeout, "POLYDRAFT_SWEEP_POLL_TIMEOUT")
	setInt(&cfg.Sweep.RateLimit, "POLYDRAFT_SWEEP_RATE_LIMIT")
	setDuration(&cfg.Sweep.RateWindow, "POLYDRAFT_SWEEP_RATE_WINDOW")

	// ── Ingest ──
	setDuration(&cfg.Ingest.Interval, "POLYDRAFT_INGEST_INTERVAL")

	// ── Reconcile ──
	setDuration(&cfg.Reconcile.Interval, "POLYDRAFT_RECONCILE_INTERVAL")
	setInt(&cfg.Reconcile.BatchSize, "POLYDRAFT_RECONCILE_BATCH_SIZE")

	// ── Archive ──
	setStr(&cfg.Archive.Cron, "POLYDRAFT_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "POLYDRAFT_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POLYDRAFT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "POLYDRAFT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYDRAFT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POLYDRAFT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "POLYDRAFT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "POLYDRAFT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYDRAFT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYDRAFT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYDRAFT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYDRAFT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYDRAFT_MODE")
	setStr(&cfg.LogLevel, "POLYDRAFT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
