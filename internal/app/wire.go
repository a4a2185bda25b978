package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/polydraft/polydraft/internal/blob/s3"
	"github.com/polydraft/polydraft/internal/cache/redis"
	"github.com/polydraft/polydraft/internal/config"
	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/notify"
	"github.com/polydraft/polydraft/internal/payment/evm"
	"github.com/polydraft/polydraft/internal/pipeline"
	"github.com/polydraft/polydraft/internal/store/postgres"
	"github.com/polydraft/polydraft/internal/venue/polymarket"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	PoolStore    domain.PoolStore
	EventStore   domain.EventStore
	PackStore    domain.PackStore
	PickStore    domain.PickStore
	QueueStore   domain.QueueStore
	PaymentStore domain.PaymentStore
	AuditStore   domain.AuditStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Venue
	Venue domain.MarketVenue

	// Payments; nil when premium purchases are disabled.
	Verifier domain.PaymentVerifier

	// Cold storage; nil when archival is disabled.
	BlobArchiver pipeline.BlobArchiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PoolStore = postgres.NewPoolStore(pool)
	deps.EventStore = postgres.NewEventStore(pool)
	deps.PackStore = postgres.NewPackStore(pool)
	deps.PickStore = postgres.NewPickStore(pool)
	deps.QueueStore = postgres.NewQueueStore(pool)
	deps.PaymentStore = postgres.NewPaymentStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Market venue ---
	deps.Venue = polymarket.New(cfg.Venue.GammaHost)

	// --- Payment verification (premium packs) ---
	if cfg.Payment.Enabled {
		verifier, err := evm.New(ctx, evm.Config{
			RPCURL:   cfg.Payment.RPCURL,
			Token:    cfg.Payment.Token,
			Treasury: cfg.Payment.Treasury,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: payment verifier: %w", err)
		}
		closers = append(closers, verifier.Close)
		deps.Verifier = verifier
	}

	// --- S3 blob storage (cold archives) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobArchiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			postgres.NewEventStore(pool),
			postgres.NewPackStore(pool),
			deps.AuditStore,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
