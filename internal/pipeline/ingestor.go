package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polydraft/polydraft/internal/domain"
)

// ingestLockTTL bounds how long an ingest lock can outlive a crashed worker.
const ingestLockTTL = 5 * time.Minute

// Ingestor pulls markets from the venue for every pool and upserts them as
// events. A distributed lock per pool keeps overlapping workers from racing
// each other on the same pool.
type Ingestor struct {
	pools  domain.PoolStore
	events domain.EventStore
	venue  domain.MarketVenue
	locks  domain.LockManager
	alerts Alerter // optional
	logger *slog.Logger
}

// NewIngestor creates an Ingestor. locks may be nil for single-worker
// deployments.
func NewIngestor(
	pools domain.PoolStore,
	events domain.EventStore,
	venue domain.MarketVenue,
	locks domain.LockManager,
	logger *slog.Logger,
) *Ingestor {
	return &Ingestor{
		pools:  pools,
		events: events,
		venue:  venue,
		locks:  locks,
		logger: logger.With(slog.String("component", "ingestor")),
	}
}

// WithAlerter routes ingest failures to an operator alert channel.
func (in *Ingestor) WithAlerter(a Alerter) *Ingestor {
	in.alerts = a
	return in
}

// Run executes a single ingestion pass over all pools. A pool whose lock is
// held elsewhere is skipped; other per-pool failures are logged and the pass
// continues.
func (in *Ingestor) Run(ctx context.Context) error {
	pools, err := in.pools.List(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("pipeline: list pools: %w", err)
	}

	for _, pool := range pools {
		if err := in.ingestPool(ctx, pool); err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				in.logger.DebugContext(ctx, "pool locked by another worker",
					slog.String("pool_id", pool.ID),
				)
				continue
			}
			in.logger.ErrorContext(ctx, "pool ingest failed",
				slog.String("pool_id", pool.ID),
				slog.String("error", err.Error()),
			)
			if in.alerts != nil {
				if alertErr := in.alerts.IngestError(ctx, pool.ID, err); alertErr != nil {
					in.logger.WarnContext(ctx, "ingest alert failed", slog.String("error", alertErr.Error()))
				}
			}
		}
	}
	return nil
}

func (in *Ingestor) ingestPool(ctx context.Context, pool domain.Pool) error {
	if in.locks != nil {
		unlock, err := in.locks.Acquire(ctx, "ingest:"+pool.ID, ingestLockTTL)
		if err != nil {
			return err
		}
		defer unlock()
	}

	filter := domain.PoolFilter{
		Tag:         pool.Tag,
		WindowStart: pool.WindowStart,
		WindowEnd:   pool.WindowEnd,
	}

	events, err := in.venue.ListMarkets(ctx, filter)
	if err != nil {
		return fmt.Errorf("list markets for pool %s: %w", pool.ID, err)
	}

	for i := range events {
		events[i].ID = eventID(pool.Venue, events[i].VenueID)
		events[i].PoolID = pool.ID
	}

	if err := in.events.UpsertBatch(ctx, events); err != nil {
		return fmt.Errorf("upsert events for pool %s: %w", pool.ID, err)
	}

	in.logger.InfoContext(ctx, "pool ingested",
		slog.String("pool_id", pool.ID),
		slog.Int("events", len(events)),
	)
	return nil
}

// eventID derives a stable internal ID from the venue and its market ID, so
// repeated ingest passes upsert instead of duplicating.
func eventID(venue, venueID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(venue+":"+venueID)).String()
}

// RunLoop runs ingestion passes on a fixed interval until ctx is cancelled.
func (in *Ingestor) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := in.Run(ctx); err != nil {
		in.logger.ErrorContext(ctx, "ingest pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("ingestor loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := in.Run(ctx); err != nil {
				in.logger.ErrorContext(ctx, "ingest pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
