package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polydraft/polydraft/internal/domain"
)

// venuePollKey is the rate-limiter bucket shared by all resolution polls.
const venuePollKey = "venue:poll"

// Alerter pushes operator alerts out of the background loops. Implementations
// must be safe for concurrent use; delivery is best-effort and never blocks a
// loop from making progress.
type Alerter interface {
	SweepError(ctx context.Context, eventID string, err error) error
	IngestError(ctx context.Context, poolID string, err error) error
	VenueStale(ctx context.Context, eventID string, cachedAt time.Time) error
	ReconcileRun(ctx context.Context, repaired int) error
}

// SweeperConfig tunes one sweep cycle.
type SweeperConfig struct {
	Interval    time.Duration // time between sweep cycles
	BatchSize   int           // queue entries claimed per cycle
	Concurrency int           // parallel venue polls
	ClaimWindow time.Duration // how long a claimed entry stays invisible
	PollTimeout time.Duration // per-event venue call budget
	RateLimit   int           // venue polls allowed per rate window
	RateWindow  time.Duration
}

// Sweeper drives event resolution: it activates due events, claims due queue
// entries, polls the venue for each, and hands confirmed resolutions to the
// settler. Events the venue has not settled yet are pushed back with
// exponential backoff.
type Sweeper struct {
	events  domain.EventStore
	queue   domain.QueueStore
	venue   domain.MarketVenue
	prices  domain.PriceCache
	limiter domain.RateLimiter
	settler *Settler
	alerts  Alerter // optional
	cfg     SweeperConfig
	trigger chan struct{}
	logger  *slog.Logger
}

// NewSweeper creates a Sweeper. limiter and prices may be nil, in which case
// polls are unthrottled and price refresh is skipped.
func NewSweeper(
	events domain.EventStore,
	queue domain.QueueStore,
	venue domain.MarketVenue,
	prices domain.PriceCache,
	limiter domain.RateLimiter,
	settler *Settler,
	cfg SweeperConfig,
	logger *slog.Logger,
) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.ClaimWindow <= 0 {
		cfg.ClaimWindow = 2 * time.Minute
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 15 * time.Second
	}
	return &Sweeper{
		events:  events,
		queue:   queue,
		venue:   venue,
		prices:  prices,
		limiter: limiter,
		settler: settler,
		cfg:     cfg,
		trigger: make(chan struct{}, 1),
		logger:  logger.With(slog.String("component", "sweeper")),
	}
}

// WithAlerter routes sweep failures to an operator alert channel.
func (s *Sweeper) WithAlerter(a Alerter) *Sweeper {
	s.alerts = a
	return s
}

// Trigger returns a channel that runs one sweep pass ahead of schedule when
// sent to. The channel is buffered; pending triggers coalesce.
func (s *Sweeper) Trigger() chan<- struct{} {
	return s.trigger
}

func (s *Sweeper) alertSweepError(ctx context.Context, eventID string, cause error) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.SweepError(ctx, eventID, cause); err != nil {
		s.logger.WarnContext(ctx, "sweep error alert failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
}

// Run executes a single sweep cycle. Per-event failures are isolated: one
// bad event is rescheduled and the rest of the batch proceeds.
func (s *Sweeper) Run(ctx context.Context) error {
	now := time.Now().UTC()

	activated, err := s.events.ActivateDue(ctx, now)
	if err != nil {
		return err
	}
	for _, id := range activated {
		if err := s.queue.Enqueue(ctx, id, 0, now); err != nil {
			s.logger.ErrorContext(ctx, "enqueue activated event failed",
				slog.String("event_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	if len(activated) > 0 {
		s.logger.InfoContext(ctx, "activated events", slog.Int("count", len(activated)))
	}

	entries, err := s.queue.Claim(ctx, now, s.cfg.BatchSize, s.cfg.ClaimWindow)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, entry := range entries {
		g.Go(func() error {
			s.pollEvent(gctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "sweep cycle complete", slog.Int("claimed", len(entries)))
	return nil
}

// pollEvent checks one claimed event against the venue. Three outcomes:
// resolved (settle and dequeue), not yet resolved (reschedule with backoff),
// poll error (log, reschedule with backoff).
func (s *Sweeper) pollEvent(ctx context.Context, entry domain.ResolutionQueueEntry) {
	log := s.logger.With(slog.String("event_id", entry.EventID))

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, venuePollKey, s.cfg.RateLimit, s.cfg.RateWindow)
		if err != nil {
			log.ErrorContext(ctx, "rate limiter check failed", slog.String("error", err.Error()))
		} else if !allowed {
			// Out of budget this window; retry shortly without counting a poll.
			s.reschedule(ctx, entry.EventID, time.Now().UTC().Add(s.cfg.RateWindow))
			return
		}
	}

	event, err := s.events.GetByID(ctx, entry.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.queue.Remove(ctx, entry.EventID)
			return
		}
		log.ErrorContext(ctx, "load event failed", slog.String("error", err.Error()))
		s.backoff(ctx, entry)
		return
	}

	if event.Status == domain.EventStatusResolved || event.Status == domain.EventStatusCancelled {
		_ = s.queue.Remove(ctx, entry.EventID)
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	res, err := s.venue.CheckResolution(pollCtx, event)
	if err != nil {
		log.WarnContext(ctx, "venue poll failed",
			slog.Int("check_count", entry.CheckCount),
			slog.String("error", err.Error()),
		)
		s.backoff(ctx, entry)
		return
	}

	if !res.Resolved {
		s.refreshPrice(ctx, event)
		s.backoff(ctx, entry)
		return
	}

	// A closed market without a determinate winner is not a settlement.
	// Keep polling; the venue reports the winner once the dispute window
	// ends.
	if res.Winner == "" {
		log.WarnContext(ctx, "venue closed market without a winner, rescheduling",
			slog.Int("check_count", entry.CheckCount),
		)
		s.alertSweepError(ctx, entry.EventID, fmt.Errorf("venue resolved market without a winner"))
		s.backoff(ctx, entry)
		return
	}

	if err := s.settler.Settle(ctx, event.ID, res.Winner, time.Now().UTC()); err != nil {
		log.ErrorContext(ctx, "settlement failed", slog.String("error", err.Error()))
		s.alertSweepError(ctx, entry.EventID, err)
		s.backoff(ctx, entry)
	}
}

// refreshPrice pulls the live probability of an unresolved event, updating
// both the cache and the stored probabilities. A failed fetch falls back to
// the last cached price so downstream consumers always have a value.
func (s *Sweeper) refreshPrice(ctx context.Context, event domain.Event) {
	if s.prices == nil {
		return
	}

	price, err := s.venue.FetchPrice(ctx, event.VenueID)
	if err != nil {
		cached, ts, cacheErr := s.prices.GetPrice(ctx, event.VenueID)
		if cacheErr != nil {
			s.logger.WarnContext(ctx, "price fetch failed, no cached fallback",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.WarnContext(ctx, "price fetch failed, using cached price",
			slog.String("event_id", event.ID),
			slog.Float64("cached_price", cached),
			slog.Time("cached_at", ts),
		)
		if s.alerts != nil {
			if alertErr := s.alerts.VenueStale(ctx, event.ID, ts); alertErr != nil {
				s.logger.WarnContext(ctx, "stale price alert failed",
					slog.String("event_id", event.ID),
					slog.String("error", alertErr.Error()),
				)
			}
		}
		return
	}

	if err := s.prices.SetPrice(ctx, event.VenueID, price, time.Now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "price cache write failed",
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
	}

	probB := 1 - price - event.DrawProb
	if probB < 0 {
		probB = 0
	}
	if err := s.events.UpdateProbabilities(ctx, event.ID, price, probB, event.DrawProb); err != nil {
		s.logger.WarnContext(ctx, "probability update failed",
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
	}
}

// backoff reschedules an entry using its post-claim check count, doubling the
// delay per unsuccessful poll up to the cap.
func (s *Sweeper) backoff(ctx context.Context, entry domain.ResolutionQueueEntry) {
	next := time.Now().UTC().Add(domain.NextBackoff(entry.CheckCount))
	s.reschedule(ctx, entry.EventID, next)
}

func (s *Sweeper) reschedule(ctx context.Context, eventID string, next time.Time) {
	if err := s.queue.Reschedule(ctx, eventID, next); err != nil {
		s.logger.ErrorContext(ctx, "reschedule failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
}

// RunLoop runs sweep cycles on a fixed interval until ctx is cancelled.
func (s *Sweeper) RunLoop(ctx context.Context) error {
	// Run immediately on start.
	if err := s.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "sweep cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep cycle failed", slog.String("error", err.Error()))
			}
		case <-s.trigger:
			if err := s.Run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}
