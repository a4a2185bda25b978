package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
)

// Reconciler repairs interrupted settlements. An event can be marked
// resolved while the worker dies before finishing the pick cascade; this
// pass finds such events and re-runs the cascade, which is idempotent.
type Reconciler struct {
	events  domain.EventStore
	settler *Settler
	alerts  Alerter // optional
	batch   int
	logger  *slog.Logger
}

// NewReconciler creates a Reconciler processing up to batch events per pass.
func NewReconciler(events domain.EventStore, settler *Settler, batch int, logger *slog.Logger) *Reconciler {
	if batch <= 0 {
		batch = 50
	}
	return &Reconciler{
		events:  events,
		settler: settler,
		batch:   batch,
		logger:  logger.With(slog.String("component", "reconciler")),
	}
}

// WithAlerter routes reconciliation outcomes to an operator alert channel.
func (r *Reconciler) WithAlerter(a Alerter) *Reconciler {
	r.alerts = a
	return r
}

// Run executes a single reconciliation pass. Per-event failures are logged
// and the pass continues; the event stays eligible for the next pass.
func (r *Reconciler) Run(ctx context.Context) error {
	events, err := r.events.ListResolvedWithUnresolvedPicks(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("pipeline: list interrupted settlements: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	r.logger.InfoContext(ctx, "reconciling interrupted settlements", slog.Int("count", len(events)))

	repaired := 0
	for _, event := range events {
		if err := r.settler.Cascade(ctx, event); err != nil {
			r.logger.ErrorContext(ctx, "reconciliation cascade failed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
			if r.alerts != nil {
				if alertErr := r.alerts.SweepError(ctx, event.ID, err); alertErr != nil {
					r.logger.WarnContext(ctx, "reconcile alert failed", slog.String("error", alertErr.Error()))
				}
			}
			continue
		}
		repaired++
	}

	if repaired > 0 && r.alerts != nil {
		if err := r.alerts.ReconcileRun(ctx, repaired); err != nil {
			r.logger.WarnContext(ctx, "reconcile alert failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// RunLoop runs reconciliation passes on a fixed interval until ctx is
// cancelled.
func (r *Reconciler) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := r.Run(ctx); err != nil {
		r.logger.ErrorContext(ctx, "reconciliation pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Run(ctx); err != nil {
				r.logger.ErrorContext(ctx, "reconciliation pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
