// Package pipeline contains the background loops: pool ingestion, the
// resolution sweep, settlement, reconciliation, and cold-storage archival.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/ledger"
	"github.com/polydraft/polydraft/internal/scoring"
)

// SettleNotifier receives settlement announcements. Implementations must
// tolerate being called more than once for the same pack or event.
type SettleNotifier interface {
	PackSettled(ctx context.Context, pack domain.Pack) error
	EventSettled(ctx context.Context, event domain.Event) error
}

// PackBroadcaster pushes live pack updates to connected clients.
type PackBroadcaster interface {
	BroadcastPackUpdate(packID string, snap ledger.Snapshot)
}

// Settler turns a venue resolution into scored picks and updated pack
// aggregates. The event status transition is the commit point: everything
// after it is re-runnable, and the reconciler re-runs it for events whose
// cascade was interrupted.
type Settler struct {
	events    domain.EventStore
	picks     domain.PickStore
	packs     domain.PackStore
	queue     domain.QueueStore
	audit     domain.AuditStore // optional
	notifier  SettleNotifier    // optional
	broadcast PackBroadcaster   // optional
	logger    *slog.Logger
}

// NewSettler creates a Settler. audit, notifier and broadcast may be nil.
func NewSettler(
	events domain.EventStore,
	picks domain.PickStore,
	packs domain.PackStore,
	queue domain.QueueStore,
	audit domain.AuditStore,
	notifier SettleNotifier,
	broadcast PackBroadcaster,
	logger *slog.Logger,
) *Settler {
	return &Settler{
		events:    events,
		picks:     picks,
		packs:     packs,
		queue:     queue,
		audit:     audit,
		notifier:  notifier,
		broadcast: broadcast,
		logger:    logger.With(slog.String("component", "settler")),
	}
}

// auditLog appends an audit entry; a failed write never fails a settlement.
func (s *Settler) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// Settle commits an event resolution and cascades it to all affected picks
// and packs. Losing the commit race means another settlement already ran;
// that is a clean no-op, the winner owns the cascade and the reconciler
// covers the winner crashing mid-way.
func (s *Settler) Settle(ctx context.Context, eventID, winner string, at time.Time) error {
	committed, err := s.events.MarkResolved(ctx, eventID, winner, at)
	if err != nil {
		return fmt.Errorf("pipeline: settle event %s: %w", eventID, err)
	}
	if !committed {
		s.logger.InfoContext(ctx, "settlement race lost, skipping cascade",
			slog.String("event_id", eventID),
		)
		return nil
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("pipeline: load settled event %s: %w", eventID, err)
	}

	s.auditLog(ctx, "event.settled", map[string]any{
		"event_id": eventID,
		"winner":   winner,
	})

	if s.notifier != nil {
		if err := s.notifier.EventSettled(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "event settled notification failed",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.Cascade(ctx, event)
}

// Cascade scores every unresolved pick referencing a resolved event, then
// recomputes the aggregates of each touched pack. It is idempotent: resolved
// picks are skipped by the guarded write, and the ledger recomputes pack
// totals from scratch.
func (s *Settler) Cascade(ctx context.Context, event domain.Event) error {
	if event.Status != domain.EventStatusResolved {
		return fmt.Errorf("pipeline: cascade on %s event %s", event.Status, event.ID)
	}

	picks, err := s.picks.ListUnresolvedByEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("pipeline: list unresolved picks for event %s: %w", event.ID, err)
	}

	touched := make(map[string]bool)
	now := time.Now().UTC()

	for _, pick := range picks {
		correct := pick.Outcome == event.Winner
		var points float64
		if correct {
			score, err := scoring.ScorePick(pick.ProbSnapshot, true)
			if err != nil {
				return fmt.Errorf("pipeline: score pick %s: %w", pick.ID, err)
			}
			points = score.Points
		}

		resolved, err := s.picks.Resolve(ctx, pick.ID, correct, points, now)
		if err != nil {
			return fmt.Errorf("pipeline: resolve pick %s: %w", pick.ID, err)
		}
		if resolved {
			touched[pick.PackID] = true
		}
	}

	for packID := range touched {
		if err := s.refreshPack(ctx, packID); err != nil {
			return err
		}
	}

	if err := s.queue.Remove(ctx, event.ID); err != nil {
		return fmt.Errorf("pipeline: dequeue event %s: %w", event.ID, err)
	}

	s.logger.InfoContext(ctx, "settlement cascade complete",
		slog.String("event_id", event.ID),
		slog.String("winner", event.Winner),
		slog.Int("picks_resolved", len(picks)),
		slog.Int("packs_touched", len(touched)),
	)
	return nil
}

// refreshPack recomputes and persists one pack's aggregates, announcing the
// pack when this settlement completed it.
func (s *Settler) refreshPack(ctx context.Context, packID string) error {
	pack, err := s.packs.GetByID(ctx, packID)
	if err != nil {
		return fmt.Errorf("pipeline: load pack %s: %w", packID, err)
	}
	picks, err := s.picks.ListByPack(ctx, packID)
	if err != nil {
		return fmt.Errorf("pipeline: list picks for pack %s: %w", packID, err)
	}

	snap := ledger.Compute(pack, picks)

	var fullyResolvedAt *time.Time
	if snap.ResolutionStatus == domain.PackResolutionFull {
		now := time.Now().UTC()
		fullyResolvedAt = &now
	}

	if err := s.packs.UpdateAggregates(ctx, packID, snap.TotalPoints, snap.CorrectPicks, snap.ResolutionStatus, fullyResolvedAt); err != nil {
		return fmt.Errorf("pipeline: update aggregates for pack %s: %w", packID, err)
	}

	if s.broadcast != nil {
		s.broadcast.BroadcastPackUpdate(packID, snap)
	}

	if snap.ResolutionStatus == domain.PackResolutionFull {
		s.auditLog(ctx, "pack.settled", map[string]any{
			"pack_id":       packID,
			"total_points":  snap.TotalPoints,
			"correct_picks": snap.CorrectPicks,
		})
		if s.notifier != nil {
			pack.TotalPoints = snap.TotalPoints
			pack.CorrectPicks = snap.CorrectPicks
			pack.ResolutionStatus = snap.ResolutionStatus
			if err := s.notifier.PackSettled(ctx, pack); err != nil {
				s.logger.WarnContext(ctx, "pack settled notification failed",
					slog.String("pack_id", packID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}
