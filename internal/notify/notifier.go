// Package notify delivers operator notifications over one or more channels
// (Telegram, Discord). Event types can be filtered so operators only receive
// the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
)

// Well-known notification event types.
const (
	EventResolved     = "event.resolved"
	EventPackSettled  = "pack.settled"
	EventSweepError   = "sweep.error"
	EventIngestError  = "ingest.error"
	EventVenueStale   = "venue.stale_price"
	EventReconcileRun = "reconcile.run"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name returns the channel identifier, e.g. "telegram".
	Name() string
}

// Notifier fans a notification out to every registered sender. When an
// allow-list of event types is configured, Notify drops everything else.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// New creates a Notifier delivering to the given senders. An empty events
// slice allows every event type.
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers to all senders if the event type passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// PackSettled announces that every pick in a pack has resolved.
func (n *Notifier) PackSettled(ctx context.Context, pack domain.Pack) error {
	title := "Pack settled"
	message := fmt.Sprintf("Pack %s: %d correct, %.2f points", pack.ID, pack.CorrectPicks, pack.TotalPoints)
	return n.Notify(ctx, EventPackSettled, title, message)
}

// EventSettled announces a market event resolution.
func (n *Notifier) EventSettled(ctx context.Context, event domain.Event) error {
	title := "Event resolved"
	message := fmt.Sprintf("%s -> %s", event.Title, event.Winner)
	return n.Notify(ctx, EventResolved, title, message)
}

// SweepError reports a failure inside the resolution sweep.
func (n *Notifier) SweepError(ctx context.Context, eventID string, err error) error {
	title := "Sweep error"
	message := fmt.Sprintf("event %s: %v", eventID, err)
	return n.Notify(ctx, EventSweepError, title, message)
}

// IngestError reports a failed ingestion pass for a pool.
func (n *Notifier) IngestError(ctx context.Context, poolID string, err error) error {
	title := "Ingest error"
	message := fmt.Sprintf("pool %s: %v", poolID, err)
	return n.Notify(ctx, EventIngestError, title, message)
}

// VenueStale reports that live pricing for an event is unavailable and the
// engine fell back to a cached price.
func (n *Notifier) VenueStale(ctx context.Context, eventID string, cachedAt time.Time) error {
	title := "Stale venue price"
	message := fmt.Sprintf("event %s: serving price cached at %s", eventID, cachedAt.Format(time.RFC3339))
	return n.Notify(ctx, EventVenueStale, title, message)
}

// ReconcileRun reports how many interrupted settlements a reconciliation
// pass repaired.
func (n *Notifier) ReconcileRun(ctx context.Context, repaired int) error {
	title := "Settlements reconciled"
	message := fmt.Sprintf("repaired %d interrupted settlement(s)", repaired)
	return n.Notify(ctx, EventReconcileRun, title, message)
}

// dispatch sends to every sender, collecting per-sender failures so one bad
// channel does not block the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
