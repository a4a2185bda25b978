package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// EventStore persists events. Status transitions are conditional single-row
// updates so that two overlapping sweeps cannot double-settle the same event.
type EventStore interface {
	UpsertBatch(ctx context.Context, events []Event) error
	GetByID(ctx context.Context, id string) (Event, error)
	ListByPool(ctx context.Context, poolID string, statuses []EventStatus) ([]Event, error)
	// ActivateDue promotes upcoming events whose start time has passed and
	// returns the IDs of the events it activated.
	ActivateDue(ctx context.Context, now time.Time) ([]string, error)
	// MarkResolved is the settlement commit point. It transitions the event
	// to resolved only if it is still active; it returns false when another
	// settlement already won the race.
	MarkResolved(ctx context.Context, id, winner string, at time.Time) (bool, error)
	// UpdateProbabilities refreshes the live outcome probabilities.
	UpdateProbabilities(ctx context.Context, id string, probA, probB, drawProb float64) error
	// ListResolvedWithUnresolvedPicks finds events whose settlement cascade
	// was interrupted: status resolved but at least one linked pick not yet
	// resolved. Used by the reconciliation pass.
	ListResolvedWithUnresolvedPicks(ctx context.Context, limit int) ([]Event, error)
}

// PoolStore persists pools.
type PoolStore interface {
	Create(ctx context.Context, pool Pool) error
	GetByID(ctx context.Context, id string) (Pool, error)
	List(ctx context.Context, opts ListOpts) ([]Pool, error)
}

// PackStore persists packs and owns the reveal pointer and aggregate fields.
type PackStore interface {
	// CreateWithPicks atomically inserts a pack and its ordered picks.
	// Inserting an already-existing pack ID returns ErrAlreadyExists so the
	// caller can treat a retried submission as a no-op success.
	CreateWithPicks(ctx context.Context, pack Pack, picks []Pick) error
	GetByID(ctx context.Context, id string) (Pack, error)
	ListByProfile(ctx context.Context, profileID string, opts ListOpts) ([]Pack, error)
	// RevealAt atomically bumps the reveal pointer from fromIndex to
	// fromIndex+1 and marks the pick at position revealed, in one
	// transaction. It is conditional on the pointer still being fromIndex
	// and the pick being resolved and unrevealed; it returns false when a
	// concurrent reveal won.
	RevealAt(ctx context.Context, packID string, fromIndex, position int) (bool, error)
	// UpdateAggregates persists the ledger's recomputed totals.
	UpdateAggregates(ctx context.Context, packID string, totalPoints float64, correctPicks int, status PackResolutionStatus, fullyResolvedAt *time.Time) error
}

// PickStore persists picks. Resolve is a guarded write: a pick resolves at
// most once. The reveal flag is owned by PackStore.RevealAt, which flips it
// together with the pack's reveal pointer.
type PickStore interface {
	ListByPack(ctx context.Context, packID string) ([]Pick, error)
	GetByPosition(ctx context.Context, packID string, position int) (Pick, error)
	// ListUnresolvedByEvent returns picks referencing the event that the
	// settlement cascade still has to score.
	ListUnresolvedByEvent(ctx context.Context, eventID string) ([]Pick, error)
	// Resolve writes the resolution fields once; a second call on an
	// already-resolved pick affects zero rows and returns false.
	Resolve(ctx context.Context, pickID string, correct bool, points float64, at time.Time) (bool, error)
}

// QueueStore persists the resolution backoff queue.
type QueueStore interface {
	// Enqueue adds an event to the queue; enqueueing an already-queued event
	// is a no-op.
	Enqueue(ctx context.Context, eventID string, priority int, nextCheckAt time.Time) error
	// Claim atomically selects up to limit due entries, bumps their check
	// counts and pushes NextCheckAt forward by claimWindow so that an
	// overlapping sweep skips them. The entries are returned with the
	// incremented check count.
	Claim(ctx context.Context, now time.Time, limit int, claimWindow time.Duration) ([]ResolutionQueueEntry, error)
	// Reschedule sets the definitive next check time after a poll.
	Reschedule(ctx context.Context, eventID string, nextCheckAt time.Time) error
	Remove(ctx context.Context, eventID string) error
}

// PaymentStore persists purchase receipts with a uniqueness constraint on the
// payment reference to prevent replay.
type PaymentStore interface {
	// Record inserts a receipt; a duplicate reference returns ErrAlreadyExists.
	Record(ctx context.Context, receipt PaymentReceipt) error
	GetByReference(ctx context.Context, reference string) (PaymentReceipt, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
