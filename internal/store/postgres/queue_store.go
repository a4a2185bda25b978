package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polydraft/polydraft/internal/domain"
)

// QueueStore implements domain.QueueStore using PostgreSQL.
type QueueStore struct {
	pool *pgxpool.Pool
}

// NewQueueStore creates a new QueueStore backed by the given connection pool.
func NewQueueStore(pool *pgxpool.Pool) *QueueStore {
	return &QueueStore{pool: pool}
}

// Enqueue adds an event to the resolution queue. Re-enqueueing an event that
// is already queued is a no-op.
func (s *QueueStore) Enqueue(ctx context.Context, eventID string, priority int, nextCheckAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO resolution_queue (event_id, priority, next_check_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, priority, nextCheckAt)
	if err != nil {
		return fmt.Errorf("postgres: enqueue event %s: %w", eventID, err)
	}
	return nil
}

// Claim atomically grabs up to limit due entries. It bumps check_count and
// pushes next_check_at forward by claimWindow inside the same statement, so
// the row itself is the dedup gate: an overlapping sweep selecting due
// entries will not see claimed rows again until the claim window expires.
// FOR UPDATE SKIP LOCKED keeps two simultaneous claimers from blocking on or
// double-claiming the same rows.
func (s *QueueStore) Claim(ctx context.Context, now time.Time, limit int, claimWindow time.Duration) ([]domain.ResolutionQueueEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		UPDATE resolution_queue q
		SET check_count = q.check_count + 1,
		    last_check_at = $1,
		    next_check_at = $1 + make_interval(secs => $3)
		FROM (
			SELECT event_id FROM resolution_queue
			WHERE next_check_at <= $1
			ORDER BY priority DESC, next_check_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) due
		WHERE q.event_id = due.event_id
		RETURNING q.event_id, q.priority, q.check_count, q.last_check_at,
		          q.next_check_at, q.created_at`,
		now, limit, claimWindow.Seconds())
	if err != nil {
		return nil, fmt.Errorf("postgres: claim due queue entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ResolutionQueueEntry
	for rows.Next() {
		var e domain.ResolutionQueueEntry
		if err := rows.Scan(&e.EventID, &e.Priority, &e.CheckCount,
			&e.LastCheckAt, &e.NextCheckAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: claim rows: %w", err)
	}
	return entries, nil
}

// Reschedule sets the definitive next check time after a poll completed.
func (s *QueueStore) Reschedule(ctx context.Context, eventID string, nextCheckAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE resolution_queue
		SET next_check_at = $2
		WHERE event_id = $1`,
		eventID, nextCheckAt)
	if err != nil {
		return fmt.Errorf("postgres: reschedule event %s: %w", eventID, err)
	}
	return nil
}

// Remove deletes an event's queue entry once it has settled.
func (s *QueueStore) Remove(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM resolution_queue WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("postgres: remove queue entry %s: %w", eventID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.QueueStore = (*QueueStore)(nil)
