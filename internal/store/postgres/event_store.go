package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polydraft/polydraft/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

const eventCols = `id, venue_id, pool_id, title, outcome_a, outcome_b,
	prob_a, prob_b, draw_outcome, draw_prob, status, winner,
	start_at, resolve_by, resolved_at, created_at, updated_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	var status string
	err := row.Scan(
		&e.ID, &e.VenueID, &e.PoolID, &e.Title, &e.OutcomeA, &e.OutcomeB,
		&e.ProbA, &e.ProbB, &e.DrawOutcome, &e.DrawProb, &status, &e.Winner,
		&e.StartAt, &e.ResolveBy, &e.ResolvedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	e.Status = domain.EventStatus(status)
	return e, nil
}

// UpsertBatch inserts or refreshes events in a single batch. Resolution
// fields are never touched here; the ingestion path only owns metadata and
// live probabilities of not-yet-resolved events.
func (s *EventStore) UpsertBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	const query = `
		INSERT INTO events (
			id, venue_id, pool_id, title, outcome_a, outcome_b,
			prob_a, prob_b, draw_outcome, draw_prob, status, winner,
			start_at, resolve_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, '',
			$12, $13, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			title      = EXCLUDED.title,
			prob_a     = EXCLUDED.prob_a,
			prob_b     = EXCLUDED.prob_b,
			draw_prob  = EXCLUDED.draw_prob,
			resolve_by = EXCLUDED.resolve_by,
			updated_at = NOW()
		WHERE events.status IN ('upcoming', 'active')`

	batch := &pgx.Batch{}
	for _, e := range events {
		status := e.Status
		if status == "" {
			status = domain.EventStatusUpcoming
		}
		batch.Queue(query,
			e.ID, e.VenueID, e.PoolID, e.Title, e.OutcomeA, e.OutcomeB,
			e.ProbA, e.ProbB, e.DrawOutcome, e.DrawProb, string(status),
			e.StartAt, e.ResolveBy,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert event batch item %d: %w", i, err)
		}
	}
	return nil
}

// GetByID retrieves an event by its primary key.
func (s *EventStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("postgres: get event %s: %w", id, err)
	}
	return e, nil
}

// ListByPool returns a pool's events, optionally filtered by status.
func (s *EventStore) ListByPool(ctx context.Context, poolID string, statuses []domain.EventStatus) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE pool_id = $1`
	args := []any{poolID}

	if len(statuses) > 0 {
		strs := make([]string, 0, len(statuses))
		for _, st := range statuses {
			strs = append(strs, string(st))
		}
		query += ` AND status = ANY($2)`
		args = append(args, strs)
	}
	query += ` ORDER BY start_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for pool %s: %w", poolID, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows: %w", err)
	}
	return events, nil
}

// ActivateDue promotes upcoming events whose start time has passed and
// returns their IDs so the caller can enqueue them for resolution polling.
func (s *EventStore) ActivateDue(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE events
		SET status = 'active', updated_at = NOW()
		WHERE status = 'upcoming' AND start_at <= $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: activate due events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan activated event id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: activate due rows: %w", err)
	}
	return ids, nil
}

// MarkResolved transitions an active event to resolved. The WHERE clause on
// the prior status makes this the settlement commit point: of two concurrent
// settlements exactly one sees a row affected.
func (s *EventStore) MarkResolved(ctx context.Context, id, winner string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE events
		SET status = 'resolved', winner = $2, resolved_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`,
		id, winner, at)
	if err != nil {
		return false, fmt.Errorf("postgres: mark event %s resolved: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateProbabilities refreshes the live outcome probabilities of a
// not-yet-resolved event.
func (s *EventStore) UpdateProbabilities(ctx context.Context, id string, probA, probB, drawProb float64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE events
		SET prob_a = $2, prob_b = $3, draw_prob = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ('upcoming', 'active')`,
		id, probA, probB, drawProb)
	if err != nil {
		return fmt.Errorf("postgres: update probabilities for event %s: %w", id, err)
	}
	return nil
}

// ListResolvedWithUnresolvedPicks finds events whose settlement cascade was
// interrupted after the commit point. The reconciliation pass re-runs the
// cascade for them.
func (s *EventStore) ListResolvedWithUnresolvedPicks(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventCols+` FROM events e
		WHERE e.status = 'resolved'
		  AND EXISTS (
			SELECT 1 FROM picks p
			WHERE p.event_id = e.id AND NOT p.is_resolved
		  )
		ORDER BY e.resolved_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved events with unresolved picks: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reconciliation rows: %w", err)
	}
	return events, nil
}

// ListResolvedBefore returns events resolved strictly before the cutoff.
// Used by the archiver; not part of domain.EventStore.
func (s *EventStore) ListResolvedBefore(ctx context.Context, before time.Time) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventCols+` FROM events
		WHERE status = 'resolved' AND resolved_at < $1
		ORDER BY resolved_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved events before %s: %w", before, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: archive rows: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
