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

// PickStore implements domain.PickStore using PostgreSQL.
type PickStore struct {
	pool *pgxpool.Pool
}

// NewPickStore creates a new PickStore backed by the given connection pool.
func NewPickStore(pool *pgxpool.Pool) *PickStore {
	return &PickStore{pool: pool}
}

const pickCols = `id, pack_id, position, event_id, outcome, prob_snapshot,
	target_rarity, actual_rarity, is_resolved, is_correct, points_awarded,
	resolved_at, reveal_played`

func scanPick(row pgx.Row) (domain.Pick, error) {
	var p domain.Pick
	err := row.Scan(
		&p.ID, &p.PackID, &p.Position, &p.EventID, &p.Outcome, &p.ProbSnapshot,
		&p.TargetRarity, &p.ActualRarity, &p.IsResolved, &p.IsCorrect,
		&p.PointsAwarded, &p.ResolvedAt, &p.RevealPlayed,
	)
	return p, err
}

// ListByPack returns a pack's picks in position order.
func (s *PickStore) ListByPack(ctx context.Context, packID string) ([]domain.Pick, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pickCols+` FROM picks
		WHERE pack_id = $1
		ORDER BY position ASC`, packID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list picks for pack %s: %w", packID, err)
	}
	defer rows.Close()

	var picks []domain.Pick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pick: %w", err)
		}
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list picks rows: %w", err)
	}
	return picks, nil
}

// GetByPosition retrieves one pick by pack and 1-based position.
func (s *PickStore) GetByPosition(ctx context.Context, packID string, position int) (domain.Pick, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+pickCols+` FROM picks
		WHERE pack_id = $1 AND position = $2`, packID, position)
	p, err := scanPick(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pick{}, domain.ErrNotFound
		}
		return domain.Pick{}, fmt.Errorf("postgres: get pick %s/%d: %w", packID, position, err)
	}
	return p, nil
}

// ListUnresolvedByEvent returns the picks the settlement cascade still has to
// score for an event.
func (s *PickStore) ListUnresolvedByEvent(ctx context.Context, eventID string) ([]domain.Pick, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pickCols+` FROM picks
		WHERE event_id = $1 AND NOT is_resolved
		ORDER BY pack_id, position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unresolved picks for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var picks []domain.Pick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pick: %w", err)
		}
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: unresolved picks rows: %w", err)
	}
	return picks, nil
}

// Resolve writes the resolution fields exactly once. The is_resolved guard
// makes a retried cascade a no-op: the second write affects zero rows.
func (s *PickStore) Resolve(ctx context.Context, pickID string, correct bool, points float64, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE picks
		SET is_resolved = TRUE,
		    is_correct = $2,
		    points_awarded = $3,
		    resolved_at = $4
		WHERE id = $1 AND NOT is_resolved`,
		pickID, correct, points, at)
	if err != nil {
		return false, fmt.Errorf("postgres: resolve pick %s: %w", pickID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Compile-time interface check.
var _ domain.PickStore = (*PickStore)(nil)
