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

// PackStore implements domain.PackStore using PostgreSQL.
type PackStore struct {
	pool *pgxpool.Pool
}

// NewPackStore creates a new PackStore backed by the given connection pool.
func NewPackStore(pool *pgxpool.Pool) *PackStore {
	return &PackStore{pool: pool}
}

const packCols = `id, profile_id, pool_id, premium, payment_ref, opened_at,
	current_reveal_index, total_points, correct_picks, resolution_status,
	fully_resolved_at`

func scanPack(row pgx.Row) (domain.Pack, error) {
	var p domain.Pack
	var status string
	err := row.Scan(
		&p.ID, &p.ProfileID, &p.PoolID, &p.Premium, &p.PaymentRef, &p.OpenedAt,
		&p.CurrentRevealIndex, &p.TotalPoints, &p.CorrectPicks, &status,
		&p.FullyResolvedAt,
	)
	if err != nil {
		return domain.Pack{}, err
	}
	p.ResolutionStatus = domain.PackResolutionStatus(status)
	return p, nil
}

// CreateWithPicks atomically inserts a pack and its ordered picks in one
// transaction. An existing pack ID aborts with domain.ErrAlreadyExists so
// that a retried submission can be answered as a no-op success.
func (s *PackStore) CreateWithPicks(ctx context.Context, pack domain.Pack, picks []domain.Pick) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin create pack: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO packs (
			id, profile_id, pool_id, premium, payment_ref, opened_at,
			resolution_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pack.ID, pack.ProfileID, pack.PoolID, pack.Premium, pack.PaymentRef,
		pack.OpenedAt, string(domain.PackResolutionPending))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert pack %s: %w", pack.ID, err)
	}

	for _, pick := range picks {
		_, err := tx.Exec(ctx, `
			INSERT INTO picks (
				id, pack_id, position, event_id, outcome, prob_snapshot,
				target_rarity, actual_rarity
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			pick.ID, pack.ID, pick.Position, pick.EventID, pick.Outcome,
			pick.ProbSnapshot, pick.TargetRarity, pick.ActualRarity)
		if err != nil {
			return fmt.Errorf("postgres: insert pick %d for pack %s: %w", pick.Position, pack.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit create pack %s: %w", pack.ID, err)
	}
	return nil
}

// GetByID retrieves a pack by its primary key.
func (s *PackStore) GetByID(ctx context.Context, id string) (domain.Pack, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+packCols+` FROM packs WHERE id = $1`, id)
	p, err := scanPack(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pack{}, domain.ErrNotFound
		}
		return domain.Pack{}, fmt.Errorf("postgres: get pack %s: %w", id, err)
	}
	return p, nil
}

// ListByProfile returns a profile's packs, newest first.
func (s *PackStore) ListByProfile(ctx context.Context, profileID string, opts domain.ListOpts) ([]domain.Pack, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+packCols+` FROM packs
		WHERE profile_id = $1
		ORDER BY opened_at DESC
		LIMIT $2 OFFSET $3`, profileID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list packs for profile %s: %w", profileID, err)
	}
	defer rows.Close()

	var packs []domain.Pack
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pack: %w", err)
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list packs rows: %w", err)
	}
	return packs, nil
}

// RevealAt advances the reveal pointer and flips the pick's reveal_played
// flag in one transaction, so a crash cannot strand the pointer past an
// unrevealed pick. The pointer update is conditional on it still holding
// fromIndex; a concurrent reveal loses the race and gets false.
func (s *PackStore) RevealAt(ctx context.Context, packID string, fromIndex, position int) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("postgres: begin reveal for pack %s: %w", packID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE packs
		SET current_reveal_index = $2 + 1
		WHERE id = $1 AND current_reveal_index = $2`,
		packID, fromIndex)
	if err != nil {
		return false, fmt.Errorf("postgres: advance reveal for pack %s: %w", packID, err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	tag, err = tx.Exec(ctx, `
		UPDATE picks
		SET reveal_played = TRUE
		WHERE pack_id = $1 AND position = $2
		  AND is_resolved AND NOT reveal_played`,
		packID, position)
	if err != nil {
		return false, fmt.Errorf("postgres: mark pick %s/%d revealed: %w", packID, position, err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("postgres: commit reveal for pack %s: %w", packID, err)
	}
	return true, nil
}

// UpdateAggregates persists the ledger's recomputed totals for a pack.
func (s *PackStore) UpdateAggregates(ctx context.Context, packID string, totalPoints float64, correctPicks int, status domain.PackResolutionStatus, fullyResolvedAt *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE packs
		SET total_points = $2,
		    correct_picks = $3,
		    resolution_status = $4,
		    fully_resolved_at = COALESCE(fully_resolved_at, $5)
		WHERE id = $1`,
		packID, totalPoints, correctPicks, string(status), fullyResolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: update aggregates for pack %s: %w", packID, err)
	}
	return nil
}

// ListFullyResolvedBefore returns packs whose every pick settled strictly
// before the cutoff. Used by the archiver; not part of domain.PackStore.
func (s *PackStore) ListFullyResolvedBefore(ctx context.Context, before time.Time) ([]domain.Pack, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+packCols+` FROM packs
		WHERE resolution_status = 'fully_resolved' AND fully_resolved_at < $1
		ORDER BY fully_resolved_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fully resolved packs before %s: %w", before, err)
	}
	defer rows.Close()

	var packs []domain.Pack
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pack: %w", err)
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: archive rows: %w", err)
	}
	return packs, nil
}

// Compile-time interface check.
var _ domain.PackStore = (*PackStore)(nil)
