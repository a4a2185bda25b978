package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polydraft/polydraft/internal/domain"
)

// PoolStore implements domain.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore creates a new PoolStore backed by the given connection pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Create inserts a new pool. Duplicate IDs return domain.ErrAlreadyExists.
func (s *PoolStore) Create(ctx context.Context, p domain.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (id, name, venue, tag, window_start, window_end)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Venue, p.Tag, p.WindowStart, p.WindowEnd)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create pool %s: %w", p.ID, err)
	}
	return nil
}

// GetByID retrieves a pool by its primary key.
func (s *PoolStore) GetByID(ctx context.Context, id string) (domain.Pool, error) {
	var p domain.Pool
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, venue, tag, window_start, window_end, created_at
		FROM pools WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Venue, &p.Tag, &p.WindowStart, &p.WindowEnd, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pool{}, domain.ErrNotFound
		}
		return domain.Pool{}, fmt.Errorf("postgres: get pool %s: %w", id, err)
	}
	return p, nil
}

// List returns pools ordered by creation time, newest first.
func (s *PoolStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Pool, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, venue, tag, window_start, window_end, created_at
		FROM pools
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pools: %w", err)
	}
	defer rows.Close()

	var pools []domain.Pool
	for rows.Next() {
		var p domain.Pool
		if err := rows.Scan(&p.ID, &p.Name, &p.Venue, &p.Tag, &p.WindowStart, &p.WindowEnd, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list pools rows: %w", err)
	}
	return pools, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Compile-time interface check.
var _ domain.PoolStore = (*PoolStore)(nil)
