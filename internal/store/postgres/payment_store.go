package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polydraft/polydraft/internal/domain"
)

// PaymentStore implements domain.PaymentStore using PostgreSQL. The primary
// key on the payment reference is what makes premium purchases replay-proof.
type PaymentStore struct {
	pool *pgxpool.Pool
}

// NewPaymentStore creates a new PaymentStore backed by the given pool.
func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// Record inserts a purchase receipt. A reused reference returns
// domain.ErrAlreadyExists.
func (s *PaymentStore) Record(ctx context.Context, r domain.PaymentReceipt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_receipts (reference, buyer, amount, client_seed, pack_id)
		VALUES ($1, $2, $3, $4, $5)`,
		r.Reference, r.Buyer, r.Amount, r.ClientSeed, r.PackID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: record payment %s: %w", r.Reference, err)
	}
	return nil
}

// GetByReference retrieves a receipt by its payment reference.
func (s *PaymentStore) GetByReference(ctx context.Context, reference string) (domain.PaymentReceipt, error) {
	var r domain.PaymentReceipt
	err := s.pool.QueryRow(ctx, `
		SELECT reference, buyer, amount, client_seed, pack_id, created_at
		FROM payment_receipts WHERE reference = $1`, reference).
		Scan(&r.Reference, &r.Buyer, &r.Amount, &r.ClientSeed, &r.PackID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentReceipt{}, domain.ErrNotFound
		}
		return domain.PaymentReceipt{}, fmt.Errorf("postgres: get payment %s: %w", reference, err)
	}
	return r, nil
}

// Compile-time interface check.
var _ domain.PaymentStore = (*PaymentStore)(nil)
