// Package service implements the application use cases on top of the domain
// stores: drafting, pack submission, premium purchases, and the reveal flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polydraft/polydraft/internal/composer"
	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/ledger"
	"github.com/polydraft/polydraft/internal/rarity"
	"github.com/polydraft/polydraft/internal/reveal"
)

// PackService handles the pack lifecycle: drafting, submission, premium
// purchase, reveals, and the pack read model.
type PackService struct {
	packs    domain.PackStore
	picks    domain.PickStore
	events   domain.EventStore
	pools    domain.PoolStore
	payments domain.PaymentStore
	verifier domain.PaymentVerifier // nil disables premium purchases
	composer *composer.Composer
	audit    domain.AuditStore

	packSize     int
	premiumPrice uint64 // smallest token unit, e.g. 5_000_000 = 5 USDC
	logger       *slog.Logger
}

// NewPackService creates a PackService with all required dependencies.
// verifier may be nil when premium purchases are disabled.
func NewPackService(
	packs domain.PackStore,
	picks domain.PickStore,
	events domain.EventStore,
	pools domain.PoolStore,
	payments domain.PaymentStore,
	verifier domain.PaymentVerifier,
	comp *composer.Composer,
	audit domain.AuditStore,
	packSize int,
	premiumPrice uint64,
	logger *slog.Logger,
) *PackService {
	if packSize <= 0 {
		packSize = 5
	}
	return &PackService{
		packs:        packs,
		picks:        picks,
		events:       events,
		pools:        pools,
		payments:     payments,
		verifier:     verifier,
		composer:     comp,
		audit:        audit,
		packSize:     packSize,
		premiumPrice: premiumPrice,
		logger:       logger.With(slog.String("component", "pack_service")),
	}
}

// ComposeDraft rolls rarities and drafts a pack-sized slate of events from
// the pool's live markets. It returns ErrPoolExhausted when the pool has no
// draftable events at all; a short slate (pool thinner than the pack size)
// is returned as-is.
func (s *PackService) ComposeDraft(ctx context.Context, poolID string) ([]composer.DraftEvent, error) {
	if _, err := s.pools.GetByID(ctx, poolID); err != nil {
		return nil, fmt.Errorf("pack_service: compose draft: %w", err)
	}

	candidates, err := s.events.ListByPool(ctx, poolID, []domain.EventStatus{
		domain.EventStatusUpcoming, domain.EventStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("pack_service: list draftable events: %w", err)
	}
	if len(candidates) == 0 {
		return nil, domain.ErrPoolExhausted
	}

	draft := s.composer.Compose(candidates, s.packSize)
	if len(draft) == 0 {
		return nil, domain.ErrPoolExhausted
	}
	return draft, nil
}

// PickSubmission is one slot of a submitted pack.
type PickSubmission struct {
	Position     int    `json:"position"`
	EventID      string `json:"event_id"`
	Outcome      string `json:"outcome"`
	TargetRarity string `json:"target_rarity"`
}

// SubmitPackRequest carries a full pack submission. PackID is chosen by the
// client and doubles as the idempotency key: resubmitting the same ID
// returns the originally created pack.
type SubmitPackRequest struct {
	PackID    string           `json:"pack_id"`
	ProfileID string           `json:"profile_id"`
	PoolID    string           `json:"pool_id"`
	Picks     []PickSubmission `json:"picks"`
}

// SubmitPack validates and persists a pack. Probabilities are snapshotted
// from the live events at submission time; those snapshots, not later price
// moves, drive scoring.
func (s *PackService) SubmitPack(ctx context.Context, req SubmitPackRequest) (domain.Pack, error) {
	pack, picks, err := s.buildPack(ctx, req, false, "")
	if err != nil {
		return domain.Pack{}, err
	}
	created, err := s.createPack(ctx, pack, picks)
	if err != nil {
		return domain.Pack{}, err
	}
	s.auditLog(ctx, "pack.submitted", map[string]any{
		"pack_id":    created.ID,
		"profile_id": created.ProfileID,
		"pool_id":    created.PoolID,
		"picks":      len(picks),
	})
	return created, nil
}

// BuyPremiumRequest carries a premium pack purchase. The payment reference
// is the on-chain transaction hash; it can back at most one pack, ever.
type BuyPremiumRequest struct {
	SubmitPackRequest
	PaymentRef string `json:"payment_ref"`
	Buyer      string `json:"buyer"`
	ClientSeed string `json:"client_seed"`
}

// BuyPremiumPack verifies the on-chain payment, records the receipt, and
// creates the premium pack. A duplicate payment reference for the same pack
// is answered with the existing pack; a reference already spent on a
// different pack is rejected.
func (s *PackService) BuyPremiumPack(ctx context.Context, req BuyPremiumRequest) (domain.Pack, error) {
	if s.verifier == nil {
		return domain.Pack{}, fmt.Errorf("pack_service: premium purchases are disabled")
	}
	if len(req.ClientSeed) > domain.MaxClientSeedLen {
		return domain.Pack{}, fmt.Errorf("pack_service: client seed exceeds %d bytes: %w",
			domain.MaxClientSeedLen, domain.ErrInvalidPick)
	}
	if req.PaymentRef == "" {
		return domain.Pack{}, fmt.Errorf("pack_service: missing payment reference: %w", domain.ErrPaymentRequired)
	}

	pack, picks, err := s.buildPack(ctx, req.SubmitPackRequest, true, req.PaymentRef)
	if err != nil {
		return domain.Pack{}, err
	}

	ok, err := s.verifier.Verify(ctx, req.PaymentRef, req.Buyer, s.premiumPrice)
	if err != nil {
		return domain.Pack{}, fmt.Errorf("pack_service: verify payment %s: %w", req.PaymentRef, err)
	}
	if !ok {
		return domain.Pack{}, fmt.Errorf("pack_service: payment %s not confirmed: %w",
			req.PaymentRef, domain.ErrPaymentRequired)
	}

	receipt := domain.PaymentReceipt{
		Reference:  req.PaymentRef,
		Buyer:      req.Buyer,
		Amount:     s.premiumPrice,
		ClientSeed: req.ClientSeed,
		PackID:     pack.ID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.payments.Record(ctx, receipt); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Pack{}, fmt.Errorf("pack_service: record receipt %s: %w", req.PaymentRef, err)
		}
		existing, getErr := s.payments.GetByReference(ctx, req.PaymentRef)
		if getErr != nil {
			return domain.Pack{}, fmt.Errorf("pack_service: load receipt %s: %w", req.PaymentRef, getErr)
		}
		if existing.PackID != pack.ID || existing.Buyer != req.Buyer {
			return domain.Pack{}, fmt.Errorf("pack_service: payment %s already spent on another pack: %w",
				req.PaymentRef, domain.ErrAlreadyExists)
		}
		// Same purchase retried; fall through and let pack creation
		// idempotency return the existing pack.
	}

	created, err := s.createPack(ctx, pack, picks)
	if err != nil {
		return domain.Pack{}, err
	}

	s.auditLog(ctx, "pack.premium_purchase", map[string]any{
		"pack_id":     created.ID,
		"payment_ref": req.PaymentRef,
		"buyer":       req.Buyer,
		"amount":      s.premiumPrice,
	})
	return created, nil
}

// auditLog appends an audit entry. The audit trail is best-effort: a failed
// write is logged and never fails the operation it describes.
func (s *PackService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// buildPack validates a submission and materializes the pack and pick rows.
func (s *PackService) buildPack(ctx context.Context, req SubmitPackRequest, premium bool, paymentRef string) (domain.Pack, []domain.Pick, error) {
	if req.PackID == "" || req.ProfileID == "" || req.PoolID == "" {
		return domain.Pack{}, nil, fmt.Errorf("pack_service: missing pack, profile, or pool id: %w", domain.ErrInvalidPick)
	}
	if _, err := uuid.Parse(req.PackID); err != nil {
		return domain.Pack{}, nil, fmt.Errorf("pack_service: pack id must be a uuid: %w", domain.ErrInvalidPick)
	}
	if len(req.Picks) == 0 || len(req.Picks) > s.packSize {
		return domain.Pack{}, nil, fmt.Errorf("pack_service: pack must have 1..%d picks, got %d: %w",
			s.packSize, len(req.Picks), domain.ErrInvalidPick)
	}

	if _, err := s.pools.GetByID(ctx, req.PoolID); err != nil {
		return domain.Pack{}, nil, fmt.Errorf("pack_service: pool %s: %w", req.PoolID, err)
	}

	seen := make(map[int]bool, len(req.Picks))
	usedEvents := make(map[string]bool, len(req.Picks))
	picks := make([]domain.Pick, 0, len(req.Picks))

	for _, sub := range req.Picks {
		if sub.Position < 1 || sub.Position > len(req.Picks) || seen[sub.Position] {
			return domain.Pack{}, nil, fmt.Errorf("pack_service: positions must be unique within 1..%d: %w",
				len(req.Picks), domain.ErrInvalidPick)
		}
		seen[sub.Position] = true

		if usedEvents[sub.EventID] {
			return domain.Pack{}, nil, fmt.Errorf("pack_service: event %s picked twice: %w",
				sub.EventID, domain.ErrInvalidPick)
		}
		usedEvents[sub.EventID] = true

		event, err := s.events.GetByID(ctx, sub.EventID)
		if err != nil {
			return domain.Pack{}, nil, fmt.Errorf("pack_service: pick event %s: %w", sub.EventID, err)
		}
		if event.PoolID != req.PoolID {
			return domain.Pack{}, nil, fmt.Errorf("pack_service: event %s is not in pool %s: %w",
				sub.EventID, req.PoolID, domain.ErrInvalidPick)
		}
		if event.Status == domain.EventStatusResolved || event.Status == domain.EventStatusCancelled {
			return domain.Pack{}, nil, fmt.Errorf("pack_service: event %s already settled: %w",
				sub.EventID, domain.ErrInvalidPick)
		}
		if !event.HasOutcome(sub.Outcome) {
			return domain.Pack{}, nil, fmt.Errorf("pack_service: %q is not an outcome of event %s: %w",
				sub.Outcome, sub.EventID, domain.ErrInvalidPick)
		}

		prob := event.OutcomeProb(sub.Outcome)
		if prob <= 0 || prob > 1 {
			return domain.Pack{}, nil, fmt.Errorf("pack_service: event %s outcome %q: %w",
				sub.EventID, sub.Outcome, domain.ErrInvalidProb)
		}

		target := sub.TargetRarity
		actual := rarity.Classify(event.PLow()).String()
		if target == "" {
			target = actual
		}

		picks = append(picks, domain.Pick{
			ID:           uuid.New().String(),
			PackID:       req.PackID,
			Position:     sub.Position,
			EventID:      sub.EventID,
			Outcome:      sub.Outcome,
			ProbSnapshot: prob,
			TargetRarity: target,
			ActualRarity: actual,
		})
	}

	pack := domain.Pack{
		ID:               req.PackID,
		ProfileID:        req.ProfileID,
		PoolID:           req.PoolID,
		Premium:          premium,
		PaymentRef:       paymentRef,
		OpenedAt:         time.Now().UTC(),
		ResolutionStatus: domain.PackResolutionPending,
	}
	return pack, picks, nil
}

// createPack persists the pack, answering a duplicate ID with the existing
// pack so retried submissions are no-op successes.
func (s *PackService) createPack(ctx context.Context, pack domain.Pack, picks []domain.Pick) (domain.Pack, error) {
	err := s.packs.CreateWithPicks(ctx, pack, picks)
	if err == nil {
		s.logger.InfoContext(ctx, "pack created",
			slog.String("pack_id", pack.ID),
			slog.String("profile_id", pack.ProfileID),
			slog.Bool("premium", pack.Premium),
			slog.Int("picks", len(picks)),
		)
		return pack, nil
	}
	if errors.Is(err, domain.ErrAlreadyExists) {
		existing, getErr := s.packs.GetByID(ctx, pack.ID)
		if getErr != nil {
			return domain.Pack{}, fmt.Errorf("pack_service: load existing pack %s: %w", pack.ID, getErr)
		}
		if existing.ProfileID != pack.ProfileID {
			return domain.Pack{}, fmt.Errorf("pack_service: pack id %s belongs to another profile: %w",
				pack.ID, domain.ErrAlreadyExists)
		}
		return existing, nil
	}
	return domain.Pack{}, fmt.Errorf("pack_service: create pack %s: %w", pack.ID, err)
}

// RevealNext plays the reveal at the given position. Reveals are strictly
// positional; the position must be the next unrevealed one and its pick must
// have settled, otherwise ErrNotRevealable. The pointer advance and the
// pick's reveal flag are one conditional transaction, so a double-tap
// reveals exactly once and a crash cannot leave them out of step.
func (s *PackService) RevealNext(ctx context.Context, packID string, position int) (domain.Pick, error) {
	pack, err := s.packs.GetByID(ctx, packID)
	if err != nil {
		return domain.Pick{}, fmt.Errorf("pack_service: reveal pack %s: %w", packID, err)
	}
	picks, err := s.picks.ListByPack(ctx, packID)
	if err != nil {
		return domain.Pick{}, fmt.Errorf("pack_service: list picks for pack %s: %w", packID, err)
	}

	if !reveal.CanReveal(pack, picks, position) {
		return domain.Pick{}, fmt.Errorf("pack_service: position %d of pack %s: %w",
			position, packID, domain.ErrNotRevealable)
	}

	revealed, err := s.packs.RevealAt(ctx, packID, pack.CurrentRevealIndex, position)
	if err != nil {
		return domain.Pick{}, fmt.Errorf("pack_service: reveal position %d of pack %s: %w", position, packID, err)
	}
	if !revealed {
		// A concurrent reveal moved the pointer first.
		return domain.Pick{}, fmt.Errorf("pack_service: position %d of pack %s: %w",
			position, packID, domain.ErrNotRevealable)
	}

	pick, err := s.picks.GetByPosition(ctx, packID, position)
	if err != nil {
		return domain.Pick{}, fmt.Errorf("pack_service: load revealed pick %s/%d: %w", packID, position, err)
	}
	s.auditLog(ctx, "pack.revealed", map[string]any{
		"pack_id":  packID,
		"position": position,
		"event_id": pick.EventID,
		"correct":  pick.IsCorrect,
	})
	return pick, nil
}

// PackState is the read model for one pack: the pack row, its picks, and the
// derived ledger snapshot.
type PackState struct {
	Pack     domain.Pack     `json:"pack"`
	Picks    []domain.Pick   `json:"picks"`
	Snapshot ledger.Snapshot `json:"snapshot"`
}

// GetPackState loads a pack with its picks and derived aggregates.
func (s *PackService) GetPackState(ctx context.Context, packID string) (PackState, error) {
	pack, err := s.packs.GetByID(ctx, packID)
	if err != nil {
		return PackState{}, fmt.Errorf("pack_service: get pack %s: %w", packID, err)
	}
	picks, err := s.picks.ListByPack(ctx, packID)
	if err != nil {
		return PackState{}, fmt.Errorf("pack_service: list picks for pack %s: %w", packID, err)
	}
	return PackState{
		Pack:     pack,
		Picks:    picks,
		Snapshot: ledger.Compute(pack, picks),
	}, nil
}

// ListByProfile returns a profile's packs, newest first.
func (s *PackService) ListByProfile(ctx context.Context, profileID string, opts domain.ListOpts) ([]domain.Pack, error) {
	packs, err := s.packs.ListByProfile(ctx, profileID, opts)
	if err != nil {
		return nil, fmt.Errorf("pack_service: list packs for profile %s: %w", profileID, err)
	}
	return packs, nil
}
