package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/reveal"
)

func submitRequest(packID string) SubmitPackRequest {
	return SubmitPackRequest{
		PackID:    packID,
		ProfileID: "prof1",
		PoolID:    "pool1",
		Picks: []PickSubmission{
			{Position: 1, EventID: "e1", Outcome: "Yes"},
			{Position: 2, EventID: "e2", Outcome: "No"},
			{Position: 3, EventID: "e3", Outcome: "A"},
		},
	}
}

func TestSubmitPackSnapshotsProbabilities(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	packID := uuid.New().String()

	pack, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)
	assert.Equal(t, packID, pack.ID)
	assert.False(t, pack.Premium)
	assert.Equal(t, domain.PackResolutionPending, pack.ResolutionStatus)

	picks, err := f.picks.ListByPack(ctx, packID)
	require.NoError(t, err)
	require.Len(t, picks, 3)

	byPos := make(map[int]domain.Pick)
	for _, p := range picks {
		byPos[p.Position] = p
	}
	assert.Equal(t, 0.10, byPos[1].ProbSnapshot)
	assert.Equal(t, 0.55, byPos[2].ProbSnapshot) // No side of e2
	assert.Equal(t, 0.30, byPos[3].ProbSnapshot)
	assert.Equal(t, "rare", byPos[1].ActualRarity) // p_low 0.10 falls in [0.05, 0.15)
}

func TestSubmitPackIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	packID := uuid.New().String()

	first, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)

	second, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	picks, err := f.picks.ListByPack(ctx, packID)
	require.NoError(t, err)
	assert.Len(t, picks, 3, "resubmission must not duplicate picks")
}

func TestSubmitPackRejectsForeignPackID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	packID := uuid.New().String()

	_, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)

	req := submitRequest(packID)
	req.ProfileID = "someone-else"
	_, err = f.svc.SubmitPack(ctx, req)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSubmitPackValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*SubmitPackRequest)
		wantErr error
	}{
		{
			name: "duplicate position",
			mutate: func(r *SubmitPackRequest) {
				r.Picks[1].Position = 1
			},
			wantErr: domain.ErrInvalidPick,
		},
		{
			name: "position out of range",
			mutate: func(r *SubmitPackRequest) {
				r.Picks[2].Position = 7
			},
			wantErr: domain.ErrInvalidPick,
		},
		{
			name: "same event twice",
			mutate: func(r *SubmitPackRequest) {
				r.Picks[1].EventID = "e1"
			},
			wantErr: domain.ErrInvalidPick,
		},
		{
			name: "unknown outcome label",
			mutate: func(r *SubmitPackRequest) {
				r.Picks[0].Outcome = "Maybe"
			},
			wantErr: domain.ErrInvalidPick,
		},
		{
			name: "already settled event",
			mutate: func(r *SubmitPackRequest) {
				r.Picks[0].EventID = "e4"
				r.Picks[0].Outcome = "A"
			},
			wantErr: domain.ErrInvalidPick,
		},
		{
			name: "unknown event",
			mutate: func(r *SubmitPackRequest) {
				r.Picks[0].EventID = "nope"
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "non-uuid pack id",
			mutate: func(r *SubmitPackRequest) {
				r.PackID = "pack-1"
			},
			wantErr: domain.ErrInvalidPick,
		},
		{
			name: "too many picks",
			mutate: func(r *SubmitPackRequest) {
				r.Picks = append(r.Picks, PickSubmission{Position: 4, EventID: "e4", Outcome: "A"})
			},
			wantErr: domain.ErrInvalidPick,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := submitRequest(uuid.New().String())
			tt.mutate(&req)
			_, err := f.svc.SubmitPack(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuyPremiumPack(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.verifier.valid["0xabc"] = true

	packID := uuid.New().String()
	req := BuyPremiumRequest{
		SubmitPackRequest: submitRequest(packID),
		PaymentRef:        "0xabc",
		Buyer:             "0x1111111111111111111111111111111111111111",
		ClientSeed:        "weekend-opener",
	}

	pack, err := f.svc.BuyPremiumPack(ctx, req)
	require.NoError(t, err)
	assert.True(t, pack.Premium)
	assert.Equal(t, "0xabc", pack.PaymentRef)

	receipt, err := f.payments.GetByReference(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, packID, receipt.PackID)
	assert.Equal(t, uint64(5_000_000), receipt.Amount)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "pack.premium_purchase", f.audit.entries[0].Event)
}

func TestBuyPremiumPackRetrySamePurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.verifier.valid["0xabc"] = true

	packID := uuid.New().String()
	req := BuyPremiumRequest{
		SubmitPackRequest: submitRequest(packID),
		PaymentRef:        "0xabc",
		Buyer:             "0x1111111111111111111111111111111111111111",
	}

	first, err := f.svc.BuyPremiumPack(ctx, req)
	require.NoError(t, err)

	second, err := f.svc.BuyPremiumPack(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestBuyPremiumPackRejectsSpentReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.verifier.valid["0xabc"] = true

	req := BuyPremiumRequest{
		SubmitPackRequest: submitRequest(uuid.New().String()),
		PaymentRef:        "0xabc",
		Buyer:             "0x1111111111111111111111111111111111111111",
	}
	_, err := f.svc.BuyPremiumPack(ctx, req)
	require.NoError(t, err)

	// Same reference, different pack.
	req.PackID = uuid.New().String()
	_, err = f.svc.BuyPremiumPack(ctx, req)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestBuyPremiumPackUnconfirmedPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	req := BuyPremiumRequest{
		SubmitPackRequest: submitRequest(uuid.New().String()),
		PaymentRef:        "0xnotyet",
		Buyer:             "0x1111111111111111111111111111111111111111",
	}
	_, err := f.svc.BuyPremiumPack(ctx, req)
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
}

func TestBuyPremiumPackRejectsLongClientSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.verifier.valid["0xabc"] = true

	req := BuyPremiumRequest{
		SubmitPackRequest: submitRequest(uuid.New().String()),
		PaymentRef:        "0xabc",
		Buyer:             "0x1111111111111111111111111111111111111111",
		ClientSeed:        "this-client-seed-is-well-over-thirty-two-bytes-long",
	}
	_, err := f.svc.BuyPremiumPack(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidPick)
}

func TestRevealNextIsStrictlyPositional(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	packID := uuid.New().String()
	_, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)

	// Position 2 settles first, but position 1 has not: nothing revealable.
	f.picks.resolvePick(packID, 2, true)
	_, err = f.svc.RevealNext(ctx, packID, 2)
	assert.ErrorIs(t, err, domain.ErrNotRevealable)
	_, err = f.svc.RevealNext(ctx, packID, 1)
	assert.ErrorIs(t, err, domain.ErrNotRevealable)

	// Position 1 settles: 1 becomes revealable, then 2.
	f.picks.resolvePick(packID, 1, false)
	pick, err := f.svc.RevealNext(ctx, packID, 1)
	require.NoError(t, err)
	assert.True(t, pick.RevealPlayed)
	assert.False(t, pick.IsCorrect)

	pick, err = f.svc.RevealNext(ctx, packID, 2)
	require.NoError(t, err)
	assert.True(t, pick.RevealPlayed)

	// Replaying a revealed position fails.
	_, err = f.svc.RevealNext(ctx, packID, 1)
	assert.ErrorIs(t, err, domain.ErrNotRevealable)

	// Position 3 is still pending.
	_, err = f.svc.RevealNext(ctx, packID, 3)
	assert.ErrorIs(t, err, domain.ErrNotRevealable)
}

func TestRevealNextAdvancesPointerAndPickTogether(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	packID := uuid.New().String()
	_, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)
	f.picks.resolvePick(packID, 1, true)

	_, err = f.svc.RevealNext(ctx, packID, 1)
	require.NoError(t, err)

	pack, err := f.packs.GetByID(ctx, packID)
	require.NoError(t, err)
	assert.Equal(t, 1, pack.CurrentRevealIndex)

	pick, err := f.picks.GetByPosition(ctx, packID, 1)
	require.NoError(t, err)
	assert.True(t, pick.RevealPlayed, "pointer and reveal flag must move together")
}

func TestPackLifecycleWritesAuditTrail(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	packID := uuid.New().String()

	_, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)

	f.picks.resolvePick(packID, 1, true)
	_, err = f.svc.RevealNext(ctx, packID, 1)
	require.NoError(t, err)

	var events []string
	for _, e := range f.audit.entries {
		events = append(events, e.Event)
	}
	assert.Equal(t, []string{"pack.submitted", "pack.revealed"}, events)
	assert.Equal(t, packID, f.audit.entries[0].Detail["pack_id"])
	assert.Equal(t, 1, f.audit.entries[1].Detail["position"])
}

func TestGetPackState(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	packID := uuid.New().String()
	_, err := f.svc.SubmitPack(ctx, submitRequest(packID))
	require.NoError(t, err)

	f.picks.resolvePick(packID, 1, true)

	state, err := f.svc.GetPackState(ctx, packID)
	require.NoError(t, err)
	assert.Equal(t, packID, state.Pack.ID)
	assert.Len(t, state.Picks, 3)
	assert.Equal(t, 1, state.Snapshot.ResolvedCount)
	assert.Equal(t, reveal.StatusHasReveals, state.Snapshot.Status)
	assert.Equal(t, 1, state.Snapshot.NextRevealablePosition)
}

func TestComposeDraftEmptyPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.events.events = map[string]domain.Event{}

	_, err := f.svc.ComposeDraft(ctx, "pool1")
	assert.ErrorIs(t, err, domain.ErrPoolExhausted)
}

func TestComposeDraftReturnsSlate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	draft, err := f.svc.ComposeDraft(ctx, "pool1")
	require.NoError(t, err)
	require.NotEmpty(t, draft)
	assert.LessOrEqual(t, len(draft), 3)

	seen := make(map[string]bool)
	for _, d := range draft {
		assert.False(t, seen[d.Event.ID], "draft must not repeat events")
		seen[d.Event.ID] = true
	}
}
