package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/polydraft/polydraft/internal/composer"
	"github.com/polydraft/polydraft/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePackStore struct {
	packs map[string]*domain.Pack
	picks map[string][]domain.Pick
}

func newFakePackStore() *fakePackStore {
	return &fakePackStore{
		packs: make(map[string]*domain.Pack),
		picks: make(map[string][]domain.Pick),
	}
}

func (s *fakePackStore) CreateWithPicks(_ context.Context, pack domain.Pack, picks []domain.Pick) error {
	if _, ok := s.packs[pack.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.packs[pack.ID] = &pack
	s.picks[pack.ID] = append([]domain.Pick(nil), picks...)
	return nil
}

func (s *fakePackStore) GetByID(_ context.Context, id string) (domain.Pack, error) {
	p, ok := s.packs[id]
	if !ok {
		return domain.Pack{}, domain.ErrNotFound
	}
	return *p, nil
}

func (s *fakePackStore) ListByProfile(_ context.Context, profileID string, _ domain.ListOpts) ([]domain.Pack, error) {
	var out []domain.Pack
	for _, p := range s.packs {
		if p.ProfileID == profileID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakePackStore) RevealAt(_ context.Context, packID string, fromIndex, position int) (bool, error) {
	p, ok := s.packs[packID]
	if !ok || p.CurrentRevealIndex != fromIndex {
		return false, nil
	}
	picks := s.picks[packID]
	for i := range picks {
		if picks[i].Position == position {
			if !picks[i].IsResolved || picks[i].RevealPlayed {
				return false, nil
			}
			p.CurrentRevealIndex = fromIndex + 1
			s.picks[packID][i].RevealPlayed = true
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePackStore) UpdateAggregates(_ context.Context, packID string, totalPoints float64, correctPicks int, status domain.PackResolutionStatus, fullyResolvedAt *time.Time) error {
	p, ok := s.packs[packID]
	if !ok {
		return domain.ErrNotFound
	}
	p.TotalPoints = totalPoints
	p.CorrectPicks = correctPicks
	p.ResolutionStatus = status
	if p.FullyResolvedAt == nil {
		p.FullyResolvedAt = fullyResolvedAt
	}
	return nil
}

// fakePickStore reads through to the pack store's pick slices.
type fakePickStore struct {
	packs *fakePackStore
}

func (s *fakePickStore) ListByPack(_ context.Context, packID string) ([]domain.Pick, error) {
	return append([]domain.Pick(nil), s.packs.picks[packID]...), nil
}

func (s *fakePickStore) GetByPosition(_ context.Context, packID string, position int) (domain.Pick, error) {
	for _, p := range s.packs.picks[packID] {
		if p.Position == position {
			return p, nil
		}
	}
	return domain.Pick{}, domain.ErrNotFound
}

func (s *fakePickStore) ListUnresolvedByEvent(_ context.Context, eventID string) ([]domain.Pick, error) {
	var out []domain.Pick
	for _, picks := range s.packs.picks {
		for _, p := range picks {
			if p.EventID == eventID && !p.IsResolved {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *fakePickStore) Resolve(_ context.Context, pickID string, correct bool, points float64, at time.Time) (bool, error) {
	for packID, picks := range s.packs.picks {
		for i := range picks {
			if picks[i].ID == pickID {
				if picks[i].IsResolved {
					return false, nil
				}
				s.packs.picks[packID][i].IsResolved = true
				s.packs.picks[packID][i].IsCorrect = correct
				s.packs.picks[packID][i].PointsAwarded = points
				s.packs.picks[packID][i].ResolvedAt = &at
				return true, nil
			}
		}
	}
	return false, nil
}

// resolvePick marks a pick resolved directly, simulating the settlement
// cascade for reveal tests.
func (s *fakePickStore) resolvePick(packID string, position int, correct bool) {
	picks := s.packs.picks[packID]
	for i := range picks {
		if picks[i].Position == position {
			now := time.Now()
			s.packs.picks[packID][i].IsResolved = true
			s.packs.picks[packID][i].IsCorrect = correct
			s.packs.picks[packID][i].ResolvedAt = &now
		}
	}
}

type fakeEventStore struct {
	events map[string]domain.Event
}

func (s *fakeEventStore) UpsertBatch(_ context.Context, _ []domain.Event) error { return nil }

func (s *fakeEventStore) GetByID(_ context.Context, id string) (domain.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *fakeEventStore) ListByPool(_ context.Context, poolID string, statuses []domain.EventStatus) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range s.events {
		if e.PoolID != poolID {
			continue
		}
		if len(statuses) == 0 {
			out = append(out, e)
			continue
		}
		for _, st := range statuses {
			if e.Status == st {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeEventStore) ActivateDue(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

func (s *fakeEventStore) MarkResolved(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (s *fakeEventStore) UpdateProbabilities(_ context.Context, _ string, _, _, _ float64) error {
	return nil
}

func (s *fakeEventStore) ListResolvedWithUnresolvedPicks(_ context.Context, _ int) ([]domain.Event, error) {
	return nil, nil
}

type fakePoolStore struct {
	pools map[string]domain.Pool
}

func (s *fakePoolStore) Create(_ context.Context, pool domain.Pool) error {
	if _, ok := s.pools[pool.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.pools[pool.ID] = pool
	return nil
}

func (s *fakePoolStore) GetByID(_ context.Context, id string) (domain.Pool, error) {
	p, ok := s.pools[id]
	if !ok {
		return domain.Pool{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePoolStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Pool, error) {
	var out []domain.Pool
	for _, p := range s.pools {
		out = append(out, p)
	}
	return out, nil
}

type fakePaymentStore struct {
	receipts map[string]domain.PaymentReceipt
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{receipts: make(map[string]domain.PaymentReceipt)}
}

func (s *fakePaymentStore) Record(_ context.Context, receipt domain.PaymentReceipt) error {
	if _, ok := s.receipts[receipt.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	s.receipts[receipt.Reference] = receipt
	return nil
}

func (s *fakePaymentStore) GetByReference(_ context.Context, reference string) (domain.PaymentReceipt, error) {
	r, ok := s.receipts[reference]
	if !ok {
		return domain.PaymentReceipt{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeVerifier struct {
	valid map[string]bool
	err   error
}

func (v *fakeVerifier) Verify(_ context.Context, reference, _ string, _ uint64) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return v.valid[reference], nil
}

type fakeAuditStore struct {
	entries []domain.AuditEntry
}

func (s *fakeAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.entries = append(s.entries, domain.AuditEntry{Event: event, Detail: detail})
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return s.entries, nil
}

// fixture wires a PackService over fakes seeded with one pool and three
// active events.
type fixture struct {
	svc      *PackService
	packs    *fakePackStore
	picks    *fakePickStore
	events   *fakeEventStore
	payments *fakePaymentStore
	verifier *fakeVerifier
	audit    *fakeAuditStore
}

func newFixture() *fixture {
	packs := newFakePackStore()
	picks := &fakePickStore{packs: packs}
	events := &fakeEventStore{events: map[string]domain.Event{
		"e1": {ID: "e1", PoolID: "pool1", Status: domain.EventStatusActive, OutcomeA: "Yes", OutcomeB: "No", ProbA: 0.10, ProbB: 0.90},
		"e2": {ID: "e2", PoolID: "pool1", Status: domain.EventStatusActive, OutcomeA: "Yes", OutcomeB: "No", ProbA: 0.45, ProbB: 0.55},
		"e3": {ID: "e3", PoolID: "pool1", Status: domain.EventStatusActive, OutcomeA: "A", OutcomeB: "B", ProbA: 0.30, ProbB: 0.70},
		"e4": {ID: "e4", PoolID: "pool1", Status: domain.EventStatusResolved, OutcomeA: "A", OutcomeB: "B", ProbA: 1, ProbB: 0, Winner: "A"},
	}}
	pools := &fakePoolStore{pools: map[string]domain.Pool{
		"pool1": {ID: "pool1", Name: "Weekend Slate", Venue: "polymarket"},
	}}
	payments := newFakePaymentStore()
	verifier := &fakeVerifier{valid: make(map[string]bool)}
	audit := &fakeAuditStore{}

	comp := composer.New(rand.NewPCG(1, 2))
	svc := NewPackService(packs, picks, events, pools, payments, verifier, comp, audit, 3, 5_000_000, testLogger())

	return &fixture{
		svc:      svc,
		packs:    packs,
		picks:    picks,
		events:   events,
		payments: payments,
		verifier: verifier,
		audit:    audit,
	}
}
