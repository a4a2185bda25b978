package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
)

// In-memory fakes replicating the stores' conditional-write semantics.

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*domain.Event
	// picksRef, when set, backs ListResolvedWithUnresolvedPicks.
	picksRef *fakePickStore
}

func newFakeEventStore(events ...domain.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[string]*domain.Event)}
	for i := range events {
		e := events[i]
		s.events[e.ID] = &e
	}
	return s
}

func (s *fakeEventStore) UpsertBatch(_ context.Context, events []domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range events {
		e := events[i]
		if existing, ok := s.events[e.ID]; ok {
			if existing.Status == domain.EventStatusResolved || existing.Status == domain.EventStatusCancelled {
				continue
			}
			existing.Title = e.Title
			existing.ProbA = e.ProbA
			existing.ProbB = e.ProbB
			existing.DrawProb = e.DrawProb
			continue
		}
		s.events[e.ID] = &e
	}
	return nil
}

func (s *fakeEventStore) GetByID(_ context.Context, id string) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return *e, nil
}

func (s *fakeEventStore) ListByPool(_ context.Context, poolID string, statuses []domain.EventStatus) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.PoolID != poolID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				if e.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeEventStore) ActivateDue(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, e := range s.events {
		if e.Status == domain.EventStatusUpcoming && !e.StartAt.After(now) {
			e.Status = domain.EventStatusActive
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (s *fakeEventStore) MarkResolved(_ context.Context, id, winner string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.Status != domain.EventStatusActive {
		return false, nil
	}
	e.Status = domain.EventStatusResolved
	e.Winner = winner
	e.ResolvedAt = &at
	return true, nil
}

func (s *fakeEventStore) UpdateProbabilities(_ context.Context, id string, probA, probB, drawProb float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok && (e.Status == domain.EventStatusUpcoming || e.Status == domain.EventStatusActive) {
		e.ProbA, e.ProbB, e.DrawProb = probA, probB, drawProb
	}
	return nil
}

func (s *fakeEventStore) ListResolvedWithUnresolvedPicks(ctx context.Context, limit int) ([]domain.Event, error) {
	if s.picksRef == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.Status != domain.EventStatusResolved {
			continue
		}
		unresolved, err := s.picksRef.ListUnresolvedByEvent(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		if len(unresolved) > 0 {
			out = append(out, *e)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakePickStore struct {
	mu    sync.Mutex
	picks map[string]*domain.Pick
}

func newFakePickStore(picks ...domain.Pick) *fakePickStore {
	s := &fakePickStore{picks: make(map[string]*domain.Pick)}
	for i := range picks {
		p := picks[i]
		s.picks[p.ID] = &p
	}
	return s
}

func (s *fakePickStore) ListByPack(_ context.Context, packID string) ([]domain.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Pick
	for _, p := range s.picks {
		if p.PackID == packID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakePickStore) GetByPosition(_ context.Context, packID string, position int) (domain.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.picks {
		if p.PackID == packID && p.Position == position {
			return *p, nil
		}
	}
	return domain.Pick{}, domain.ErrNotFound
}

func (s *fakePickStore) ListUnresolvedByEvent(_ context.Context, eventID string) ([]domain.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Pick
	for _, p := range s.picks {
		if p.EventID == eventID && !p.IsResolved {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakePickStore) Resolve(_ context.Context, pickID string, correct bool, points float64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.picks[pickID]
	if !ok || p.IsResolved {
		return false, nil
	}
	p.IsResolved = true
	p.IsCorrect = correct
	p.PointsAwarded = points
	p.ResolvedAt = &at
	return true, nil
}

type fakePackStore struct {
	mu    sync.Mutex
	packs map[string]*domain.Pack
}

func newFakePackStore(packs ...domain.Pack) *fakePackStore {
	s := &fakePackStore{packs: make(map[string]*domain.Pack)}
	for i := range packs {
		p := packs[i]
		s.packs[p.ID] = &p
	}
	return s
}

func (s *fakePackStore) CreateWithPicks(_ context.Context, pack domain.Pack, _ []domain.Pick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packs[pack.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.packs[pack.ID] = &pack
	return nil
}

func (s *fakePackStore) GetByID(_ context.Context, id string) (domain.Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[id]
	if !ok {
		return domain.Pack{}, domain.ErrNotFound
	}
	return *p, nil
}

func (s *fakePackStore) ListByProfile(_ context.Context, profileID string, _ domain.ListOpts) ([]domain.Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Pack
	for _, p := range s.packs {
		if p.ProfileID == profileID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// RevealAt only moves the pointer here; the settlement pipeline never
// touches reveal flags, so the pick side is not modeled.
func (s *fakePackStore) RevealAt(_ context.Context, packID string, fromIndex, _ int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[packID]
	if !ok || p.CurrentRevealIndex != fromIndex {
		return false, nil
	}
	p.CurrentRevealIndex = fromIndex + 1
	return true, nil
}

func (s *fakePackStore) UpdateAggregates(_ context.Context, packID string, totalPoints float64, correctPicks int, status domain.PackResolutionStatus, fullyResolvedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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

type fakeQueueStore struct {
	mu      sync.Mutex
	entries map[string]*domain.ResolutionQueueEntry
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{entries: make(map[string]*domain.ResolutionQueueEntry)}
}

func (s *fakeQueueStore) Enqueue(_ context.Context, eventID string, priority int, nextCheckAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[eventID]; ok {
		return nil
	}
	s.entries[eventID] = &domain.ResolutionQueueEntry{
		EventID:     eventID,
		Priority:    priority,
		NextCheckAt: nextCheckAt,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (s *fakeQueueStore) Claim(_ context.Context, now time.Time, limit int, claimWindow time.Duration) ([]domain.ResolutionQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ResolutionQueueEntry
	for _, e := range s.entries {
		if len(out) >= limit {
			break
		}
		if e.NextCheckAt.After(now) {
			continue
		}
		e.CheckCount++
		e.LastCheckAt = &now
		e.NextCheckAt = now.Add(claimWindow)
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeQueueStore) Reschedule(_ context.Context, eventID string, nextCheckAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[eventID]; ok {
		e.NextCheckAt = nextCheckAt
	}
	return nil
}

func (s *fakeQueueStore) Remove(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, eventID)
	return nil
}

func (s *fakeQueueStore) has(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[eventID]
	return ok
}

type fakePoolStore struct {
	mu    sync.Mutex
	pools map[string]domain.Pool
}

func newFakePoolStore(pools ...domain.Pool) *fakePoolStore {
	s := &fakePoolStore{pools: make(map[string]domain.Pool)}
	for _, p := range pools {
		s.pools[p.ID] = p
	}
	return s
}

func (s *fakePoolStore) Create(_ context.Context, pool domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[pool.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.pools[pool.ID] = pool
	return nil
}

func (s *fakePoolStore) GetByID(_ context.Context, id string) (domain.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return domain.Pool{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePoolStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Pool
	for _, p := range s.pools {
		out = append(out, p)
	}
	return out, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (s *fakeAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{Event: event, Detail: detail})
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.entries...), nil
}

func (s *fakeAuditStore) eventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, e := range s.entries {
		names = append(names, e.Event)
	}
	return names
}

// recordingAlerter captures operator alerts emitted by the loops.
type recordingAlerter struct {
	mu         sync.Mutex
	sweepErrs  []string
	ingestErrs []string
	stale      []string
	reconciled []int
}

func (a *recordingAlerter) SweepError(_ context.Context, eventID string, _ error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweepErrs = append(a.sweepErrs, eventID)
	return nil
}

func (a *recordingAlerter) IngestError(_ context.Context, poolID string, _ error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ingestErrs = append(a.ingestErrs, poolID)
	return nil
}

func (a *recordingAlerter) VenueStale(_ context.Context, eventID string, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stale = append(a.stale, eventID)
	return nil
}

func (a *recordingAlerter) ReconcileRun(_ context.Context, repaired int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconciled = append(a.reconciled, repaired)
	return nil
}

type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]float64
	at     map[string]time.Time
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{
		prices: make(map[string]float64),
		at:     make(map[string]time.Time),
	}
}

func (c *fakePriceCache) SetPrice(_ context.Context, venueID string, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[venueID] = price
	c.at[venueID] = ts
	return nil
}

func (c *fakePriceCache) GetPrice(_ context.Context, venueID string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[venueID]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, c.at[venueID], nil
}

// fakeVenue serves scripted responses per venue market ID.
type fakeVenue struct {
	mu          sync.Mutex
	resolutions map[string]domain.VenueResolution
	prices      map[string]float64
	errs        map[string]error
	priceErrs   map[string]error
	listErr     error
	polls       map[string]int
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		resolutions: make(map[string]domain.VenueResolution),
		prices:      make(map[string]float64),
		errs:        make(map[string]error),
		priceErrs:   make(map[string]error),
		polls:       make(map[string]int),
	}
}

func (v *fakeVenue) ListMarkets(_ context.Context, _ domain.PoolFilter) ([]domain.Event, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return nil, v.listErr
}

func (v *fakeVenue) FetchPrice(_ context.Context, venueID string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err, ok := v.priceErrs[venueID]; ok {
		return 0, err
	}
	return v.prices[venueID], nil
}

func (v *fakeVenue) CheckResolution(_ context.Context, event domain.Event) (domain.VenueResolution, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.polls[event.VenueID]++
	if err, ok := v.errs[event.VenueID]; ok {
		return domain.VenueResolution{}, err
	}
	return v.resolutions[event.VenueID], nil
}
