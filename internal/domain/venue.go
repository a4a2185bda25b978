package domain

import "context"

// VenueResolution is the venue's answer to a resolution check. Resolved with
// an empty Winner means the venue closed the market without reporting a
// determinate winner; callers must treat that as a recoverable condition and
// keep polling, never as a settlement.
type VenueResolution struct {
	Resolved bool
	Winner   string // outcome label, "" when indeterminate
}

// MarketVenue is the external prediction-market venue boundary. The engine
// tolerates venue outages: any error from these methods degrades to "not yet
// resolved, reschedule" rather than failing a sweep.
type MarketVenue interface {
	// ListMarkets returns events matching the pool filter, mapped into the
	// domain model with status upcoming.
	ListMarkets(ctx context.Context, filter PoolFilter) ([]Event, error)

	// FetchPrice returns the current probability of the event's first
	// outcome by venue reference.
	FetchPrice(ctx context.Context, venueID string) (float64, error)

	// CheckResolution reports whether the venue has settled the event.
	CheckResolution(ctx context.Context, event Event) (VenueResolution, error)
}

// PaymentVerifier is the opaque premium-purchase boundary. Implementations
// return (true, nil) only when reference provably paid expectedAmount from
// buyer to the configured treasury.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference, buyer string, expectedAmount uint64) (bool, error)
}
