package domain

import "time"

// EventStatus represents the lifecycle state of a prediction-market event.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusActive    EventStatus = "active"
	EventStatusResolved  EventStatus = "resolved"
	EventStatusCancelled EventStatus = "cancelled"
)

// Event is a single binary (optionally three-way) prediction market drawn
// from the venue. Winner is set if and only if Status is resolved. Only the
// resolution sweep (status, winner, prices) and the ingestion job (creation)
// mutate events; pack logic treats them as read-only snapshots.
type Event struct {
	ID          string      `json:"id"`
	VenueID     string      `json:"venue_id"`
	PoolID      string      `json:"pool_id"`
	Title       string      `json:"title"`
	OutcomeA    string      `json:"outcome_a"` // e.g. "Yes"
	OutcomeB    string      `json:"outcome_b"` // e.g. "No"
	ProbA       float64     `json:"prob_a"`
	ProbB       float64     `json:"prob_b"`
	DrawOutcome string      `json:"draw_outcome,omitempty"` // empty when the market has no draw
	DrawProb    float64     `json:"draw_prob,omitempty"`
	Status      EventStatus `json:"status"`
	Winner      string      `json:"winner,omitempty"` // outcome label, "" until resolved
	StartAt     time.Time   `json:"start_at"`
	ResolveBy   time.Time   `json:"resolve_by"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PLow returns the minimum outcome probability, the input to rarity
// classification. The draw outcome participates when present.
func (e Event) PLow() float64 {
	low := e.ProbA
	if e.ProbB < low {
		low = e.ProbB
	}
	if e.DrawOutcome != "" && e.DrawProb < low {
		low = e.DrawProb
	}
	return low
}

// HasOutcome reports whether label is one of the event's outcome labels.
func (e Event) HasOutcome(label string) bool {
	if label == "" {
		return false
	}
	return label == e.OutcomeA || label == e.OutcomeB ||
		(e.DrawOutcome != "" && label == e.DrawOutcome)
}

// OutcomeProb returns the current probability for the given outcome label.
// It returns 0 when the label is not one of the event's outcomes.
func (e Event) OutcomeProb(label string) float64 {
	switch label {
	case e.OutcomeA:
		return e.ProbA
	case e.OutcomeB:
		return e.ProbB
	case e.DrawOutcome:
		if e.DrawOutcome != "" {
			return e.DrawProb
		}
	}
	return 0
}
