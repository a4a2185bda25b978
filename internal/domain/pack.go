package domain

import "time"

// PackResolutionStatus tracks how much of a pack has settled.
type PackResolutionStatus string

const (
	PackResolutionPending PackResolutionStatus = "pending"
	PackResolutionPartial PackResolutionStatus = "partially_resolved"
	PackResolutionFull    PackResolutionStatus = "fully_resolved"
)

// Pack is one opened pack: a fixed, ordered set of picks made by one profile
// at one point in time. The pack row is immutable after submission except for
// the fields owned by the ledger and the reveal machine: CurrentRevealIndex,
// the aggregates, and ResolutionStatus.
type Pack struct {
	ID                 string               `json:"id"`
	ProfileID          string               `json:"profile_id"`
	PoolID             string               `json:"pool_id"`
	Premium            bool                 `json:"premium"`
	PaymentRef         string               `json:"payment_ref,omitempty"`
	OpenedAt           time.Time            `json:"opened_at"`
	CurrentRevealIndex int                  `json:"current_reveal_index"` // 0-based pointer, [0, N]
	TotalPoints        float64              `json:"total_points"`
	CorrectPicks       int                  `json:"correct_picks"`
	ResolutionStatus   PackResolutionStatus `json:"resolution_status"`
	FullyResolvedAt    *time.Time           `json:"fully_resolved_at,omitempty"`
}

// Pick is one ordered slot in a pack. ProbSnapshot is the probability of the
// chosen outcome at pick time and is what scoring uses, regardless of where
// the live price moves afterwards. Resolution fields are written exactly once
// by the settlement cascade; RevealPlayed is written once by revealNext.
type Pick struct {
	ID            string     `json:"id"`
	PackID        string     `json:"pack_id"`
	Position      int        `json:"position"` // 1..N, unique per pack
	EventID       string     `json:"event_id"`
	Outcome       string     `json:"outcome"` // chosen outcome label
	ProbSnapshot  float64    `json:"prob_snapshot"`
	TargetRarity  string     `json:"target_rarity"` // rarity rolled for this slot
	ActualRarity  string     `json:"actual_rarity"` // rarity of the event actually drafted
	IsResolved    bool       `json:"is_resolved"`
	IsCorrect     bool       `json:"is_correct"`
	PointsAwarded float64    `json:"points_awarded"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	RevealPlayed  bool       `json:"reveal_played"`
}
