// Package ledger recomputes pack aggregates from scratch on every change.
// Incremental patching would drift under settlement retries; a full
// recomputation is idempotent by construction.
package ledger

import (
	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/reveal"
	"github.com/polydraft/polydraft/internal/scoring"
)

// Snapshot is the materialized view of one pack, derived entirely from its
// picks and the pack's reveal pointer.
type Snapshot struct {
	ResolvedCount    int                         `json:"resolved_count"`
	RevealedCount    int                         `json:"revealed_count"`
	CorrectPicks     int                         `json:"correct_picks"`
	TotalPoints      float64                     `json:"total_points"`
	ResolutionStatus domain.PackResolutionStatus `json:"resolution_status"`
	Status           reveal.PackStatus           `json:"status"`
	// NextRevealablePosition is 0 when nothing is revealable right now.
	NextRevealablePosition int `json:"next_revealable_position"`
}

// Compute builds the aggregate snapshot for a pack.
func Compute(pack domain.Pack, picks []domain.Pick) Snapshot {
	snap := Snapshot{
		Status:                 reveal.StatusOf(pack, picks),
		NextRevealablePosition: reveal.NextRevealable(pack, picks),
	}

	for _, p := range picks {
		if p.IsResolved {
			snap.ResolvedCount++
		}
		if p.RevealPlayed {
			snap.RevealedCount++
		}
	}

	score := scoring.ScorePack(picks)
	snap.TotalPoints = score.TotalPoints
	snap.CorrectPicks = score.CorrectCount

	switch {
	case len(picks) > 0 && snap.ResolvedCount == len(picks):
		snap.ResolutionStatus = domain.PackResolutionFull
	case snap.ResolvedCount > 0:
		snap.ResolutionStatus = domain.PackResolutionPartial
	default:
		snap.ResolutionStatus = domain.PackResolutionPending
	}

	return snap
}
