// Package reveal enforces the positional reveal order of a pack. Real-world
// settlement order is irrelevant to the player: no matter which events settle
// first, picks only become revealable strictly in position order.
package reveal

import "github.com/polydraft/polydraft/internal/domain"

// PickState is derived from is_resolved x reveal_played plus the pack's
// reveal pointer; it is never stored.
type PickState string

const (
	// StatePending means the underlying event has not settled yet.
	StatePending PickState = "pending"
	// StateQueued means the pick has settled but an earlier position has not
	// been revealed yet, so it waits its turn.
	StateQueued PickState = "resolved_queued"
	// StateReady means the pick is resolved and at the front of the queue.
	StateReady PickState = "ready"
	// StateRevealed is terminal.
	StateRevealed PickState = "revealed"
)

// PackStatus is the pack-level display status derived from pick states.
type PackStatus string

const (
	StatusDrafting   PackStatus = "drafting"
	StatusWaiting    PackStatus = "waiting"
	StatusHasReveals PackStatus = "has_reveals"
	StatusCompleted  PackStatus = "completed"
)

// StateOf projects one pick onto its derived reveal state given the pack's
// current reveal pointer.
func StateOf(pack domain.Pack, pick domain.Pick) PickState {
	switch {
	case pick.RevealPlayed:
		return StateRevealed
	case !pick.IsResolved:
		return StatePending
	case pick.Position == pack.CurrentRevealIndex+1:
		return StateReady
	default:
		return StateQueued
	}
}

// CanReveal reports whether the pick at the given 1-based position may be
// revealed right now: it must be the next position, resolved, and not yet
// revealed. At most one position satisfies this at any time.
func CanReveal(pack domain.Pack, picks []domain.Pick, position int) bool {
	if position != pack.CurrentRevealIndex+1 {
		return false
	}
	for _, p := range picks {
		if p.Position == position {
			return p.IsResolved && !p.RevealPlayed
		}
	}
	return false
}

// NextRevealable returns the position that is currently revealable, or 0 when
// none is (all revealed, or the next position has not settled yet).
func NextRevealable(pack domain.Pack, picks []domain.Pick) int {
	next := pack.CurrentRevealIndex + 1
	if CanReveal(pack, picks, next) {
		return next
	}
	return 0
}

// StatusOf derives the pack-level display status.
func StatusOf(pack domain.Pack, picks []domain.Pick) PackStatus {
	if len(picks) == 0 {
		return StatusDrafting
	}
	revealed := 0
	for _, p := range picks {
		if p.RevealPlayed {
			revealed++
		}
	}
	if revealed == len(picks) {
		return StatusCompleted
	}
	if NextRevealable(pack, picks) != 0 {
		return StatusHasReveals
	}
	return StatusWaiting
}
