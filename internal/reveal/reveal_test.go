package reveal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polydraft/polydraft/internal/domain"
)

func newPicks(n int) []domain.Pick {
	picks := make([]domain.Pick, n)
	for i := range picks {
		picks[i] = domain.Pick{Position: i + 1}
	}
	return picks
}

func TestCanRevealOnlyFrontOfQueue(t *testing.T) {
	pack := domain.Pack{CurrentRevealIndex: 0}
	picks := newPicks(5)
	// Positions 1 and 2 both resolved; only position 1 is revealable.
	picks[0].IsResolved = true
	picks[1].IsResolved = true

	assert.True(t, CanReveal(pack, picks, 1))
	assert.False(t, CanReveal(pack, picks, 2))
	assert.False(t, CanReveal(pack, picks, 3))

	// Exactly one position can be ready at a time.
	ready := 0
	for pos := 1; pos <= 5; pos++ {
		if CanReveal(pack, picks, pos) {
			ready++
		}
	}
	assert.Equal(t, 1, ready)
}

func TestCanRevealRequiresResolution(t *testing.T) {
	pack := domain.Pack{CurrentRevealIndex: 0}
	picks := newPicks(3)
	// Position 2 resolved, position 1 not: nothing revealable.
	picks[1].IsResolved = true

	assert.False(t, CanReveal(pack, picks, 1))
	assert.False(t, CanReveal(pack, picks, 2))
	assert.Zero(t, NextRevealable(pack, picks))
	assert.Equal(t, StatusWaiting, StatusOf(pack, picks))
}

func TestRevealNeverSkips(t *testing.T) {
	pack := domain.Pack{CurrentRevealIndex: 1}
	picks := newPicks(5)
	picks[0].IsResolved = true
	picks[0].RevealPlayed = true
	picks[1].IsResolved = true
	picks[2].IsResolved = true

	// Positions 2 and 3 are both resolved, but only 2 is at the front.
	assert.True(t, CanReveal(pack, picks, 2))
	assert.False(t, CanReveal(pack, picks, 3))
	assert.Equal(t, StateQueued, StateOf(pack, picks[2]))
}

func TestOutOfOrderSettlementRevealsInPositionOrder(t *testing.T) {
	// Events settle in real-world order 3, 1, 5, 2, 4. The player must still
	// only be able to reveal 1, 2, 3, 4, 5.
	pack := domain.Pack{CurrentRevealIndex: 0}
	picks := newPicks(5)

	var revealOrder []int
	revealNext := func() {
		pos := NextRevealable(pack, picks)
		if pos == 0 {
			return
		}
		require.True(t, CanReveal(pack, picks, pos))
		picks[pos-1].RevealPlayed = true
		pack.CurrentRevealIndex++
		revealOrder = append(revealOrder, pos)
	}

	for _, settled := range []int{3, 1, 5, 2, 4} {
		picks[settled-1].IsResolved = true
		// The player greedily reveals everything available after each
		// settlement.
		for NextRevealable(pack, picks) != 0 {
			revealNext()
		}
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, revealOrder)
	assert.Equal(t, StatusCompleted, StatusOf(pack, picks))
	assert.Equal(t, 5, pack.CurrentRevealIndex)
}

func TestStateProjection(t *testing.T) {
	pack := domain.Pack{CurrentRevealIndex: 1}
	revealed := domain.Pick{Position: 1, IsResolved: true, RevealPlayed: true}
	ready := domain.Pick{Position: 2, IsResolved: true}
	queued := domain.Pick{Position: 3, IsResolved: true}
	pending := domain.Pick{Position: 4}

	assert.Equal(t, StateRevealed, StateOf(pack, revealed))
	assert.Equal(t, StateReady, StateOf(pack, ready))
	assert.Equal(t, StateQueued, StateOf(pack, queued))
	assert.Equal(t, StatePending, StateOf(pack, pending))
}

func TestStatusOf(t *testing.T) {
	pack := domain.Pack{}
	assert.Equal(t, StatusDrafting, StatusOf(pack, nil))

	picks := newPicks(2)
	assert.Equal(t, StatusWaiting, StatusOf(pack, picks))

	picks[0].IsResolved = true
	assert.Equal(t, StatusHasReveals, StatusOf(pack, picks))
}
