// Package composer implements the drop-table algorithm that fills a pack's
// slots from a pool of eligible events.
package composer

import (
	"math/rand/v2"

	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/rarity"
)

// DraftEvent is one selected slot, annotated with the rarity that was rolled
// for the slot and the rarity of the event actually drafted. The two differ
// when degrade or nearest-bin fallback kicked in.
type DraftEvent struct {
	Event        domain.Event `json:"event"`
	TargetRarity rarity.Bin   `json:"-"`
	ActualRarity rarity.Bin   `json:"-"`
}

// Composer selects events for pack slots using weighted rarity rolls.
type Composer struct {
	roller *rarity.Roller
	rng    *rand.Rand
}

// New creates a Composer from the given random source. Production callers
// seed from crypto-quality entropy; tests pass a fixed seed.
func New(src rand.Source) *Composer {
	return &Composer{
		roller: rarity.NewRoller(src),
		rng:    rand.New(src),
	}
}

// Compose fills up to count slots from the pool. For each slot it rolls a
// target rarity, prefers an exact bin match, degrades through more common
// bins, and finally falls back to the nearest candidate by probability
// distance. No event is ever selected twice. When the pool runs out before
// count slots are filled, the partial result is returned: a degraded pack is
// a caller-visible condition, not an error.
func (c *Composer) Compose(pool []domain.Event, count int) []DraftEvent {
	selected := make([]DraftEvent, 0, count)
	used := make(map[string]bool, count)

	for slot := 0; slot < count; slot++ {
		remaining := remainingEvents(pool, used)
		if len(remaining) == 0 {
			break
		}

		target := c.roller.Roll()
		event, ok := c.pickForTarget(remaining, target)
		if !ok {
			break
		}

		used[event.ID] = true
		selected = append(selected, DraftEvent{
			Event:        event,
			TargetRarity: target,
			ActualRarity: rarity.Classify(event.PLow()),
		})
	}

	return selected
}

// pickForTarget applies the three-stage selection for one slot: exact match,
// degrade walk, nearest-bin fallback.
func (c *Composer) pickForTarget(candidates []domain.Event, target rarity.Bin) (domain.Event, bool) {
	// Exact match first, then the degrade walk toward common. The walk is an
	// ordered array scan, so the fallback order is a fixed constant.
	for _, bin := range rarity.FallbackOrder(target) {
		matches := eventsInBin(candidates, bin)
		if len(matches) > 0 {
			return matches[c.rng.IntN(len(matches))], true
		}
	}

	// Nearest-bin fallback: minimum probability distance to the target bin,
	// ties broken by whichever candidate came first.
	best := -1
	bestDist := 0.0
	for i, e := range candidates {
		d := rarity.Distance(e.PLow(), target)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 {
		return domain.Event{}, false
	}
	return candidates[best], true
}

func remainingEvents(pool []domain.Event, used map[string]bool) []domain.Event {
	out := make([]domain.Event, 0, len(pool))
	for _, e := range pool {
		if !used[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func eventsInBin(events []domain.Event, bin rarity.Bin) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if rarity.Classify(e.PLow()) == bin {
			out = append(out, e)
		}
	}
	return out
}
