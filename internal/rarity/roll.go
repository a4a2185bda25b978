package rarity

import "math/rand/v2"

// dropRates is the pack drop table, ordered from most to least common. The
// weights must sum to exactly 1.0.
var dropRates = []struct {
	Bin    Bin
	Weight float64
}{
	{Common, 0.59},
	{Uncommon, 0.25},
	{Rare, 0.11},
	{Epic, 0.03},
	{Legendary, 0.02},
}

// Roller draws target rarities from the drop table. The zero value is not
// usable; construct one with NewRoller.
type Roller struct {
	rng *rand.Rand
}

// NewRoller creates a Roller from the given source. Tests pass a seeded
// source for reproducibility.
func NewRoller(src rand.Source) *Roller {
	return &Roller{rng: rand.New(src)}
}

// Roll draws a uniform value in [0,1) and walks the cumulative drop-rate
// distribution, returning the first bin whose cumulative upper bound exceeds
// the draw.
func (r *Roller) Roll() Bin {
	draw := r.rng.Float64()
	cum := 0.0
	for _, dr := range dropRates {
		cum += dr.Weight
		if draw < cum {
			return dr.Bin
		}
	}
	// Unreachable while the weights sum to 1; guard against float drift.
	return dropRates[len(dropRates)-1].Bin
}

// DropRate returns the configured weight for a bin.
func DropRate(b Bin) float64 {
	for _, dr := range dropRates {
		if dr.Bin == b {
			return dr.Weight
		}
	}
	return 0
}
