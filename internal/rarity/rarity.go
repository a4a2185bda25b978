// Package rarity maps outcome probabilities to discrete rarity bins and
// implements the weighted rarity roll that drives pack composition.
package rarity

// Bin is a discrete rarity tier derived from an event's lowest outcome
// probability. Bins are never stored; they are recomputed from the current
// probabilities whenever needed.
type Bin int

const (
	Legendary Bin = iota
	Epic
	Rare
	Uncommon
	Common
)

// String returns the lowercase bin name used for display and audit fields.
func (b Bin) String() string {
	switch b {
	case Legendary:
		return "legendary"
	case Epic:
		return "epic"
	case Rare:
		return "rare"
	case Uncommon:
		return "uncommon"
	case Common:
		return "common"
	}
	return "unknown"
}

// interval is a half-open probability range [Low, High) over p_low. The
// common bin closes at 0.5 because min(pA, pB) can never exceed it.
type interval struct {
	Low  float64
	High float64
}

// bounds is indexed by Bin. The intervals are contiguous and non-overlapping
// over [0, 0.5], so every p_low maps to exactly one bin.
var bounds = [...]interval{
	Legendary: {0.00, 0.02},
	Epic:      {0.02, 0.05},
	Rare:      {0.05, 0.15},
	Uncommon:  {0.15, 0.30},
	Common:    {0.30, 0.50},
}

// Classify maps a lowest outcome probability to its rarity bin. Inputs are
// clamped to [0, 0.5] so the function is total.
func Classify(pLow float64) Bin {
	if pLow < 0 {
		pLow = 0
	}
	if pLow > 0.5 {
		pLow = 0.5
	}
	switch {
	case pLow < bounds[Legendary].High:
		return Legendary
	case pLow < bounds[Epic].High:
		return Epic
	case pLow < bounds[Rare].High:
		return Rare
	case pLow < bounds[Uncommon].High:
		return Uncommon
	default:
		return Common
	}
}

// Distance measures how far pLow sits from the bin's interval: 0 inside the
// interval, otherwise the absolute gap to the nearer boundary. The composer
// uses it for nearest-bin fallback when no exact match exists.
func Distance(pLow float64, b Bin) float64 {
	iv := bounds[b]
	switch {
	case pLow < iv.Low:
		return iv.Low - pLow
	case pLow >= iv.High:
		return pLow - iv.High
	default:
		return 0
	}
}

// FallbackOrder returns the degrade sequence for a rolled target: the target
// itself first, then progressively more common bins. The order is a fixed
// array walk so the fallback behavior stays an auditable constant.
func FallbackOrder(target Bin) []Bin {
	order := make([]Bin, 0, int(Common-target)+1)
	for b := target; b <= Common; b++ {
		order = append(order, b)
	}
	return order
}
