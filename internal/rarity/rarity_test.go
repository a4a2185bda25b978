package rarity

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name string
		pLow float64
		want Bin
	}{
		{"zero", 0.0, Legendary},
		{"just below legendary upper", 0.0199, Legendary},
		{"epic lower bound", 0.02, Epic},
		{"epic mid", 0.03, Epic},
		{"rare lower bound", 0.05, Rare},
		{"rare mid", 0.10, Rare},
		{"uncommon lower bound", 0.15, Uncommon},
		{"uncommon mid", 0.25, Uncommon},
		{"common lower bound", 0.30, Common},
		{"max p_low", 0.50, Common},
		{"clamped negative", -0.1, Legendary},
		{"clamped above half", 0.75, Common},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.pLow))
		})
	}
}

func TestClassifyContiguous(t *testing.T) {
	// Every probability in [0, 0.5] maps to exactly one bin, and walking the
	// range never skips a bin or goes back to a rarer one.
	prev := Legendary
	for p := 0.0; p <= 0.5; p += 0.0001 {
		b := Classify(p)
		require.GreaterOrEqual(t, b, prev, "bins must be monotonic at p=%f", p)
		require.LessOrEqual(t, int(b)-int(prev), 1, "no bin skipped at p=%f", p)
		prev = b
	}
	assert.Equal(t, Common, prev)
}

func TestDropRatesSumToOne(t *testing.T) {
	sum := 0.0
	for b := Legendary; b <= Common; b++ {
		sum += DropRate(b)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestRollConvergesToDropRates(t *testing.T) {
	const trials = 200_000
	roller := NewRoller(rand.NewPCG(42, 7))

	counts := map[Bin]int{}
	for i := 0; i < trials; i++ {
		counts[roller.Roll()]++
	}

	for b := Legendary; b <= Common; b++ {
		got := float64(counts[b]) / trials
		assert.InDelta(t, DropRate(b), got, 0.01, "bin %s", b)
	}
}

func TestDistance(t *testing.T) {
	// Inside the interval.
	assert.Zero(t, Distance(0.10, Rare))
	// Below the lower bound.
	assert.InDelta(t, 0.02, Distance(0.03, Rare), 1e-9)
	// At or above the upper bound.
	assert.InDelta(t, 0.05, Distance(0.20, Rare), 1e-9)
	assert.Zero(t, Distance(0.0, Legendary))
}

func TestFallbackOrder(t *testing.T) {
	assert.Equal(t, []Bin{Epic, Rare, Uncommon, Common}, FallbackOrder(Epic))
	assert.Equal(t, []Bin{Common}, FallbackOrder(Common))
	assert.Equal(t, []Bin{Legendary, Epic, Rare, Uncommon, Common}, FallbackOrder(Legendary))
}
