package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polydraft/polydraft/internal/domain"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		prob float64
		want Tier
	}{
		{0.05, TierLongshot},
		{0.10, TierLongshot},
		{0.11, TierUnderdog},
		{0.25, TierUnderdog},
		{0.26, TierSlightUnderdog},
		{0.40, TierSlightUnderdog},
		{0.41, TierTossup},
		{0.60, TierTossup},
		{0.61, TierFavorite},
		{0.75, TierFavorite},
		{0.76, TierHeavyFavorite},
		{0.99, TierHeavyFavorite},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierOf(tt.prob), "prob=%v", tt.prob)
	}
}

func TestScorePickCorrect(t *testing.T) {
	// 10x longshot with the 0.50 tier bonus.
	score, err := ScorePick(0.10, true)
	require.NoError(t, err)
	assert.Equal(t, 10.50, score.Points)
	assert.InDelta(t, 10.0, score.Multiplier, 1e-9)
	assert.Equal(t, 0.50, score.TierBonus)
	assert.Equal(t, TierLongshot, score.Tier)

	// Favorite: bare 1/p, rounded to two decimals, no bonus.
	score, err = ScorePick(0.75, true)
	require.NoError(t, err)
	assert.Equal(t, 1.33, score.Points)
	assert.Zero(t, score.TierBonus)
	assert.Equal(t, TierFavorite, score.Tier)
}

func TestScorePickIncorrect(t *testing.T) {
	score, err := ScorePick(0.02, false)
	require.NoError(t, err)
	assert.Zero(t, score.Points)
	assert.Zero(t, score.Multiplier)
	assert.Zero(t, score.TierBonus)
	// Tier still reported for display.
	assert.Equal(t, TierLongshot, score.Tier)
}

func TestScorePickUncappedMultiplier(t *testing.T) {
	score, err := ScorePick(0.001, true)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, score.Multiplier, 1e-6)
	assert.Equal(t, 1000.50, score.Points)
}

func TestScorePickInvalidProbability(t *testing.T) {
	for _, p := range []float64{0, -0.5, 1.5} {
		_, err := ScorePick(p, true)
		require.ErrorIs(t, err, domain.ErrInvalidProb, "prob=%v", p)
	}
}

func TestPackBonus(t *testing.T) {
	assert.Equal(t, 5.00, PackBonus(5, 5))
	assert.Equal(t, 2.00, PackBonus(4, 5))
	assert.Equal(t, 1.00, PackBonus(3, 5))
	assert.Equal(t, 0.00, PackBonus(2, 5))
	assert.Equal(t, 0.00, PackBonus(0, 5))
	assert.Equal(t, 0.00, PackBonus(0, 0))
}

func TestScorePack(t *testing.T) {
	picks := []domain.Pick{
		{IsResolved: true, IsCorrect: true, PointsAwarded: 10.50},
		{IsResolved: true, IsCorrect: true, PointsAwarded: 1.33},
		{IsResolved: true, IsCorrect: false},
		{IsResolved: true, IsCorrect: true, PointsAwarded: 2.00},
		{IsResolved: true, IsCorrect: true, PointsAwarded: 4.10},
	}

	score := ScorePack(picks)
	// 4/5 correct: +2.00 completion bonus on top of the pick sum.
	assert.Equal(t, 19.93, score.TotalPoints)
	assert.Equal(t, 4, score.CorrectCount)
}

func TestScorePackPartiallyResolvedHasNoBonus(t *testing.T) {
	picks := []domain.Pick{
		{IsResolved: true, IsCorrect: true, PointsAwarded: 3.00},
		{IsResolved: false},
		{IsResolved: true, IsCorrect: true, PointsAwarded: 2.00},
	}

	score := ScorePack(picks)
	assert.Equal(t, 5.00, score.TotalPoints)
	assert.Equal(t, 2, score.CorrectCount)
}
