// Package scoring computes per-pick payouts and pack completion bonuses from
// the probability snapshot taken at pick time. Everything here is pure; the
// pipeline layer is responsible for persisting the results.
package scoring

import (
	"fmt"
	"math"

	"github.com/polydraft/polydraft/internal/domain"
)

// Tier buckets a probability for display and for the flat tier bonus.
type Tier string

const (
	TierLongshot       Tier = "longshot"
	TierUnderdog       Tier = "underdog"
	TierSlightUnderdog Tier = "slight_underdog"
	TierTossup         Tier = "tossup"
	TierFavorite       Tier = "favorite"
	TierHeavyFavorite  Tier = "heavy_favorite"
)

// TierOf maps a probability to its payout tier. Boundaries are inclusive on
// the upper side: a 10% pick is still a longshot, a 75% pick still a
// favorite.
func TierOf(probability float64) Tier {
	switch {
	case probability <= 0.10:
		return TierLongshot
	case probability <= 0.25:
		return TierUnderdog
	case probability <= 0.40:
		return TierSlightUnderdog
	case probability <= 0.60:
		return TierTossup
	case probability <= 0.75:
		return TierFavorite
	default:
		return TierHeavyFavorite
	}
}

// TierBonus returns the flat bonus added on top of the odds multiplier for a
// correct pick in the given tier.
func TierBonus(tier Tier) float64 {
	switch tier {
	case TierLongshot:
		return 0.50
	case TierUnderdog:
		return 0.25
	case TierSlightUnderdog:
		return 0.10
	default:
		return 0
	}
}

// PickScore is the full scoring breakdown for one pick.
type PickScore struct {
	Points     float64 `json:"points"`
	Multiplier float64 `json:"multiplier"`
	TierBonus  float64 `json:"tier_bonus"`
	Tier       Tier    `json:"tier"`
}

// ScorePick scores a single pick from its immutable probability snapshot.
// The multiplier is 1/probability with no upper cap: a correctly called
// extreme longshot pays out its full odds. Probability outside (0, 1] is a
// caller bug and is rejected, never clamped.
func ScorePick(probabilityAtPick float64, isCorrect bool) (PickScore, error) {
	if probabilityAtPick <= 0 || probabilityAtPick > 1 {
		return PickScore{}, fmt.Errorf("scoring: probability %v: %w", probabilityAtPick, domain.ErrInvalidProb)
	}

	tier := TierOf(probabilityAtPick)
	if !isCorrect {
		// Tier is still reported for display on a missed pick.
		return PickScore{Tier: tier}, nil
	}

	multiplier := 1 / probabilityAtPick
	bonus := TierBonus(tier)
	return PickScore{
		Points:     round2(1.0*multiplier + bonus),
		Multiplier: multiplier,
		TierBonus:  bonus,
		Tier:       tier,
	}, nil
}

// PackBonus returns the completion bonus for a fully resolved pack:
// a perfect pack pays +5, one miss +2, two misses +1.
func PackBonus(correctCount, totalPicks int) float64 {
	if totalPicks <= 0 {
		return 0
	}
	switch {
	case correctCount == totalPicks:
		return 5.00
	case correctCount == totalPicks-1:
		return 2.00
	case correctCount == totalPicks-2:
		return 1.00
	default:
		return 0
	}
}

// PackScore aggregates resolved pick points plus the completion bonus.
type PackScore struct {
	TotalPoints  float64 `json:"total_points"`
	CorrectCount int     `json:"correct_count"`
}

// ScorePack sums points over resolved picks and, when every pick has
// resolved, adds the pack completion bonus.
func ScorePack(picks []domain.Pick) PackScore {
	var score PackScore
	resolved := 0
	for _, p := range picks {
		if !p.IsResolved {
			continue
		}
		resolved++
		score.TotalPoints += p.PointsAwarded
		if p.IsCorrect {
			score.CorrectCount++
		}
	}
	if resolved == len(picks) && len(picks) > 0 {
		score.TotalPoints += PackBonus(score.CorrectCount, len(picks))
	}
	score.TotalPoints = round2(score.TotalPoints)
	return score
}

// round2 rounds to two decimal places, the precision points are stored at.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
