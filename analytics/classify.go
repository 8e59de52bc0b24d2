package analytics

import (
	"math"
	"sort"

	"fx_market_engine/models"
)

// Classify maps a pair's Pearson correlation to its category using the
// first-match-wins rule set; order matters, most negative first.
func Classify(rho float64) models.CorrelationCategory {
	switch {
	case rho <= -0.7:
		return models.CategoryHedging
	case rho < -0.4:
		return models.CategoryNegativelyCorrelated
	case math.Abs(rho) < 0.4:
		return models.CategoryUncorrelated
	case math.Abs(rho) < 0.7:
		return models.CategoryModerate
	default:
		return models.CategoryHighCorrelation
	}
}

// RankedPair is one classified correlation awaiting rank assignment.
type RankedPair struct {
	Pair1       string
	Pair2       string
	Correlation float64
	Category    models.CorrelationCategory
}

// RankBestPairs orders pairs by |rho| descending, ties broken by
// (pair1, pair2) ascending, and assigns a 1-based Rank to each pair within
// its own Category, per spec's "rank is within category" field semantics.
func RankBestPairs(pairs []RankedPair) []models.BestPairEntry {
	sorted := make([]RankedPair, len(pairs))
	copy(sorted, pairs)

	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := math.Abs(sorted[i].Correlation), math.Abs(sorted[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		if sorted[i].Pair1 != sorted[j].Pair1 {
			return sorted[i].Pair1 < sorted[j].Pair1
		}
		return sorted[i].Pair2 < sorted[j].Pair2
	})

	rank := make(map[models.CorrelationCategory]int)
	out := make([]models.BestPairEntry, len(sorted))
	for i, p := range sorted {
		rank[p.Category]++
		out[i] = models.BestPairEntry{
			Pair1:       p.Pair1,
			Pair2:       p.Pair2,
			Correlation: p.Correlation,
			Category:    p.Category,
			Rank:        rank[p.Category],
			Reason:      reasonFor(p.Category),
		}
	}
	return out
}

func reasonFor(category models.CorrelationCategory) string {
	switch category {
	case models.CategoryHedging:
		return "strong negative correlation suitable for hedging"
	case models.CategoryNegativelyCorrelated:
		return "negatively correlated"
	case models.CategoryUncorrelated:
		return "no significant linear relationship"
	case models.CategoryModerate:
		return "moderate correlation"
	default:
		return "strong positive correlation"
	}
}
