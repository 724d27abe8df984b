package analysis

import (
	"math"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// PriceSalesCorrelation returns the Pearson correlation between price and sales count.
// Fewer than two items, zero variance in either series or a non-finite result all
// yield coefficient 0 with strength "none".
func (a *Analyzer) PriceSalesCorrelation(items []entities.SoldItem) entities.CorrelationResult {
	none := entities.CorrelationResult{
		Coefficient:    0,
		Interpretation: entities.CorrelationNeutral,
		Strength:       entities.StrengthNone,
	}
	n := len(items)
	if n < 2 {
		return none
	}

	var sumPrice, sumSales float64
	for _, it := range items {
		sumPrice += float64(it.Price)
		sumSales += float64(it.SalesCount)
	}
	meanPrice := sumPrice / float64(n)
	meanSales := sumSales / float64(n)

	var cov, varPrice, varSales float64
	for _, it := range items {
		dp := float64(it.Price) - meanPrice
		ds := float64(it.SalesCount) - meanSales
		cov += dp * ds
		varPrice += dp * dp
		varSales += ds * ds
	}

	denominator := math.Sqrt(varPrice * varSales)
	if denominator == 0 || math.IsNaN(denominator) || math.IsInf(denominator, 0) {
		return none
	}

	r := cov / denominator
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return none
	}
	r = clamp(round2(r), -1, 1)

	return entities.CorrelationResult{
		Coefficient:    r,
		Interpretation: a.interpret(r),
		Strength:       a.strength(r),
	}
}

func (a *Analyzer) interpret(r float64) entities.CorrelationInterpretation {
	switch {
	case r < -a.t.DirectionCutoff:
		return entities.CorrelationNegative
	case r > a.t.DirectionCutoff:
		return entities.CorrelationPositive
	default:
		return entities.CorrelationNeutral
	}
}

func (a *Analyzer) strength(r float64) entities.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs > a.t.StrongCorrelation:
		return entities.StrengthStrong
	case abs > a.t.ModerateCorrelation:
		return entities.StrengthModerate
	default:
		return entities.StrengthWeak
	}
}

// RatingImpact compares average sales across rating groups.
func (a *Analyzer) RatingImpact(items []entities.SoldItem) entities.RatingImpact {
	counts := map[entities.RatingGroup]int{
		entities.RatingExcellent: 0,
		entities.RatingGood:      0,
		entities.RatingAverage:   0,
	}
	sales := map[entities.RatingGroup]int{}

	for _, it := range items {
		g := a.ratingGroup(it.Rating)
		counts[g]++
		sales[g] += it.SalesCount
	}

	avg := make(map[entities.RatingGroup]float64, len(counts))
	for g, c := range counts {
		avg[g] = round2(float64(sales[g]) / float64(max(c, 1)))
	}

	excellent := avg[entities.RatingExcellent]
	good := avg[entities.RatingGood]

	insight := entities.RatingInsightModerateImpact
	if excellent > a.t.HighImpactMultiplier*good {
		insight = entities.RatingInsightHighImpact
	}

	return entities.RatingImpact{
		Groups:                counts,
		AvgSalesByGroup:       avg,
		ImpactRatio:           round2(excellent / math.Max(good, 1)),
		CorrelationMultiplier: a.t.HighImpactMultiplier,
		Insight:               insight,
	}
}

func (a *Analyzer) ratingGroup(rating float64) entities.RatingGroup {
	switch {
	case rating >= a.t.ExcellentRating:
		return entities.RatingExcellent
	case rating >= a.t.GoodRating:
		return entities.RatingGood
	default:
		return entities.RatingAverage
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
