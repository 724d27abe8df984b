package analysis

import (
	"fmt"
	"sort"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// DetectPatterns evaluates each pattern independently. It needs at least
// MinPatternItems items and emits a pattern only with MinPatternMatches matches.
func (a *Analyzer) DetectPatterns(items []entities.SoldItem) []entities.Pattern {
	patterns := []entities.Pattern{}
	if len(items) < a.t.MinPatternItems {
		return patterns
	}

	priceThreshold, salesThreshold := a.PatternThresholds(items)
	total := float64(len(items))

	var cheapPopular, ratedPopular []entities.SoldItem
	for _, it := range items {
		popular := it.SalesCount >= salesThreshold
		if popular && it.Price <= priceThreshold {
			cheapPopular = append(cheapPopular, it)
		}
		if popular && it.Rating >= a.t.PopularRating {
			ratedPopular = append(ratedPopular, it)
		}
	}

	if len(cheapPopular) >= a.t.MinPatternMatches {
		patterns = append(patterns, entities.Pattern{
			Type: entities.PatternCheapButPopular,
			Description: fmt.Sprintf("%d books priced at or below %d sell at least %d copies",
				len(cheapPopular), priceThreshold, salesThreshold),
			MatchedItems: cheapPopular,
			Confidence:   float64(len(cheapPopular)) / total,
		})
	}

	if len(ratedPopular) >= a.t.MinPatternMatches {
		patterns = append(patterns, entities.Pattern{
			Type: entities.PatternHighRatingPopular,
			Description: fmt.Sprintf("%d books rated %.1f or higher sell at least %d copies",
				len(ratedPopular), a.t.PopularRating, salesThreshold),
			MatchedItems: ratedPopular,
			Confidence:   float64(len(ratedPopular)) / total,
		})
	}

	if authors, matched := a.popularAuthors(items); len(matched) >= a.t.MinPatternMatches {
		patterns = append(patterns, entities.Pattern{
			Type: entities.PatternPopularAuthor,
			Description: fmt.Sprintf("authors with more than %d combined sales: %v",
				a.t.PopularAuthorSales, authors),
			MatchedItems: matched,
			Confidence:   a.t.PopularAuthorConfidence,
		})
	}

	return patterns
}

// PatternThresholds returns the price percentile and sales percentile thresholds,
// computed over strictly positive values only.
func (a *Analyzer) PatternThresholds(items []entities.SoldItem) (int64, int) {
	var prices []int64
	var sales []int
	for _, it := range items {
		if it.Price > 0 {
			prices = append(prices, it.Price)
		}
		if it.SalesCount > 0 {
			sales = append(sales, it.SalesCount)
		}
	}

	priceThreshold := a.t.DefaultPriceThreshold
	if len(prices) > 0 {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
		priceThreshold = prices[percentileIndex(len(prices), a.t.CheapPricePercentile)]
	}

	salesThreshold := a.t.DefaultSalesThreshold
	if len(sales) > 0 {
		sort.Ints(sales)
		salesThreshold = sales[percentileIndex(len(sales), a.t.PopularSalesPercentile)]
	}

	return priceThreshold, salesThreshold
}

// popularAuthors returns qualifying authors in first-seen order and all of their items.
func (a *Analyzer) popularAuthors(items []entities.SoldItem) ([]string, []entities.SoldItem) {
	totals := map[string]int{}
	var order []string
	for _, it := range items {
		if it.Author == "" {
			continue
		}
		if _, seen := totals[it.Author]; !seen {
			order = append(order, it.Author)
		}
		totals[it.Author] += it.SalesCount
	}

	qualified := map[string]bool{}
	var authors []string
	for _, author := range order {
		if totals[author] > a.t.PopularAuthorSales {
			qualified[author] = true
			authors = append(authors, author)
		}
	}

	var matched []entities.SoldItem
	for _, it := range items {
		if qualified[it.Author] {
			matched = append(matched, it)
		}
	}
	return authors, matched
}

func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	return max(0, min(idx, n-1))
}
