package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// Success reasons attributed to a book.
const (
	ReasonCompetitivePrice = "competitive price"
	ReasonHighRating       = "high rating"
	ReasonMarketTrend      = "market trend"
	ReasonPricingTrend     = "aligned with pricing trend"
	ReasonOtherFactors     = "other factors"
)

// SuccessReasons explains why item sold well relative to allItems. It always returns
// at least one reason.
func (a *Analyzer) SuccessReasons(item entities.SoldItem, correlation entities.CorrelationResult, allItems []entities.SoldItem) []string {
	mean := meanPrice(allItems)
	median := medianSales(allItems)
	belowMean := item.Price > 0 && float64(item.Price) < mean

	var reasons []string
	add := func(r string) {
		for _, existing := range reasons {
			if existing == r {
				return
			}
		}
		reasons = append(reasons, r)
	}

	if belowMean {
		add(ReasonCompetitivePrice)
	}
	if item.Rating >= a.t.HighRating {
		add(ReasonHighRating)
	}
	if float64(item.SalesCount) > median {
		add(ReasonMarketTrend)
	}
	if correlation.Interpretation == entities.CorrelationNegative && belowMean {
		add(ReasonPricingTrend)
	}

	if len(reasons) == 0 {
		return []string{ReasonOtherFactors}
	}
	return reasons
}

// JoinReasons renders reasons as a single sentence fragment.
func JoinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return ReasonOtherFactors
	}
	return strings.Join(reasons, ", ")
}

// Recommendations returns one rule-based recommendation per detected pattern type,
// plus a rating suggestion when the average rating is low.
func (a *Analyzer) Recommendations(metrics entities.MarketMetrics, patterns []entities.Pattern) []string {
	var recs []string
	seen := map[entities.PatternType]bool{}

	for _, p := range patterns {
		if seen[p.Type] {
			continue
		}
		seen[p.Type] = true

		switch p.Type {
		case entities.PatternCheapButPopular:
			recs = append(recs, "Stock more affordable titles: low-priced books are among the best sellers.")
		case entities.PatternHighRatingPopular:
			recs = append(recs, "Feature highly rated books prominently and encourage customers to leave reviews.")
		case entities.PatternPopularAuthor:
			recs = append(recs, "Expand the catalog of best-selling authors and promote their new releases.")
		}
	}

	if metrics.TotalBooks > 0 && metrics.AvgRating < a.t.LowAverageRating {
		recs = append(recs, fmt.Sprintf("Improve catalog quality: the average rating of sold books is only %.1f.", metrics.AvgRating))
	}

	if len(recs) == 0 && metrics.TotalBooks > 0 {
		recs = append(recs, "Keep monitoring sales weekly and run promotions on medium-performing titles.")
	}
	return recs
}

// Insights renders the five narrative sections from statistics alone. They are used
// whenever the generative model omits a section or is unavailable.
func (a *Analyzer) Insights(metrics entities.MarketMetrics, correlation entities.CorrelationResult, impact entities.RatingImpact, clusters entities.PerformanceCluster, patterns []entities.Pattern) entities.AIInsights {
	insights := entities.AIInsights{
		Summary: fmt.Sprintf("%d books sold %d copies in this period, with an average price of %d and an average rating of %.1f.",
			metrics.TotalBooks, metrics.TotalSales, metrics.AvgPrice, metrics.AvgRating),
	}

	if len(clusters.High) > 0 {
		top := clusters.High[0]
		insights.SalesTrends = fmt.Sprintf("%d titles form the top-performing group; %q leads with %d sales.",
			len(clusters.High), top.Title, top.SalesCount)
	} else {
		insights.SalesTrends = "Not enough sales to identify top performers."
	}

	switch correlation.Interpretation {
	case entities.CorrelationNegative:
		insights.PricingInsights = fmt.Sprintf("Lower prices go with higher sales (correlation %.2f, %s).", correlation.Coefficient, correlation.Strength)
	case entities.CorrelationPositive:
		insights.PricingInsights = fmt.Sprintf("Higher-priced books sell more (correlation %.2f, %s); customers are not price sensitive.", correlation.Coefficient, correlation.Strength)
	default:
		insights.PricingInsights = fmt.Sprintf("Price has no clear effect on sales (correlation %.2f).", correlation.Coefficient)
	}

	if impact.Insight == entities.RatingInsightHighImpact {
		insights.CustomerBehavior = fmt.Sprintf("Ratings strongly drive purchases: excellent books sell %.2fx more than good ones.", impact.ImpactRatio)
	} else {
		insights.CustomerBehavior = "Ratings have a moderate influence on purchases."
	}

	if len(patterns) > 0 {
		descs := make([]string, 0, len(patterns))
		for _, p := range patterns {
			descs = append(descs, p.Description)
		}
		insights.Opportunities = "Detected patterns: " + strings.Join(descs, "; ") + "."
	} else {
		insights.Opportunities = "No strong sales pattern was detected; broaden promotions to find new opportunities."
	}

	return insights
}

// Conclusion summarises the analysis in one sentence.
func (a *Analyzer) Conclusion(metrics entities.MarketMetrics, correlation entities.CorrelationResult, patterns []entities.Pattern) string {
	if metrics.TotalBooks == 0 {
		return NoSalesConclusion
	}
	return fmt.Sprintf("Across %d books and %d sales, price-sales correlation is %s and %d sales patterns were found.",
		metrics.TotalBooks, metrics.TotalSales, correlation.Interpretation, len(patterns))
}

// ReasonDistribution counts how often each success reason was attributed.
func ReasonDistribution(analyses []entities.BookAnalysis) []entities.ReasonShare {
	counts := map[string]int{}
	var order []string
	total := 0
	for _, ba := range analyses {
		for _, r := range ba.SuccessReasons {
			if counts[r] == 0 {
				order = append(order, r)
			}
			counts[r]++
			total++
		}
	}

	shares := make([]entities.ReasonShare, 0, len(order))
	for _, r := range order {
		shares = append(shares, entities.ReasonShare{
			Reason:  r,
			Count:   counts[r],
			Percent: round1(float64(counts[r]) / float64(total) * 100),
		})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Count > shares[j].Count })
	return shares
}

func meanPrice(items []entities.SoldItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += float64(it.Price)
	}
	return sum / float64(len(items))
}

func medianSales(items []entities.SoldItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sales := make([]int, len(items))
	for i, it := range items {
		sales[i] = it.SalesCount
	}
	sort.Ints(sales)
	mid := len(sales) / 2
	if len(sales)%2 == 0 {
		return float64(sales[mid-1]+sales[mid]) / 2
	}
	return float64(sales[mid])
}
