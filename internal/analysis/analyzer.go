package analysis

import (
	"math/rand/v2"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// NoSalesSummary and NoSalesConclusion are used for windows without any sale.
const (
	NoSalesSummary    = "No sales data was recorded in the selected period."
	NoSalesConclusion = "There is not enough sales data to draw conclusions for this period."
)

// Result bundles every statistic computed for one report window.
type Result struct {
	Correlation        entities.CorrelationResult
	RatingImpact       entities.RatingImpact
	Clusters           entities.PerformanceCluster
	Metrics            entities.MarketMetrics
	Patterns           []entities.Pattern
	Insights           entities.AIInsights
	BookAnalysis       []entities.BookAnalysis
	ReasonDistribution []entities.ReasonShare
	Recommendations    []string
	Conclusion         string
	Trends             []entities.TrendPoint
	TopBooks           []entities.TopBookPoint
}

// Analyze runs the full statistical pass. topN bounds the per-book analysis and the
// top books chart; every item still contributes to the aggregate statistics.
func (a *Analyzer) Analyze(items []entities.SoldItem, topN int, rng *rand.Rand) Result {
	correlation := a.PriceSalesCorrelation(items)
	impact := a.RatingImpact(items)
	clusters := a.ClusterByPerformance(items)
	metrics := a.MarketMetrics(items)
	patterns := a.DetectPatterns(items)

	ranked := rankBySales(items)
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	books := make([]entities.BookAnalysis, 0, len(ranked))
	top := make([]entities.TopBookPoint, 0, len(ranked))
	for _, it := range ranked {
		reasons := a.SuccessReasons(it, correlation, items)
		books = append(books, entities.BookAnalysis{
			BookID:         it.BookID,
			Title:          it.Title,
			Author:         it.Author,
			Price:          it.Price,
			Rating:         it.Rating,
			SalesCount:     it.SalesCount,
			Revenue:        it.Revenue,
			SuccessReasons: reasons,
			SuccessReason:  JoinReasons(reasons),
		})
		top = append(top, entities.TopBookPoint{Title: it.Title, SalesCount: it.SalesCount, Revenue: it.Revenue})
	}

	return Result{
		Correlation:        correlation,
		RatingImpact:       impact,
		Clusters:           clusters,
		Metrics:            metrics,
		Patterns:           patterns,
		Insights:           a.Insights(metrics, correlation, impact, clusters, patterns),
		BookAnalysis:       books,
		ReasonDistribution: ReasonDistribution(books),
		Recommendations:    a.Recommendations(metrics, patterns),
		Conclusion:         a.Conclusion(metrics, correlation, patterns),
		Trends:             a.TrendSeries(items, a.t.TrendPeriods, rng),
		TopBooks:           top,
	}
}
