package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// ClusterByPerformance ranks items by sales (stable, descending) and splits the ranking
// at ceil(n*HighClusterShare) and ceil(n*MediumClusterShare).
func (a *Analyzer) ClusterByPerformance(items []entities.SoldItem) entities.PerformanceCluster {
	ranked := rankBySales(items)
	n := len(ranked)

	highEnd := min(n, int(math.Ceil(float64(n)*a.t.HighClusterShare)))
	mediumEnd := min(n, max(highEnd, int(math.Ceil(float64(n)*a.t.MediumClusterShare))))

	return entities.PerformanceCluster{
		High:   append([]entities.SoldItem{}, ranked[:highEnd]...),
		Medium: append([]entities.SoldItem{}, ranked[highEnd:mediumEnd]...),
		Low:    append([]entities.SoldItem{}, ranked[mediumEnd:]...),
	}
}

// MarketMetrics aggregates totals, averages and per-item market share.
func (a *Analyzer) MarketMetrics(items []entities.SoldItem) entities.MarketMetrics {
	metrics := entities.MarketMetrics{MarketShare: []entities.MarketShare{}}
	if len(items) == 0 {
		return metrics
	}

	var totalPrice int64
	var totalRating float64
	for _, it := range items {
		metrics.TotalSales += it.SalesCount
		totalPrice += it.Price
		totalRating += it.Rating
	}

	n := float64(len(items))
	metrics.TotalBooks = len(items)
	metrics.AvgPrice = int64(math.Round(float64(totalPrice) / n))
	metrics.AvgRating = round1(totalRating / n)

	for _, it := range items {
		share := 0.0
		if metrics.TotalSales > 0 {
			share = float64(it.SalesCount) / float64(metrics.TotalSales) * 100
		}
		metrics.MarketShare = append(metrics.MarketShare, entities.MarketShare{
			Title:        it.Title,
			SharePercent: fmt.Sprintf("%.1f", share),
		})
	}

	return metrics
}

func rankBySales(items []entities.SoldItem) []entities.SoldItem {
	ranked := append([]entities.SoldItem{}, items...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SalesCount > ranked[j].SalesCount
	})
	return ranked
}
