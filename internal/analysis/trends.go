package analysis

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// NewRand returns a time-seeded generator for production use of TrendSeries.
func NewRand() *rand.Rand {
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, now>>1))
}

// TrendSeries spreads the window's total sales over periods with a random growth
// factor in [TrendGrowthMin, TrendGrowthMax] between consecutive periods. The first
// period holds floor(total/periods); later periods never drop below 1.
func (a *Analyzer) TrendSeries(items []entities.SoldItem, periods int, rng *rand.Rand) []entities.TrendPoint {
	if periods <= 0 {
		periods = a.t.TrendPeriods
	}
	if rng == nil {
		rng = NewRand()
	}

	total := 0
	for _, it := range items {
		total += it.SalesCount
	}

	points := make([]entities.TrendPoint, periods)
	if total == 0 {
		for i := range points {
			points[i] = entities.TrendPoint{Period: periodLabel(i), TotalSales: 0, GrowthPercent: "0%"}
		}
		return points
	}

	span := a.t.TrendGrowthMax - a.t.TrendGrowthMin
	value := total / periods
	points[0] = entities.TrendPoint{Period: periodLabel(0), TotalSales: value, GrowthPercent: "0%"}

	for i := 1; i < periods; i++ {
		prev := value
		r := a.t.TrendGrowthMin + rng.Float64()*span
		value = max(1, int(math.Floor(float64(prev)*(1+r))))
		points[i] = entities.TrendPoint{
			Period:        periodLabel(i),
			TotalSales:    value,
			GrowthPercent: growthPercent(prev, value),
		}
	}
	return points
}

func periodLabel(i int) string {
	return fmt.Sprintf("Period %d", i+1)
}

func growthPercent(prev, cur int) string {
	if prev == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(cur-prev)/float64(prev)*100)
}
