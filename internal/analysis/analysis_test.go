package analysis

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(title string, price int64, sales int, rating float64, author string) entities.SoldItem {
	return entities.SoldItem{BookID: title, Title: title, Author: author, Price: price, SalesCount: sales, Rating: rating}
}

// sampleItems has two cheap, highly rated best sellers and two authors above 100 sales.
func sampleItems() []entities.SoldItem {
	return []entities.SoldItem{
		item("A", 40000, 120, 4.5, "X"),
		item("B", 60000, 30, 3.2, "Y"),
		item("C", 150000, 20, 3.0, "X"),
		item("D", 200000, 10, 4.8, "Z"),
		item("E", 50000, 100, 4.1, "Y"),
	}
}

func randomItems(rng *rand.Rand, n int) []entities.SoldItem {
	items := make([]entities.SoldItem, n)
	for i := range items {
		items[i] = entities.SoldItem{
			BookID:     string(rune('a' + i%26)),
			Title:      string(rune('a' + i%26)),
			Author:     string(rune('A' + rng.IntN(4))),
			Price:      int64(rng.IntN(5)) * 25000,
			SalesCount: rng.IntN(200),
			Rating:     float64(rng.IntN(51)) / 10,
		}
	}
	return items
}

func TestPriceSalesCorrelation_FewerThanTwoItems(t *testing.T) {
	a := NewDefault()
	for _, items := range [][]entities.SoldItem{nil, {}, {item("only", 10000, 5, 4, "x")}} {
		got := a.PriceSalesCorrelation(items)
		assert.Equal(t, 0.0, got.Coefficient)
		assert.Equal(t, entities.StrengthNone, got.Strength)
		assert.Equal(t, entities.CorrelationNeutral, got.Interpretation)
	}
}

func TestPriceSalesCorrelation_ZeroVarianceIsZero(t *testing.T) {
	a := NewDefault()

	samePrice := []entities.SoldItem{item("a", 50000, 1, 4, ""), item("b", 50000, 30, 4, ""), item("c", 50000, 300, 4, "")}
	sameSales := []entities.SoldItem{item("a", 10000, 7, 4, ""), item("b", 90000, 7, 4, ""), item("c", 30000, 7, 4, "")}
	allZero := []entities.SoldItem{{}, {}, {}}

	for _, items := range [][]entities.SoldItem{samePrice, sameSales, allZero} {
		got := a.PriceSalesCorrelation(items)
		assert.Equal(t, 0.0, got.Coefficient)
		assert.False(t, math.IsNaN(got.Coefficient))
		assert.False(t, math.IsInf(got.Coefficient, 0))
	}
}

func TestPriceSalesCorrelation_Values(t *testing.T) {
	a := NewDefault()

	tests := []struct {
		name           string
		items          []entities.SoldItem
		coefficient    float64
		interpretation entities.CorrelationInterpretation
		strength       entities.CorrelationStrength
	}{
		{
			name:           "perfect negative",
			items:          []entities.SoldItem{item("a", 10, 30, 0, ""), item("b", 20, 20, 0, ""), item("c", 30, 10, 0, "")},
			coefficient:    -1,
			interpretation: entities.CorrelationNegative,
			strength:       entities.StrengthStrong,
		},
		{
			name:           "perfect positive",
			items:          []entities.SoldItem{item("a", 10, 10, 0, ""), item("b", 20, 20, 0, ""), item("c", 30, 30, 0, "")},
			coefficient:    1,
			interpretation: entities.CorrelationPositive,
			strength:       entities.StrengthStrong,
		},
		{
			name:           "moderate positive",
			items:          []entities.SoldItem{item("a", 1, 2, 0, ""), item("b", 2, 1, 0, ""), item("c", 3, 4, 0, ""), item("d", 4, 3, 0, "")},
			coefficient:    0.6,
			interpretation: entities.CorrelationPositive,
			strength:       entities.StrengthModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.PriceSalesCorrelation(tt.items)
			assert.InDelta(t, tt.coefficient, got.Coefficient, 1e-9)
			assert.Equal(t, tt.interpretation, got.Interpretation)
			assert.Equal(t, tt.strength, got.Strength)
		})
	}
}

func TestPriceSalesCorrelation_AlwaysFiniteAndBounded(t *testing.T) {
	a := NewDefault()
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 200; i++ {
		got := a.PriceSalesCorrelation(randomItems(rng, rng.IntN(12)))
		assert.False(t, math.IsNaN(got.Coefficient))
		assert.GreaterOrEqual(t, got.Coefficient, -1.0)
		assert.LessOrEqual(t, got.Coefficient, 1.0)
	}
}

func TestRatingImpact(t *testing.T) {
	a := NewDefault()
	items := []entities.SoldItem{
		item("a", 0, 100, 4.8, ""),
		item("b", 0, 80, 4.6, ""),
		item("c", 0, 40, 4.0, ""),
		item("d", 0, 10, 3.0, ""),
	}

	got := a.RatingImpact(items)

	assert.Equal(t, 2, got.Groups[entities.RatingExcellent])
	assert.Equal(t, 1, got.Groups[entities.RatingGood])
	assert.Equal(t, 1, got.Groups[entities.RatingAverage])
	assert.Equal(t, 90.0, got.AvgSalesByGroup[entities.RatingExcellent])
	assert.Equal(t, 40.0, got.AvgSalesByGroup[entities.RatingGood])
	assert.Equal(t, 10.0, got.AvgSalesByGroup[entities.RatingAverage])
	assert.Equal(t, 2.25, got.ImpactRatio)
	assert.Equal(t, entities.RatingInsightHighImpact, got.Insight)
}

func TestRatingImpact_EmptyGroupsDoNotDivideByZero(t *testing.T) {
	a := NewDefault()

	got := a.RatingImpact(nil)

	assert.Equal(t, 0.0, got.AvgSalesByGroup[entities.RatingExcellent])
	assert.Equal(t, 0.0, got.ImpactRatio)
	assert.Equal(t, entities.RatingInsightModerateImpact, got.Insight)
}

func TestClusterByPerformance_TenItems(t *testing.T) {
	a := NewDefault()
	items := make([]entities.SoldItem, 10)
	for i := range items {
		items[i] = item(string(rune('a'+i)), 0, i*10, 0, "")
	}

	got := a.ClusterByPerformance(items)

	require.Len(t, got.High, 3)
	require.Len(t, got.Medium, 4)
	require.Len(t, got.Low, 3)
	assert.Equal(t, 90, got.High[0].SalesCount)
	assert.Equal(t, 0, got.Low[2].SalesCount)
}

func TestClusterByPerformance_StableTieBreak(t *testing.T) {
	a := NewDefault()
	items := []entities.SoldItem{item("first", 0, 5, 0, ""), item("second", 0, 5, 0, ""), item("third", 0, 5, 0, "")}

	got := a.ClusterByPerformance(items)

	// ceil(0.9)=1 and ceil(2.1)=3: nothing is left for the low cluster
	require.Len(t, got.High, 1)
	require.Len(t, got.Medium, 2)
	assert.Empty(t, got.Low)
	assert.Equal(t, "first", got.High[0].Title)
	assert.Equal(t, []string{"second", "third"}, titles(got.Medium))
}

func TestClusterByPerformance_PartitionSizes(t *testing.T) {
	a := NewDefault()
	rng := rand.New(rand.NewPCG(3, 5))

	for n := 0; n <= 40; n++ {
		items := randomItems(rng, n)
		got := a.ClusterByPerformance(items)

		assert.Equal(t, n, len(got.High)+len(got.Medium)+len(got.Low), "n=%d", n)
		assert.Equal(t, int(math.Ceil(float64(n)*0.3)), len(got.High), "n=%d", n)

		if len(got.High) == 0 {
			continue
		}
		minHigh := got.High[len(got.High)-1].SalesCount
		for _, rest := range append(append([]entities.SoldItem{}, got.Medium...), got.Low...) {
			assert.LessOrEqual(t, rest.SalesCount, minHigh)
		}
	}
}

func TestMarketMetrics_Empty(t *testing.T) {
	got := NewDefault().MarketMetrics(nil)

	assert.Equal(t, entities.MarketMetrics{MarketShare: []entities.MarketShare{}}, got)
}

func TestMarketMetrics(t *testing.T) {
	items := []entities.SoldItem{
		item("Dune", 100000, 30, 4.4, ""),
		item("Emma", 50000, 10, 3.8, ""),
	}

	got := NewDefault().MarketMetrics(items)

	assert.Equal(t, 2, got.TotalBooks)
	assert.Equal(t, 40, got.TotalSales)
	assert.Equal(t, int64(75000), got.AvgPrice)
	assert.Equal(t, 4.1, got.AvgRating)
	assert.Equal(t, []entities.MarketShare{
		{Title: "Dune", SharePercent: "75.0"},
		{Title: "Emma", SharePercent: "25.0"},
	}, got.MarketShare)
}

func TestDetectPatterns_FewerThanThreeItems(t *testing.T) {
	a := NewDefault()

	assert.Empty(t, a.DetectPatterns(nil))
	assert.Empty(t, a.DetectPatterns(sampleItems()[:2]))
}

func TestDetectPatterns(t *testing.T) {
	a := NewDefault()
	items := sampleItems()

	priceThreshold, salesThreshold := a.PatternThresholds(items)
	assert.Equal(t, int64(50000), priceThreshold)
	assert.Equal(t, 100, salesThreshold)

	got := a.DetectPatterns(items)
	require.Len(t, got, 3)

	assert.Equal(t, entities.PatternCheapButPopular, got[0].Type)
	assert.Equal(t, []string{"A", "E"}, titles(got[0].MatchedItems))
	assert.InDelta(t, 0.4, got[0].Confidence, 1e-9)

	assert.Equal(t, entities.PatternHighRatingPopular, got[1].Type)
	assert.Equal(t, []string{"A", "E"}, titles(got[1].MatchedItems))
	assert.InDelta(t, 0.4, got[1].Confidence, 1e-9)

	assert.Equal(t, entities.PatternPopularAuthor, got[2].Type)
	assert.Equal(t, []string{"A", "B", "C", "E"}, titles(got[2].MatchedItems))
	assert.Equal(t, 0.8, got[2].Confidence)
}

func TestDetectPatterns_DefaultThresholdsWithoutPositiveValues(t *testing.T) {
	a := NewDefault()
	items := []entities.SoldItem{{Title: "a"}, {Title: "b"}, {Title: "c"}}

	price, sales := a.PatternThresholds(items)

	assert.Equal(t, int64(100000), price)
	assert.Equal(t, 30, sales)
	assert.Empty(t, a.DetectPatterns(items))
}

func TestDetectPatterns_ConfidenceIsMatchedOverTotal(t *testing.T) {
	a := NewDefault()
	rng := rand.New(rand.NewPCG(42, 1))

	for i := 0; i < 200; i++ {
		items := randomItems(rng, 3+rng.IntN(15))
		for _, p := range a.DetectPatterns(items) {
			assert.GreaterOrEqual(t, len(p.MatchedItems), 2)
			if p.Type == entities.PatternPopularAuthor {
				assert.Equal(t, 0.8, p.Confidence)
				continue
			}
			assert.InDelta(t, float64(len(p.MatchedItems))/float64(len(items)), p.Confidence, 1e-12)
		}
	}
}

func TestSuccessReasons(t *testing.T) {
	a := NewDefault()
	items := sampleItems()
	negative := entities.CorrelationResult{Coefficient: -0.6, Interpretation: entities.CorrelationNegative}
	neutral := entities.CorrelationResult{Interpretation: entities.CorrelationNeutral}

	assert.Equal(t,
		[]string{ReasonCompetitivePrice, ReasonHighRating, ReasonMarketTrend, ReasonPricingTrend},
		a.SuccessReasons(items[0], negative, items))
	assert.Equal(t,
		[]string{ReasonCompetitivePrice, ReasonHighRating, ReasonMarketTrend},
		a.SuccessReasons(items[0], neutral, items))
	assert.Equal(t, []string{ReasonHighRating}, a.SuccessReasons(items[3], neutral, items))
	assert.Equal(t, []string{ReasonOtherFactors}, a.SuccessReasons(items[2], neutral, items))
}

func TestRecommendations(t *testing.T) {
	a := NewDefault()
	items := sampleItems()

	recs := a.Recommendations(a.MarketMetrics(items), a.DetectPatterns(items))
	assert.Len(t, recs, 3)

	low := a.Recommendations(entities.MarketMetrics{TotalBooks: 1, AvgRating: 3.0}, nil)
	require.Len(t, low, 1)
	assert.Contains(t, low[0], "3.0")

	assert.Empty(t, a.Recommendations(entities.MarketMetrics{}, nil))
}

func TestTrendSeries_ZeroSales(t *testing.T) {
	got := NewDefault().TrendSeries([]entities.SoldItem{{}, {}}, 4, rand.New(rand.NewPCG(1, 1)))

	require.Len(t, got, 4)
	for _, p := range got {
		assert.Equal(t, 0, p.TotalSales)
		assert.Equal(t, "0%", p.GrowthPercent)
	}
}

func TestTrendSeries_Bounds(t *testing.T) {
	a := NewDefault()
	items := []entities.SoldItem{item("a", 0, 600, 0, ""), item("b", 0, 400, 0, "")}

	for seed := uint64(0); seed < 50; seed++ {
		got := a.TrendSeries(items, 4, rand.New(rand.NewPCG(seed, seed+1)))

		require.Len(t, got, 4)
		assert.Equal(t, 250, got[0].TotalSales)
		assert.Equal(t, "0%", got[0].GrowthPercent)
		for i := 1; i < len(got); i++ {
			prev := float64(got[i-1].TotalSales)
			assert.Positive(t, got[i].TotalSales)
			assert.GreaterOrEqual(t, float64(got[i].TotalSales), math.Floor(prev*0.95))
			assert.LessOrEqual(t, float64(got[i].TotalSales), math.Floor(prev*1.15))
		}
	}
}

func TestReasonDistribution(t *testing.T) {
	got := ReasonDistribution([]entities.BookAnalysis{
		{SuccessReasons: []string{ReasonHighRating, ReasonMarketTrend}},
		{SuccessReasons: []string{ReasonMarketTrend}},
		{SuccessReasons: []string{ReasonMarketTrend}},
	})

	require.Len(t, got, 2)
	assert.Equal(t, entities.ReasonShare{Reason: ReasonMarketTrend, Count: 3, Percent: 75}, got[0])
	assert.Equal(t, entities.ReasonShare{Reason: ReasonHighRating, Count: 1, Percent: 25}, got[1])
}

func TestAnalyze(t *testing.T) {
	a := NewDefault()

	got := a.Analyze(sampleItems(), 3, rand.New(rand.NewPCG(9, 9)))

	require.Len(t, got.BookAnalysis, 3)
	assert.Equal(t, []string{"A", "E", "B"}, []string{got.BookAnalysis[0].Title, got.BookAnalysis[1].Title, got.BookAnalysis[2].Title})
	assert.Equal(t, JoinReasons(got.BookAnalysis[0].SuccessReasons), got.BookAnalysis[0].SuccessReason)
	assert.Len(t, got.TopBooks, 3)
	assert.Len(t, got.Trends, 4)
	assert.Equal(t, 5, got.Metrics.TotalBooks)
	assert.NotEmpty(t, got.Insights.Summary)
	assert.NotEmpty(t, got.Insights.Opportunities)
	assert.NotEmpty(t, got.Conclusion)
	assert.NotEmpty(t, got.Recommendations)
}

func titles(items []entities.SoldItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
