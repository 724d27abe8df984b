package entities

// CorrelationInterpretation is the direction of a correlation coefficient.
type CorrelationInterpretation string

const (
	CorrelationNegative CorrelationInterpretation = "negative"
	CorrelationNeutral  CorrelationInterpretation = "neutral"
	CorrelationPositive CorrelationInterpretation = "positive"
)

// CorrelationStrength buckets the absolute value of a coefficient.
type CorrelationStrength string

const (
	StrengthNone     CorrelationStrength = "none"
	StrengthWeak     CorrelationStrength = "weak"
	StrengthModerate CorrelationStrength = "moderate"
	StrengthStrong   CorrelationStrength = "strong"
)

// CorrelationResult is a Pearson coefficient in [-1,1], never NaN.
type CorrelationResult struct {
	Coefficient    float64                   `json:"coefficient"`
	Interpretation CorrelationInterpretation `json:"interpretation"`
	Strength       CorrelationStrength       `json:"strength"`
}

// RatingGroup partitions items by rating.
type RatingGroup string

const (
	RatingExcellent RatingGroup = "excellent"
	RatingGood      RatingGroup = "good"
	RatingAverage   RatingGroup = "average"
)

const (
	RatingInsightHighImpact     = "high_impact"
	RatingInsightModerateImpact = "moderate_impact"
)

// RatingImpact summarises how sales differ between rating groups.
type RatingImpact struct {
	Groups                map[RatingGroup]int     `json:"groups"`
	AvgSalesByGroup       map[RatingGroup]float64 `json:"avg_sales_by_group"`
	ImpactRatio           float64                 `json:"impact_ratio"`
	CorrelationMultiplier float64                 `json:"correlation_multiplier"`
	Insight               string                  `json:"insight"`
}

// PerformanceCluster splits items ranked by sales into top 30%, middle 40% and bottom 30%.
type PerformanceCluster struct {
	High   []SoldItem `json:"high"`
	Medium []SoldItem `json:"medium"`
	Low    []SoldItem `json:"low"`
}

// MarketShare is one item's share of total sales, formatted with one decimal.
type MarketShare struct {
	Title        string `json:"title"`
	SharePercent string `json:"share_percent"`
}

// MarketMetrics aggregates a window's sold items.
type MarketMetrics struct {
	TotalBooks  int           `json:"total_books"`
	TotalSales  int           `json:"total_sales"`
	AvgPrice    int64         `json:"avg_price"`
	AvgRating   float64       `json:"avg_rating"`
	MarketShare []MarketShare `json:"market_share"`
}

// PatternType labels a detected sales pattern.
type PatternType string

const (
	PatternCheapButPopular   PatternType = "cheap_but_popular"
	PatternHighRatingPopular PatternType = "high_rating_popular"
	PatternPopularAuthor     PatternType = "popular_author"
)

// Pattern is a detected regularity together with the items supporting it.
type Pattern struct {
	Type         PatternType `json:"type"`
	Description  string      `json:"description"`
	MatchedItems []SoldItem  `json:"matched_items"`
	Confidence   float64     `json:"confidence"`
}

// TrendPoint is one period of the synthetic sales trend chart.
type TrendPoint struct {
	Period        string `json:"period"`
	TotalSales    int    `json:"total_sales"`
	GrowthPercent string `json:"growth_percent"`
}
