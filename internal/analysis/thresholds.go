package analysis

// Thresholds are the empirically chosen constants of the statistical analysis.
// Every field can be overridden; DefaultThresholds returns the production values.
type Thresholds struct {
	// |r| above DirectionCutoff is reported as positive/negative.
	DirectionCutoff float64
	// |r| above StrongCorrelation is strong, above ModerateCorrelation moderate.
	StrongCorrelation   float64
	ModerateCorrelation float64

	ExcellentRating float64
	GoodRating      float64
	// Excellent-group average sales above HighImpactMultiplier x good-group average is "high_impact".
	HighImpactMultiplier float64

	// Cumulative shares of the ranked list ending the high and medium clusters.
	HighClusterShare   float64
	MediumClusterShare float64

	CheapPricePercentile   float64
	PopularSalesPercentile float64
	// Used when no item has a positive price (resp. sales count).
	DefaultPriceThreshold int64
	DefaultSalesThreshold int

	MinPatternItems   int
	MinPatternMatches int
	PopularRating     float64
	// Authors whose summed sales exceed PopularAuthorSales form the popular-author pattern.
	PopularAuthorSales      int
	PopularAuthorConfidence float64

	HighRating float64
	// Average rating below LowAverageRating triggers the rating improvement recommendation.
	LowAverageRating float64

	TrendPeriods   int
	TrendGrowthMin float64
	TrendGrowthMax float64
}

// DefaultThresholds returns the thresholds used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DirectionCutoff:         0.3,
		StrongCorrelation:       0.7,
		ModerateCorrelation:     0.3,
		ExcellentRating:         4.5,
		GoodRating:              3.5,
		HighImpactMultiplier:    1.5,
		HighClusterShare:        0.3,
		MediumClusterShare:      0.7,
		CheapPricePercentile:    0.3,
		PopularSalesPercentile:  0.7,
		DefaultPriceThreshold:   100000,
		DefaultSalesThreshold:   30,
		MinPatternItems:         3,
		MinPatternMatches:       2,
		PopularRating:           4.0,
		PopularAuthorSales:      100,
		PopularAuthorConfidence: 0.8,
		HighRating:              4.0,
		LowAverageRating:        3.5,
		TrendPeriods:            4,
		TrendGrowthMin:          -0.05,
		TrendGrowthMax:          0.15,
	}
}

// Analyzer runs the statistical functions with a fixed set of thresholds.
// It holds no state besides its thresholds and is safe for concurrent use.
type Analyzer struct {
	t Thresholds
}

// New creates an analyzer.
func New(t Thresholds) *Analyzer {
	return &Analyzer{t: t}
}

// NewDefault creates an analyzer with DefaultThresholds.
func NewDefault() *Analyzer {
	return New(DefaultThresholds())
}

// Thresholds returns the analyzer's thresholds.
func (a *Analyzer) Thresholds() Thresholds {
	return a.t
}
