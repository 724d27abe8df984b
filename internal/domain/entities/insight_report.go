package entities

import "time"

// ReportStatus is the lifecycle state of an insight report.
type ReportStatus string

const (
	ReportStatusGenerating ReportStatus = "generating"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed
}

// InsightReport is a persisted business insight report for one owner and time window.
// It is observed either in generating state with empty fields or in a single terminal state.
type InsightReport struct {
	ID                 string         `json:"id" db:"id"`
	OwnerID            string         `json:"owner_id" db:"owner_id"`
	Title              string         `json:"title" db:"title"`
	Status             ReportStatus   `json:"status" db:"status"`
	PeriodStart        time.Time      `json:"period_start" db:"period_start"`
	PeriodEnd          time.Time      `json:"period_end" db:"period_end"`
	BookAnalysis       []BookAnalysis `json:"book_analysis" db:"book_analysis"`
	ChartData          ChartData      `json:"chart_data" db:"chart_data"`
	AIInsights         AIInsights     `json:"ai_insights" db:"ai_insights"`
	Conclusion         string         `json:"conclusion" db:"conclusion"`
	Recommendations    []string       `json:"recommendations" db:"recommendations"`
	TotalBooksAnalyzed int            `json:"total_books_analyzed" db:"total_books_analyzed"`
	FailureReason      string         `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// BookAnalysis attributes success reasons to one top-selling book.
type BookAnalysis struct {
	BookID         string   `json:"book_id"`
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	Price          int64    `json:"price"`
	Rating         float64  `json:"rating"`
	SalesCount     int      `json:"sales_count"`
	Revenue        int64    `json:"revenue"`
	SuccessReasons []string `json:"success_reasons"`
	SuccessReason  string   `json:"success_reason"`
}

// ChartData holds the numeric series rendered by the dashboard.
type ChartData struct {
	TopBooks           []TopBookPoint     `json:"top_books"`
	ReasonDistribution []ReasonShare      `json:"reason_distribution"`
	Trends             []TrendPoint       `json:"trends"`
	Correlations       CorrelationSummary `json:"correlations"`
}

// TopBookPoint is one bar of the top sellers chart.
type TopBookPoint struct {
	Title      string `json:"title"`
	SalesCount int    `json:"sales_count"`
	Revenue    int64  `json:"revenue"`
}

// ReasonShare is one slice of the success reason distribution.
type ReasonShare struct {
	Reason  string  `json:"reason"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// CorrelationSummary groups the correlation figures shown alongside the report.
type CorrelationSummary struct {
	PriceSales   CorrelationResult `json:"price_sales"`
	RatingImpact RatingImpact      `json:"rating_impact"`
}

// AIInsights are the five narrative sections of a report.
type AIInsights struct {
	Summary          string `json:"summary"`
	SalesTrends      string `json:"sales_trends"`
	PricingInsights  string `json:"pricing_insights"`
	CustomerBehavior string `json:"customer_behavior"`
	Opportunities    string `json:"opportunities"`
}

// ReportHandle is returned when a report generation is started.
type ReportHandle struct {
	ReportID            string       `json:"report_id"`
	Status              ReportStatus `json:"status"`
	EstimatedCompletion time.Time    `json:"estimated_completion"`
}

// ReportProgress is a coarse progress snapshot of a report.
type ReportProgress struct {
	ReportID        string       `json:"report_id"`
	Status          ReportStatus `json:"status"`
	ProgressPercent int          `json:"progress_percent"`
	Message         string       `json:"message"`
}
