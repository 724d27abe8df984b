package entities

import (
	"time"
)

// SearchEvent represents a single catalog search for analytics.
type SearchEvent struct {
	ID          string     `json:"id" db:"id"`
	Query       string     `json:"query" db:"query"`
	QueryType   QueryType  `json:"query_type" db:"query_type"`
	Mode        SearchMode `json:"mode" db:"mode"`
	CategoryID  string     `json:"category_id,omitempty" db:"category_id"`
	Fallback    bool       `json:"fallback" db:"fallback"`
	ResultCount int        `json:"result_count" db:"result_count"`
	LatencyMs   int        `json:"latency_ms" db:"latency_ms"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
