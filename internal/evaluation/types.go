package evaluation

import (
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// GoldenQuery is a labeled search query with the expected routing decision and the
// books a good answer should contain.
type GoldenQuery struct {
	ID                 string             `json:"id"`
	Query              string             `json:"query"`
	ExpectedQueryType  entities.QueryType `json:"expected_query_type"`
	ExpectedCategoryID *string            `json:"expected_category_id,omitempty"`
	ExpectedMinPrice   *int64             `json:"expected_min_price,omitempty"`
	ExpectedMaxPrice   *int64             `json:"expected_max_price,omitempty"`
	RelevantBookIDs    []string           `json:"relevant_book_ids"`
}

// ExpectedFilters returns the labeled filters in the classifier's shape
func (g GoldenQuery) ExpectedFilters() entities.SearchFilters {
	return entities.SearchFilters{
		CategoryID: g.ExpectedCategoryID,
		MinPrice:   g.ExpectedMinPrice,
		MaxPrice:   g.ExpectedMaxPrice,
	}
}

// EvalResult holds the outcome for a single query
type EvalResult struct {
	QueryID      string              `json:"query_id"`
	Query        string              `json:"query"`
	Expected     entities.QueryType  `json:"expected_query_type"`
	Routed       entities.QueryType  `json:"routed_query_type"`
	Mode         entities.SearchMode `json:"mode"`
	RoutingMatch bool                `json:"routing_match"`
	FilterMatch  bool                `json:"filter_match"`
	RecallAt10   float64             `json:"recall_at_10"`
	MRRAt10      float64             `json:"mrr_at_10"`
	ResultCount  int                 `json:"result_count"`
	Latency      time.Duration       `json:"latency"`
	Error        string              `json:"error,omitempty"`
}

// EvalSummary aggregates results overall and per expected query type
type EvalSummary struct {
	TotalQueries    int                                 `json:"total_queries"`
	Failed          int                                 `json:"failed"`
	RoutingAccuracy float64                             `json:"routing_accuracy"`
	FilterAccuracy  float64                             `json:"filter_accuracy"`
	AvgRecallAt10   float64                             `json:"avg_recall_at_10"`
	AvgMRRAt10      float64                             `json:"avg_mrr_at_10"`
	AvgLatency      time.Duration                       `json:"avg_latency"`
	QueriesWithHits int                                 `json:"queries_with_hits"`
	ByQueryType     map[entities.QueryType]*TypeSummary `json:"by_query_type"`
	Results         []EvalResult                        `json:"results"`
}

// TypeSummary holds metrics for one expected query type
type TypeSummary struct {
	Count           int     `json:"count"`
	RoutingAccuracy float64 `json:"routing_accuracy"`
	AvgRecallAt10   float64 `json:"avg_recall_at_10"`
	AvgMRRAt10      float64 `json:"avg_mrr_at_10"`
}
