package entities

import "time"

// QueryType is the retrieval strategy chosen for a free-text query.
type QueryType string

const (
	QueryTypeVector  QueryType = "VECTOR_SEARCH"
	QueryTypeKeyword QueryType = "KEYWORD_SEARCH"
)

// Valid reports whether q is one of the known strategies.
func (q QueryType) Valid() bool {
	return q == QueryTypeVector || q == QueryTypeKeyword
}

// SearchFilters are structured constraints extracted from a query. Nil fields are
// serialised as null and mean "no constraint".
type SearchFilters struct {
	CategoryID *string `json:"category_id"`
	MinPrice   *int64  `json:"min_price"`
	MaxPrice   *int64  `json:"max_price"`
}

// IsEmpty reports whether no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return f.CategoryID == nil && f.MinPrice == nil && f.MaxPrice == nil
}

// Classification is the routing decision for a search query.
type Classification struct {
	QueryType    QueryType     `json:"query_type"`
	CleanedQuery string        `json:"cleaned_query"`
	Filters      SearchFilters `json:"filters"`
	Fallback     bool          `json:"fallback,omitempty"`
}

// ConversationRole identifies the speaker of a turn.
type ConversationRole string

const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

// ConversationTurn is one message of a search conversation.
type ConversationTurn struct {
	Role      ConversationRole `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
}

// ConversationState is the ordered history plus an optional rolling summary.
type ConversationState struct {
	Turns   []ConversationTurn `json:"turns"`
	Summary string             `json:"summary,omitempty"`
}

// SearchDecision is the outcome of one conversational turn: either ask a question or search.
type SearchDecision struct {
	NeedsClarification bool   `json:"needs_clarification"`
	Question           string `json:"question,omitempty"`
	SimplifiedQuery    string `json:"simplified_query,omitempty"`
	Reason             string `json:"reason"`
	Fallback           bool   `json:"fallback,omitempty"`
}

// SearchMode records which retrieval path produced a result set.
type SearchMode string

const (
	SearchModeVector         SearchMode = "vector"
	SearchModeKeyword        SearchMode = "keyword"
	SearchModeVectorFallback SearchMode = "vector_fallback_keyword"
)

// SearchResult is returned by the catalog search endpoint.
type SearchResult struct {
	Classification Classification `json:"classification"`
	Books          []*Book        `json:"books"`
	Mode           SearchMode     `json:"mode"`
	TotalCount     int            `json:"total_count"`
}
