package entities

// ComparisonRequest asks to compare 2 to 5 books for a user.
type ComparisonRequest struct {
	UserID           string   `json:"-"`
	BookIDs          []string `json:"book_ids"`
	Query            string   `json:"query,omitempty"`
	Persona          string   `json:"persona,omitempty"`
	SelectedCriteria []string `json:"selected_criteria,omitempty"`
}

// HasContext reports whether any disambiguating input was supplied.
func (r ComparisonRequest) HasContext() bool {
	return r.Query != "" || r.Persona != "" || len(r.SelectedCriteria) > 0
}

// ComparisonResult is either a recommendation or a request for criteria.
type ComparisonResult struct {
	NeedsClarification bool                `json:"needs_clarification"`
	SuggestedCriteria  []string            `json:"suggested_criteria,omitempty"`
	RecommendedIndex   int                 `json:"recommended_index"`
	RecommendedItem    *Book               `json:"recommended_item,omitempty"`
	Reasons            []string            `json:"reasons,omitempty"`
	WhenToBuy          string              `json:"when_to_buy,omitempty"`
	IsUrgent           bool                `json:"is_urgent"`
	UrgencyReason      string              `json:"urgency_reason,omitempty"`
	PerItemStrengths   map[string][]string `json:"per_item_strengths,omitempty"`
	PerItemWeaknesses  map[string][]string `json:"per_item_weaknesses,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	GeneralAdvice      string              `json:"general_advice,omitempty"`
}
