package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadGoldenQueries reads and parses a golden query set from a JSON file.
func LoadGoldenQueries(path string) ([]GoldenQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden queries file: %w", err)
	}

	var queries []GoldenQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse golden queries: %w", err)
	}

	return queries, nil
}

// ValidateGoldenQueries checks ids, query text, the expected route and price bounds.
func ValidateGoldenQueries(queries []GoldenQuery) error {
	seen := make(map[string]struct{}, len(queries))

	for i, q := range queries {
		if q.ID == "" {
			return fmt.Errorf("query at index %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("query at index %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = struct{}{}

		if q.Query == "" {
			return fmt.Errorf("query %q: missing query text", q.ID)
		}
		if !q.ExpectedQueryType.Valid() {
			return fmt.Errorf("query %q: invalid expected_query_type %q", q.ID, q.ExpectedQueryType)
		}
		if q.ExpectedMinPrice != nil && q.ExpectedMaxPrice != nil && *q.ExpectedMinPrice > *q.ExpectedMaxPrice {
			return fmt.Errorf("query %q: expected_min_price exceeds expected_max_price", q.ID)
		}
	}

	return nil
}
