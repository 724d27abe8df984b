package evaluation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

func TestLoadGoldenQueries_ValidFile(t *testing.T) {
	content := `[
		{"id": "q1", "query": "sách kinh dị dưới 100k", "expected_query_type": "KEYWORD_SEARCH", "expected_category_id": "horror", "expected_max_price": 100000, "relevant_book_ids": ["b3"]},
		{"id": "q2", "query": "a sad story about growing up", "expected_query_type": "VECTOR_SEARCH", "relevant_book_ids": ["b1", "b9"]}
	]`
	path := writeTempFile(t, content)

	queries, err := LoadGoldenQueries(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	if queries[0].ExpectedQueryType != entities.QueryTypeKeyword {
		t.Errorf("expected KEYWORD_SEARCH, got %s", queries[0].ExpectedQueryType)
	}
	if queries[0].ExpectedMaxPrice == nil || *queries[0].ExpectedMaxPrice != 100000 {
		t.Errorf("expected max price 100000, got %v", queries[0].ExpectedMaxPrice)
	}
	if queries[0].ExpectedMinPrice != nil {
		t.Errorf("expected no min price, got %v", *queries[0].ExpectedMinPrice)
	}
	if len(queries[1].RelevantBookIDs) != 2 {
		t.Errorf("expected 2 relevant books, got %d", len(queries[1].RelevantBookIDs))
	}
}

func TestLoadGoldenQueries_InvalidFile(t *testing.T) {
	_, err := LoadGoldenQueries("/nonexistent/path.json")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadGoldenQueries_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, `not valid json`)
	_, err := LoadGoldenQueries(path)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestValidateGoldenQueries(t *testing.T) {
	low, high := int64(200000), int64(100000)

	tests := []struct {
		name    string
		queries []GoldenQuery
		wantErr bool
	}{
		{"valid", []GoldenQuery{
			{ID: "q1", Query: "dune", ExpectedQueryType: entities.QueryTypeKeyword},
			{ID: "q2", Query: "books like dune", ExpectedQueryType: entities.QueryTypeVector},
		}, false},
		{"missing id", []GoldenQuery{{Query: "dune", ExpectedQueryType: entities.QueryTypeKeyword}}, true},
		{"duplicate id", []GoldenQuery{
			{ID: "q1", Query: "dune", ExpectedQueryType: entities.QueryTypeKeyword},
			{ID: "q1", Query: "emma", ExpectedQueryType: entities.QueryTypeKeyword},
		}, true},
		{"missing query", []GoldenQuery{{ID: "q1", ExpectedQueryType: entities.QueryTypeKeyword}}, true},
		{"bad route", []GoldenQuery{{ID: "q1", Query: "dune", ExpectedQueryType: "HYBRID"}}, true},
		{"inverted prices", []GoldenQuery{{ID: "q1", Query: "dune", ExpectedQueryType: entities.QueryTypeKeyword,
			ExpectedMinPrice: &low, ExpectedMaxPrice: &high}}, true},
	}

	for _, tt := range tests {
		err := ValidateGoldenQueries(tt.queries)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
