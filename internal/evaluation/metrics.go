package evaluation

import "github.com/pagewise/bookstore/backend/internal/domain/entities"

func topK(retrieved []string, k int) []string {
	if k >= 0 && k < len(retrieved) {
		return retrieved[:k]
	}
	return retrieved
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// RecallAtK is the fraction of relevant ids found in the first k retrieved ids.
// It is 0 when relevant is empty.
func RecallAtK(relevant, retrieved []string, k int) float64 {
	if len(relevant) == 0 {
		return 0.0
	}
	want := toSet(relevant)

	found := 0
	for _, id := range topK(retrieved, k) {
		if _, ok := want[id]; ok {
			found++
			delete(want, id)
		}
	}
	return float64(found) / float64(len(relevant))
}

// MRRAtK is the reciprocal rank of the first relevant id within the first k, or 0.
func MRRAtK(relevant, retrieved []string, k int) float64 {
	if len(relevant) == 0 {
		return 0.0
	}
	want := toSet(relevant)

	for i, id := range topK(retrieved, k) {
		if _, ok := want[id]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}

// FiltersMatch compares extracted filters with the labeled ones, nil meaning absent
func FiltersMatch(expected, got entities.SearchFilters) bool {
	return eqPtr(expected.CategoryID, got.CategoryID) &&
		eqPtr(expected.MinPrice, got.MinPrice) &&
		eqPtr(expected.MaxPrice, got.MaxPrice)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
