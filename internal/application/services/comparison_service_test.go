package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

// stubEvidence returns fixed evidence and counts calls
type stubEvidence struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubEvidence) RetrieveEvidence(ctx context.Context, bookIDs []string, query string, perItemLimit int) (map[string][]entities.EvidenceSnippet, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string][]entities.EvidenceSnippet, len(bookIDs))
	for _, id := range bookIDs {
		out[id] = []entities.EvidenceSnippet{{Rating: 5, Text: "comment on " + id, Author: "r"}}
	}
	return out, nil
}

// stubPersonas records scheduled updates
type stubPersonas struct {
	mu        sync.Mutex
	persona   string
	scheduled []string
}

func (s *stubPersonas) Persona(ctx context.Context, userID string) string {
	return s.persona
}

func (s *stubPersonas) ScheduleUpdate(userID, interaction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, interaction)
}

func testBooks(ids ...string) []*entities.Book {
	out := make([]*entities.Book, 0, len(ids))
	for _, id := range ids {
		out = append(out, &entities.Book{ID: id, Title: "Title " + id, Author: "Author", CategoryName: "Fiction", Price: 100000, Rating: 4.2})
	}
	return out
}

func TestComparisonService_RejectsInvalidSizeBeforeAnyCall(t *testing.T) {
	for _, ids := range [][]string{{"a"}, {"a", "b", "c", "d", "e", "f"}, {}} {
		books := new(MockBookRepository)
		gen := new(MockTextGenerator)
		ev := &stubEvidence{}
		svc := services.NewComparisonService(books, ev, gen, nil, 5, nil)

		_, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: ids, Query: "q"})

		require.Error(t, err, ids)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), ids)
		assert.ErrorIs(t, err, services.ErrInvalidComparisonSize)
		books.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
		gen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
		assert.Zero(t, ev.calls)
	}
}

func TestValidateComparisonIDs_Duplicates(t *testing.T) {
	err := services.ValidateComparisonIDs([]string{"a", "b", "a"})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.ErrorIs(t, err, services.ErrDuplicateComparisonItem)
	assert.NotErrorIs(t, err, services.ErrInvalidComparisonSize)

	assert.NoError(t, services.ValidateComparisonIDs([]string{"a", "b"}))
}

func TestComparisonService_MissingBookIsNotFound(t *testing.T) {
	books := new(MockBookRepository)
	books.On("GetByIDs", mock.Anything, []string{"a", "b"}).Return(testBooks("a"), nil)
	svc := services.NewComparisonService(books, &stubEvidence{}, new(MockTextGenerator), nil, 5, nil)

	_, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: []string{"a", "b"}, Query: "q"})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestComparisonService_NoContextAsksForCriteria(t *testing.T) {
	t.Run("model criteria capped at six", func(t *testing.T) {
		books := new(MockBookRepository)
		books.On("GetByIDs", mock.Anything, []string{"a", "b"}).Return(testBooks("a", "b"), nil)
		gen := new(MockTextGenerator)
		gen.On("GenerateText", mock.Anything, promptWith(criteriaPrompt)).
			Return(`{"options":["price","length","style","audience","theme","author","awards"]}`, nil)
		ev := &stubEvidence{}
		svc := services.NewComparisonService(books, ev, gen, nil, 5, nil)

		got, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: []string{"a", "b"}})

		require.NoError(t, err)
		assert.True(t, got.NeedsClarification)
		assert.Len(t, got.SuggestedCriteria, 6)
		assert.Nil(t, got.RecommendedItem)
		assert.Zero(t, ev.calls, "no evidence is retrieved before criteria are chosen")
	})

	t.Run("model failure yields default criteria", func(t *testing.T) {
		books := new(MockBookRepository)
		books.On("GetByIDs", mock.Anything, []string{"a", "b"}).Return(testBooks("a", "b"), nil)
		gen := new(MockTextGenerator)
		gen.On("GenerateText", mock.Anything, promptWith(criteriaPrompt)).Return("", errors.New("down"))
		svc := services.NewComparisonService(books, &stubEvidence{}, gen, &stubPersonas{}, 5, nil)

		got, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: []string{"a", "b"}, UserID: "u1"})

		require.NoError(t, err)
		assert.True(t, got.NeedsClarification)
		assert.Equal(t, services.DefaultComparisonCriteria, got.SuggestedCriteria)
	})

	for name, raw := range map[string]string{
		"missing options":  `Here you go: {"criteria":["price"]}`,
		"null options":     `{"options":null}`,
		"blank options":    `{"options":["", "  ", 7]}`,
		"not json at all":  `price, theme`,
		"unbalanced block": `{"options":["price"]`,
	} {
		t.Run(name, func(t *testing.T) {
			books := new(MockBookRepository)
			books.On("GetByIDs", mock.Anything, []string{"a", "b"}).Return(testBooks("a", "b"), nil)
			gen := new(MockTextGenerator)
			gen.On("GenerateText", mock.Anything, promptWith(criteriaPrompt)).Return(raw, nil)
			svc := services.NewComparisonService(books, &stubEvidence{}, gen, nil, 5, nil)

			got, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: []string{"a", "b"}})

			require.NoError(t, err)
			assert.True(t, got.NeedsClarification)
			assert.Equal(t, services.DefaultComparisonCriteria, got.SuggestedCriteria)
		})
	}
}

func TestComparisonService_StoredPersonaCountsAsContext(t *testing.T) {
	books := new(MockBookRepository)
	books.On("GetByIDs", mock.Anything, []string{"a", "b"}).Return(testBooks("a", "b"), nil)
	gen := new(MockTextGenerator)
	gen.On("GenerateText", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, comparePrompt) && strings.Contains(p, "reads thrillers")
	})).Return(`{"bookIndex":0,"reasons":["fast paced"]}`, nil)
	personas := &stubPersonas{persona: "reads thrillers"}
	svc := services.NewComparisonService(books, &stubEvidence{}, gen, personas, 5, nil)

	got, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: []string{"a", "b"}, UserID: "u1"})

	require.NoError(t, err)
	assert.False(t, got.NeedsClarification)
	assert.Equal(t, "a", got.RecommendedItem.ID)
}

func TestComparisonService_Recommendation(t *testing.T) {
	books := new(MockBookRepository)
	books.On("GetByIDs", mock.Anything, []string{"a", "b", "c"}).Return(testBooks("a", "b", "c"), nil)
	gen := new(MockTextGenerator)
	gen.On("GenerateText", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, comparePrompt) && strings.Contains(p, "comment on c")
	})).Return("```json\n"+`{"bookIndex":2,"reasons":["cheapest","best reviews"],"whenToBuy":"now","isUrgent":true,"urgencyReason":"sale ends","strengths":{"Title c":["value"]},"weaknesses":{"Title a":["long"]},"summary":"pick c","generalAdvice":"read samples"}`+"\n```", nil)
	ev := &stubEvidence{}
	personas := &stubPersonas{}
	svc := services.NewComparisonService(books, ev, gen, personas, 5, nil)

	got, err := svc.Compare(context.Background(), entities.ComparisonRequest{
		UserID:           "u1",
		BookIDs:          []string{"a", "b", "c"},
		SelectedCriteria: []string{"price"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, got.RecommendedIndex)
	assert.Equal(t, "c", got.RecommendedItem.ID)
	assert.Equal(t, []string{"cheapest", "best reviews"}, got.Reasons)
	assert.True(t, got.IsUrgent)
	assert.Equal(t, []string{"value"}, got.PerItemStrengths["Title c"])
	assert.Equal(t, 1, ev.calls)
	require.Len(t, personas.scheduled, 1)
	assert.Contains(t, personas.scheduled[0], "Cared about: price")
}

func TestComparisonService_BadAnswers(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		genErr  error
		wantErr error
	}{
		{"unparseable", "I recommend the second one", nil, services.ErrComparisonUnparseable},
		{"missing index", `{"reasons":["x"]}`, nil, services.ErrComparisonUnparseable},
		{"model error", "", errors.New("down"), services.ErrComparisonUnparseable},
		{"index out of range", `{"bookIndex":2}`, nil, services.ErrRecommendedIndexOutOfRange},
		{"negative index", `{"bookIndex":-1}`, nil, services.ErrRecommendedIndexOutOfRange},
		{"fractional index", `{"bookIndex":0.5}`, nil, services.ErrRecommendedIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := new(MockBookRepository)
			books.On("GetByIDs", mock.Anything, []string{"a", "b"}).Return(testBooks("a", "b"), nil)
			gen := new(MockTextGenerator)
			gen.On("GenerateText", mock.Anything, promptWith(comparePrompt)).Return(tt.answer, tt.genErr)
			personas := &stubPersonas{}
			svc := services.NewComparisonService(books, &stubEvidence{}, gen, personas, 5, nil)

			got, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: []string{"a", "b"}, Query: "which one?"})

			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, personas.scheduled)
		})
	}
}

func TestComparisonService_EvidenceFailureIsInternal(t *testing.T) {
	books := new(MockBookRepository)
	books.On("GetByIDs", mock.Anything, []string{"a", "b"}).Return(testBooks("a", "b"), nil)
	svc := services.NewComparisonService(books, &stubEvidence{err: errors.New("db down")}, new(MockTextGenerator), nil, 5, nil)

	_, err := svc.Compare(context.Background(), entities.ComparisonRequest{BookIDs: []string{"a", "b"}, Query: "q"})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
