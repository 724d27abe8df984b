package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
	"github.com/pagewise/bookstore/backend/pkg/utils"
)

const (
	comparisonComponent = "comparison"

	MinComparisonItems = 2
	MaxComparisonItems = 5

	maxSuggestedCriteria = 6
)

// DefaultComparisonCriteria are offered when the model cannot propose criteria
var DefaultComparisonCriteria = []string{
	"Price and value for money",
	"Fit for the intended reader",
	"Reading difficulty and time commitment",
	"Theme and subject matter",
}

// ComparisonService recommends one of 2 to 5 books using their metadata, reader
// comments and the user's profile.
type ComparisonService struct {
	books        repositories.BookRepository
	evidence     EvidenceSource
	generator    providers.TextGenerator
	personas     PersonaUpdater
	commentLimit int
	metrics      *observability.Metrics
}

// NewComparisonService creates a new comparison service. personas may be nil.
func NewComparisonService(
	books repositories.BookRepository,
	evidence EvidenceSource,
	generator providers.TextGenerator,
	personas PersonaUpdater,
	commentLimit int,
	metrics *observability.Metrics,
) *ComparisonService {
	if commentLimit <= 0 {
		commentLimit = DefaultEvidenceLimit
	}
	return &ComparisonService{
		books:        books,
		evidence:     evidence,
		generator:    generator,
		personas:     personas,
		commentLimit: commentLimit,
		metrics:      metrics,
	}
}

type comparisonResponse struct {
	BookIndex     *float64            `json:"bookIndex"`
	Reasons       []string            `json:"reasons"`
	WhenToBuy     string              `json:"whenToBuy"`
	IsUrgent      bool                `json:"isUrgent"`
	UrgencyReason string              `json:"urgencyReason"`
	Strengths     map[string][]string `json:"strengths"`
	Weaknesses    map[string][]string `json:"weaknesses"`
	Summary       string              `json:"summary"`
	GeneralAdvice string              `json:"generalAdvice"`
}

// ValidateComparisonIDs rejects sizes outside 2..5 and duplicate ids
func ValidateComparisonIDs(ids []string) error {
	if len(ids) < MinComparisonItems || len(ids) > MaxComparisonItems {
		return apperrors.NewValidationErrorWrap(
			fmt.Sprintf("compare needs %d to %d books, got %d", MinComparisonItems, MaxComparisonItems, len(ids)),
			ErrInvalidComparisonSize,
		)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return apperrors.NewValidationError("book id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return apperrors.NewValidationErrorWrap(fmt.Sprintf("book %s is listed twice", id), ErrDuplicateComparisonItem)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Compare asks for criteria when no context is available and otherwise evaluates the books.
func (s *ComparisonService) Compare(ctx context.Context, req entities.ComparisonRequest) (*entities.ComparisonResult, error) {
	if err := ValidateComparisonIDs(req.BookIDs); err != nil {
		return nil, err
	}

	books, err := s.books.GetByIDs(ctx, req.BookIDs)
	if err != nil {
		return nil, err
	}
	if len(books) != len(req.BookIDs) {
		return nil, apperrors.NewNotFoundError("one or more books to compare were not found")
	}

	if req.Persona == "" && s.personas != nil {
		req.Persona = s.personas.Persona(ctx, req.UserID)
	}

	if !req.HasContext() {
		return &entities.ComparisonResult{
			NeedsClarification: true,
			SuggestedCriteria:  s.suggestCriteria(ctx, books),
		}, nil
	}

	result, err := s.evaluate(ctx, books, req)
	if err != nil {
		return nil, err
	}

	if s.personas != nil {
		s.personas.ScheduleUpdate(req.UserID, describeComparison(books, req, result))
	}
	return result, nil
}

func (s *ComparisonService) suggestCriteria(ctx context.Context, books []*entities.Book) []string {
	raw, err := s.generator.GenerateText(ctx, buildCriteriaPrompt(books))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("component", comparisonComponent).Msg("criteria call failed, using default criteria")
		observability.RecordFallback(ctx, s.metrics, comparisonComponent, "criteria_model_error")
		return defaultCriteria()
	}

	resp, ok := utils.ParseModelResponse(raw, []string{"options"}, map[string]any{"options": DefaultComparisonCriteria})
	if !ok {
		observability.RecordFallback(ctx, s.metrics, comparisonComponent, "criteria_parse_error")
		return defaultCriteria()
	}

	options := utils.StringList(resp["options"])
	if len(options) == 0 {
		return defaultCriteria()
	}
	if len(options) > maxSuggestedCriteria {
		options = options[:maxSuggestedCriteria]
	}
	return options
}

func defaultCriteria() []string {
	return append([]string(nil), DefaultComparisonCriteria...)
}

func (s *ComparisonService) evaluate(ctx context.Context, books []*entities.Book, req entities.ComparisonRequest) (*entities.ComparisonResult, error) {
	logger := observability.LoggerFromContext(ctx)

	evidence, err := s.evidence.RetrieveEvidence(ctx, req.BookIDs, req.Query, s.commentLimit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load comparison evidence", err)
	}

	raw, err := s.generator.GenerateText(ctx, buildComparisonPrompt(books, evidence, req, req.Persona))
	if err != nil {
		logger.Warn().Err(err).Str("component", comparisonComponent).Msg("comparison call failed")
		return nil, apperrors.NewExternalError("comparison model call failed", ErrComparisonUnparseable)
	}

	var resp comparisonResponse
	if err := utils.DecodeModelResponse(raw, &resp); err != nil || resp.BookIndex == nil {
		logger.Warn().Str("component", comparisonComponent).Str("response", truncate(raw, 200)).Msg("unparseable comparison answer")
		return nil, apperrors.NewExternalError("comparison answer could not be parsed", ErrComparisonUnparseable)
	}

	idx := *resp.BookIndex
	if idx != math.Trunc(idx) || idx < 0 || int(idx) >= len(books) {
		logger.Error().Float64("book_index", idx).Int("books", len(books)).Msg("model recommended a book outside the comparison")
		return nil, apperrors.NewInternalError(fmt.Sprintf("recommended index %v with %d books", idx, len(books)), ErrRecommendedIndexOutOfRange)
	}

	reasons := resp.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	return &entities.ComparisonResult{
		RecommendedIndex:  int(idx),
		RecommendedItem:   books[int(idx)],
		Reasons:           reasons,
		WhenToBuy:         resp.WhenToBuy,
		IsUrgent:          resp.IsUrgent,
		UrgencyReason:     resp.UrgencyReason,
		PerItemStrengths:  resp.Strengths,
		PerItemWeaknesses: resp.Weaknesses,
		Summary:           resp.Summary,
		GeneralAdvice:     resp.GeneralAdvice,
	}, nil
}

func describeComparison(books []*entities.Book, req entities.ComparisonRequest, result *entities.ComparisonResult) string {
	titles := make([]string, 0, len(books))
	for _, b := range books {
		titles = append(titles, fmt.Sprintf("%q (%s)", b.Title, b.CategoryName))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Compared %s.", strings.Join(titles, ", "))
	if req.Query != "" {
		fmt.Fprintf(&b, " Asked: %q.", req.Query)
	}
	if len(req.SelectedCriteria) > 0 {
		fmt.Fprintf(&b, " Cared about: %s.", strings.Join(req.SelectedCriteria, ", "))
	}
	if result != nil && result.RecommendedItem != nil {
		fmt.Fprintf(&b, " Recommended: %q.", result.RecommendedItem.Title)
	}
	return b.String()
}
