package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
)

// Comparer recommends one book out of several
type Comparer interface {
	Compare(ctx context.Context, req entities.ComparisonRequest) (*entities.ComparisonResult, error)
}

// CompareHandler handles book comparison requests
type CompareHandler struct {
	comparer Comparer
}

// NewCompareHandler creates a new compare handler
func NewCompareHandler(comparer Comparer) *CompareHandler {
	return &CompareHandler{comparer: comparer}
}

type compareResponse struct {
	Success bool                       `json:"success"`
	Data    *entities.ComparisonResult `json:"data,omitempty"`
	Message string                     `json:"message,omitempty"`
}

// Compare handles POST /api/compare
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req entities.ComparisonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = strings.TrimSpace(r.Header.Get(UserIDHeader))

	result, err := h.comparer.Compare(r.Context(), req)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, compareResponse{Success: true, Data: result})
	case errors.Is(err, services.ErrComparisonUnparseable):
		respondWithJSON(w, http.StatusOK, compareResponse{Success: false, Message: services.ErrComparisonUnparseable.Error()})
	case errors.Is(err, services.ErrRecommendedIndexOutOfRange):
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("comparison produced an invalid recommendation")
		respondWithJSON(w, http.StatusOK, compareResponse{Success: false, Message: services.ErrComparisonUnparseable.Error()})
	default:
		respondWithAppError(w, r, err)
	}
}
