package handlers

import (
	"context"
	"net/http"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

const maxZeroResultLimit = 500

// ZeroResultSource lists searches that found nothing
type ZeroResultSource interface {
	GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
}

// AnalyticsHandler exposes search analytics to operators
type AnalyticsHandler struct {
	source ZeroResultSource
}

func NewAnalyticsHandler(source ZeroResultSource) *AnalyticsHandler {
	return &AnalyticsHandler{source: source}
}

// ZeroResultQueries handles GET /api/admin/search/zero-results?limit=
func (h *AnalyticsHandler) ZeroResultQueries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit <= 0 || limit > maxZeroResultLimit {
		respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	events, err := h.source.GetZeroResultQueries(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if events == nil {
		events = []*entities.SearchEvent{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": events,
		"count":   len(events),
	})
}
