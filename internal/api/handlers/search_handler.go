package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
)

// CatalogSearcher is the catalog search endpoint
type CatalogSearcher interface {
	Classify(ctx context.Context, query string) entities.Classification
	Search(ctx context.Context, query string, opts services.SearchOptions) (*entities.SearchResult, error)
}

// SearchAgent decides between asking and searching
type SearchAgent interface {
	Advance(ctx context.Context, state *entities.ConversationState, message, persona string) entities.SearchDecision
}

// SearchHandler handles catalog search requests
type SearchHandler struct {
	search   CatalogSearcher
	agent    SearchAgent
	personas services.PersonaUpdater
}

// NewSearchHandler creates a new search handler. personas may be nil.
func NewSearchHandler(search CatalogSearcher, agent SearchAgent, personas services.PersonaUpdater) *SearchHandler {
	return &SearchHandler{search: search, agent: agent, personas: personas}
}

// Search handles GET /api/search?q=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "q is required")
		return
	}

	result, err := h.search.Search(r.Context(), query, services.SearchOptions{
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	h.rememberSearch(r, query)
	respondWithJSON(w, http.StatusOK, result)
}

type classifyRequest struct {
	Query string `json:"query"`
}

// Classify handles POST /api/search/classify
func (h *SearchHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondWithJSON(w, http.StatusOK, h.search.Classify(r.Context(), req.Query))
}

type conversationRequest struct {
	Message      string                     `json:"message"`
	Conversation entities.ConversationState `json:"conversation"`
	Persona      string                     `json:"persona"`
}

type conversationResponse struct {
	Decision     entities.SearchDecision    `json:"decision"`
	Conversation entities.ConversationState `json:"conversation"`
	Results      *entities.SearchResult     `json:"results,omitempty"`
}

// Converse handles POST /api/search/conversation. The client sends back the conversation
// returned by the previous call. When the agent decides to search, the search runs
// immediately on the simplified query.
func (h *SearchHandler) Converse(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}

	persona := req.Persona
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if persona == "" && userID != "" && h.personas != nil {
		persona = h.personas.Persona(r.Context(), userID)
	}

	state := req.Conversation
	decision := h.agent.Advance(r.Context(), &state, req.Message, persona)
	resp := conversationResponse{Decision: decision, Conversation: state}

	if !decision.NeedsClarification {
		result, err := h.search.Search(r.Context(), decision.SimplifiedQuery, services.SearchOptions{})
		if err != nil {
			observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("conversation search failed")
		} else {
			resp.Results = result
		}
		h.rememberSearch(r, decision.SimplifiedQuery)
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *SearchHandler) rememberSearch(r *http.Request, query string) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if h.personas == nil || userID == "" {
		return
	}
	h.personas.ScheduleUpdate(userID, "Searched the catalog for: "+query)
}
