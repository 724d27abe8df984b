package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/utils"
)

const agentComponent = "conversation_agent"

// GenericClarifyingQuestion is asked when the model is unavailable and the message shows
// no search intent.
const GenericClarifyingQuestion = "What kind of book are you looking for? Tell me a genre, an author or a topic you enjoy."

// summarizeThreshold is the history length above which the history is summarized
const summarizeThreshold = 2

// actionKeywords mark a message as a search request when the model cannot decide.
var actionKeywords = []string{"tìm", "search", "cho tôi", "muốn", "đọc", "có"}

// ConversationalSearchAgent decides per turn whether to ask a clarifying question or to search.
type ConversationalSearchAgent struct {
	generator providers.TextGenerator
	metrics   *observability.Metrics
}

// NewConversationalSearchAgent creates a new agent
func NewConversationalSearchAgent(generator providers.TextGenerator, metrics *observability.Metrics) *ConversationalSearchAgent {
	return &ConversationalSearchAgent{generator: generator, metrics: metrics}
}

type searchDecisionResponse struct {
	NeedsClarification *bool  `json:"needsClarification"`
	Question           string `json:"question"`
	SimplifiedQuery    string `json:"simplifiedQuery"`
	Reason             string `json:"reason"`
}

// ProcessTurn returns ask or search for the latest user message. It never fails.
func (a *ConversationalSearchAgent) ProcessTurn(ctx context.Context, userQuery string, history []entities.ConversationTurn, persona string) entities.SearchDecision {
	return a.decide(ctx, strings.TrimSpace(userQuery), a.Summarize(ctx, history), persona)
}

// Advance runs one turn over state and appends the user message and the assistant reply
// to it. When the prior history exceeds two turns, state.Summary is replaced by the
// condensed history the decision was based on.
func (a *ConversationalSearchAgent) Advance(ctx context.Context, state *entities.ConversationState, message, persona string) entities.SearchDecision {
	message = strings.TrimSpace(message)

	conversation := a.Summarize(ctx, state.Turns)
	if len(state.Turns) > summarizeThreshold {
		state.Summary = conversation
	}
	decision := a.decide(ctx, message, conversation, persona)

	now := time.Now().UTC()
	state.Turns = append(state.Turns,
		entities.ConversationTurn{Role: entities.RoleUser, Content: message, Timestamp: now},
		entities.ConversationTurn{Role: entities.RoleAssistant, Content: assistantReply(decision), Timestamp: now},
	)
	return decision
}

func assistantReply(d entities.SearchDecision) string {
	if d.NeedsClarification {
		return d.Question
	}
	return "Searching for: " + d.SimplifiedQuery
}

func (a *ConversationalSearchAgent) decide(ctx context.Context, userQuery, conversation, persona string) entities.SearchDecision {
	logger := observability.LoggerFromContext(ctx)

	raw, err := a.generator.GenerateText(ctx, buildSearchDecisionPrompt(userQuery, conversation, persona))
	if err != nil {
		logger.Warn().Err(err).Str("component", agentComponent).Msg("decision call failed, using keyword fallback")
		observability.RecordFallback(ctx, a.metrics, agentComponent, "model_error")
		return FallbackDecision(userQuery)
	}

	var resp searchDecisionResponse
	if err := utils.DecodeModelResponse(raw, &resp); err != nil || resp.NeedsClarification == nil {
		logger.Warn().Str("component", agentComponent).Str("response", truncate(raw, 200)).Msg("unusable decision, using keyword fallback")
		observability.RecordFallback(ctx, a.metrics, agentComponent, "parse_error")
		return FallbackDecision(userQuery)
	}

	decision := entities.SearchDecision{
		NeedsClarification: *resp.NeedsClarification,
		Reason:             strings.TrimSpace(resp.Reason),
	}
	if decision.NeedsClarification {
		decision.Question = strings.TrimSpace(resp.Question)
		if decision.Question == "" {
			decision.Question = GenericClarifyingQuestion
		}
		return decision
	}

	decision.SimplifiedQuery = strings.TrimSpace(resp.SimplifiedQuery)
	if decision.SimplifiedQuery == "" {
		decision.SimplifiedQuery = userQuery
	}
	return decision
}

// FallbackDecision searches for the raw message when it contains an action keyword and
// asks the generic question otherwise.
func FallbackDecision(userQuery string) entities.SearchDecision {
	if HasActionIntent(userQuery) {
		return entities.SearchDecision{
			SimplifiedQuery: userQuery,
			Reason:          "action keyword detected",
			Fallback:        true,
		}
	}
	return entities.SearchDecision{
		NeedsClarification: true,
		Question:           GenericClarifyingQuestion,
		Reason:             "no search intent detected",
		Fallback:           true,
	}
}

// HasActionIntent reports whether text contains one of the action keywords
func HasActionIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Summarize returns the transcript verbatim for short histories and a model summary
// for longer ones. If the summary call fails, the most recent turns are kept verbatim.
func (a *ConversationalSearchAgent) Summarize(ctx context.Context, history []entities.ConversationTurn) string {
	if len(history) <= summarizeThreshold {
		return formatTurns(history)
	}

	raw, err := a.generator.GenerateText(ctx, buildConversationSummaryPrompt(formatTurns(history)))
	summary := strings.TrimSpace(utils.StripCodeFences(raw))
	if err != nil || summary == "" {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("component", agentComponent).Msg("summary failed, keeping recent turns")
		observability.RecordFallback(ctx, a.metrics, agentComponent, "summary_error")
		return formatTurns(history[len(history)-summarizeThreshold:])
	}
	return summary
}

func formatTurns(turns []entities.ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}
	return strings.Join(lines, "\n")
}
