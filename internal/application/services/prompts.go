package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

func buildClassificationPrompt(query string, categories []*entities.Category) string {
	var vocab strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&vocab, "- %s: %s\n", c.ID, c.Name)
	}
	if vocab.Len() == 0 {
		vocab.WriteString("(no categories)\n")
	}

	return fmt.Sprintf(`Classify a bookstore search query.

Categories (id: name):
%s
Rules:
- KEYWORD_SEARCH when the query names a title, an author, an exact phrase or hard constraints such as a category or a price range.
- VECTOR_SEARCH when the query describes a mood, a theme, a plot or what the reader wants to feel.
- Put a category id in filters.categoryId only when the query clearly refers to one of the categories above.
- Prices are integers in the smallest currency unit. Use null when no bound is given.
- cleanedQuery keeps the searchable words and drops filler and the extracted constraints.

Query: %q

Return JSON: {"queryType":"VECTOR_SEARCH"|"KEYWORD_SEARCH","cleanedQuery":string,"filters":{"categoryId":string|null,"minPrice":number|null,"maxPrice":number|null}}`,
		vocab.String(), query)
}

func buildMeaningfulPrompt(query string) string {
	return fmt.Sprintf(`Decide whether this text is a real request to find books or information about books.
Reject spam, random characters, empty greetings and text without any searchable intent.

Text: %q

Return JSON: {"meaningful":true|false}`, query)
}

func buildConversationSummaryPrompt(transcript string) string {
	return fmt.Sprintf(`Summarize this bookstore conversation in one or two sentences.
Keep every book preference the customer stated: genres, authors, topics, budget, audience.

Conversation:
%s
Return only the summary text.`, transcript)
}

func buildSearchDecisionPrompt(userQuery, conversation, persona string) string {
	if conversation == "" {
		conversation = "(no previous messages)"
	}
	if persona == "" {
		persona = "(unknown)"
	}

	return fmt.Sprintf(`You help a customer find books. Decide whether to search now or to ask one clarifying question.

Policy:
- Search now whenever the customer shows any intent to find, buy or read something, or names any genre, author, topic, audience or criterion.
- Ask only when the customer is undecided or purely conversational: greetings, thanks, or open questions such as "what do you think".
- When searching, write simplifiedQuery as a short search string that merges the conversation context with the latest message.

Customer profile: %s
Conversation so far:
%s
Latest message: %q

Return JSON: {"needsClarification":true|false,"question":string,"simplifiedQuery":string,"reason":string}`,
		persona, conversation, userQuery)
}

func buildCriteriaPrompt(books []*entities.Book) string {
	return fmt.Sprintf(`A customer wants to compare these books but gave no preference.
Propose between 4 and 6 short comparison criteria that would help them choose.

Books:
%s
Return JSON: {"options":[string]}`, describeBooks(books))
}

func buildComparisonPrompt(books []*entities.Book, evidence map[string][]entities.EvidenceSnippet, req entities.ComparisonRequest, persona string) string {
	var ev strings.Builder
	for i, b := range books {
		fmt.Fprintf(&ev, "Book %d (%s) reader comments:\n", i, b.Title)
		snippets := evidence[b.ID]
		if len(snippets) == 0 {
			ev.WriteString("  (no comments)\n")
			continue
		}
		for _, s := range snippets {
			fmt.Fprintf(&ev, "  - [%d/5] %s: %s\n", s.Rating, s.Author, truncate(s.Text, 300))
		}
	}

	criteria := "(none)"
	if len(req.SelectedCriteria) > 0 {
		criteria = strings.Join(req.SelectedCriteria, ", ")
	}
	query := req.Query
	if query == "" {
		query = "(none)"
	}
	if persona == "" {
		persona = "(unknown)"
	}

	return fmt.Sprintf(`Compare these books and recommend exactly one for this customer.

Books (bookIndex starts at 0):
%s
%s
Customer profile: %s
Customer question: %s
Selected criteria: %s

Base the recommendation on the data and the comments. Strengths and weaknesses are keyed by book title.

Return JSON: {"bookIndex":number,"reasons":[string],"whenToBuy":string,"isUrgent":true|false,"urgencyReason":string,"strengths":{"<title>":[string]},"weaknesses":{"<title>":[string]},"summary":string,"generalAdvice":string}`,
		describeBooks(books), ev.String(), persona, query, criteria)
}

func buildPersonaPrompt(current, interaction string) string {
	if current == "" {
		current = "(empty)"
	}
	return fmt.Sprintf(`Maintain a short reading profile of a bookstore customer.

Current profile: %s
New interaction: %s

Rewrite the profile in at most three sentences. Keep stable preferences, add new evidence, drop nothing the customer said they like.
Return only the profile text.`, current, interaction)
}

// reportPromptPayload is the compact, aggregate-only view of a window sent to the model
type reportPromptPayload struct {
	PeriodDays   int                        `json:"period_days"`
	Metrics      entities.MarketMetrics     `json:"metrics"`
	Correlation  entities.CorrelationResult `json:"price_sales_correlation"`
	RatingImpact entities.RatingImpact      `json:"rating_impact"`
	TopBooks     []entities.BookAnalysis    `json:"top_books"`
	Patterns     []reportPromptPattern      `json:"patterns"`
	Insights     entities.AIInsights        `json:"statistical_insights"`
	Trends       []entities.TrendPoint      `json:"trends"`
	Reasons      []entities.ReasonShare     `json:"reason_distribution"`
}

type reportPromptPattern struct {
	Type        entities.PatternType `json:"type"`
	Description string               `json:"description"`
	Matches     int                  `json:"matches"`
	Confidence  float64              `json:"confidence"`
}

func buildReportPrompt(payload reportPromptPayload) string {
	data, _ := json.Marshal(payload)
	return fmt.Sprintf(`You are a bookstore business analyst. Explain the sales of the period using only these pre-computed statistics:

%s

Return JSON: {"summary":string,"salesTrends":string,"pricingInsights":string,"customerBehavior":string,"opportunities":string,"conclusion":string,"recommendations":[string],"bookReasons":{"<bookId>":string},"reasonDistribution":[{"reason":string,"count":number}]}`, data)
}

func describeBooks(books []*entities.Book) string {
	var b strings.Builder
	for i, book := range books {
		fmt.Fprintf(&b, "%d. %q by %s | category: %s | price: %d | rating: %.1f | sold: %d\n",
			i, book.Title, book.Author, book.CategoryName, book.Price, book.Rating, book.SalesCount)
		if book.Description != "" {
			fmt.Fprintf(&b, "   %s\n", truncate(book.Description, 240))
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}
