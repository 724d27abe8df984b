package entities

import "time"

// Comment is a customer review of a book, used as comparison evidence.
type Comment struct {
	ID         string    `json:"id" db:"id"`
	BookID     string    `json:"book_id" db:"book_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	Rating     int       `json:"rating" db:"rating"` // 1-5
	Text       string    `json:"text" db:"text"`
	IsDisabled bool      `json:"is_disabled" db:"is_disabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// EvidenceSnippet is a comment retrieved to support a comparison. RelevanceScore is
// nil when the snippet came from the rating/recency fallback ranking.
type EvidenceSnippet struct {
	Rating         int       `json:"rating"`
	Text           string    `json:"text"`
	Author         string    `json:"author"`
	Date           time.Time `json:"date"`
	RelevanceScore *float64  `json:"relevance_score"`
}

// SnippetFromComment converts a stored comment without a relevance score.
func SnippetFromComment(c *Comment) EvidenceSnippet {
	return EvidenceSnippet{
		Rating: c.Rating,
		Text:   c.Text,
		Author: c.AuthorName,
		Date:   c.CreatedAt,
	}
}
