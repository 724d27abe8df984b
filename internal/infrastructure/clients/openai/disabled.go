package openai

import (
	"context"
	"errors"

	"github.com/pagewise/bookstore/backend/internal/domain/providers"
)

// ErrNotConfigured is returned by every Disabled call
var ErrNotConfigured = errors.New("openai client not configured")

// Disabled stands in for Client when no API key is set. Every call fails, so callers
// take their keyword and statistics-only fallbacks.
type Disabled struct{}

var (
	_ providers.TextGenerator     = Disabled{}
	_ providers.EmbeddingProvider = Disabled{}
)

func (Disabled) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrNotConfigured
}
