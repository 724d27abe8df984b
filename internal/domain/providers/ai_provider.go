package providers

import (
	"context"
	"errors"
)

// ErrAIUnauthorized indicates the model provider rejected the configured credentials.
var ErrAIUnauthorized = errors.New("ai provider unauthorized")

// TextGenerator is a single-turn generative model. Callers must handle both an error
// and a response that does not match the requested JSON shape.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// EmbeddingProvider turns text into a fixed-dimension vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
