package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jiwoo-ai/jiwoo/internal/config"
)

var (
	ErrEmptyCompletion = errors.New("completion returned no text")
	ErrNoEmbedding     = errors.New("no embedding returned")
)

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Provider is a model backend offering both completion and embedding.
type Provider interface {
	Completer
	Embedder
	Name() string
}

// NewProvider builds the backend selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig, dimension int) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.ChatModel, cfg.EmbeddingModel, dimension)
	case "ollama":
		return NewOllamaProvider(cfg.OllamaHost, cfg.ChatModel, cfg.EmbeddingModel)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.ChatModel, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
