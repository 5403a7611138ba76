package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

type OllamaProvider struct {
	client         *api.Client
	chatModel      string
	embeddingModel string
}

func NewOllamaProvider(host, chatModel, embeddingModel string) (*OllamaProvider, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	uri, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama host: %w", err)
	}
	if chatModel == "" {
		chatModel = "llama3.2"
	}
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}

	return &OllamaProvider{
		client:         api.NewClient(uri, http.DefaultClient),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  p.chatModel,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	var sb strings.Builder
	err := p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  p.embeddingModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrNoEmbedding
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
