package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
}

func NewGeminiProvider(ctx context.Context, apiKey, chatModel, embeddingModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	if chatModel == "" {
		chatModel = "gemini-1.5-flash"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-004"
	}

	return &GeminiProvider{
		client:         client,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	model := p.client.GenerativeModel(p.chatModel)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	em := p.client.EmbeddingModel(p.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrNoEmbedding
	}
	return res.Embedding.Values, nil
}

// Close releases the underlying gRPC connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
