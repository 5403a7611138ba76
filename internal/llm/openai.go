package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	dimension      int
}

// NewOpenAIProvider talks to the OpenAI API, or to any compatible server when baseURL is set.
func NewOpenAIProvider(apiKey, baseURL, chatModel, embeddingModel string, dimension int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}

	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(cfg),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimension:      dimension,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.embeddingModel),
	}
	// Only the text-embedding-3 family accepts a reduced output size.
	if strings.HasPrefix(p.embeddingModel, "text-embedding-3") && p.dimension > 0 {
		req.Dimensions = p.dimension
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoEmbedding
	}
	return resp.Data[0].Embedding, nil
}
