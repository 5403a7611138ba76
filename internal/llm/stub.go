package llm

import (
	"context"
	"hash/fnv"
	"sync"
)

// StubProvider is a scriptable provider for tests and offline runs.
// CompleteFunc and EmbedFunc override the defaults when set.
type StubProvider struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
	EmbedFunc    func(ctx context.Context, text string) ([]float32, error)
	Dimension    int

	mu      sync.Mutex
	prompts []string
	embeds  []string
}

func NewStubProvider(dimension int) *StubProvider {
	return &StubProvider{Dimension: dimension}
}

func (s *StubProvider) Name() string {
	return "stub"
}

func (s *StubProvider) Complete(ctx context.Context, prompt string, _ float32, _ int) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.CompleteFunc != nil {
		return s.CompleteFunc(ctx, prompt)
	}
	return "stub answer", nil
}

// Embed returns a deterministic vector derived from the text hash.
func (s *StubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.embeds = append(s.embeds, text)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.EmbedFunc != nil {
		return s.EmbedFunc(ctx, text)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, s.Dimension)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed>>40) / float32(1<<24)
	}
	return vec, nil
}

// Prompts returns every prompt passed to Complete so far.
func (s *StubProvider) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Embedded returns every text passed to Embed so far.
func (s *StubProvider) Embedded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.embeds...)
}
