package llm

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwoo-ai/jiwoo/internal/config"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, config.LLMConfig{Provider: "openai", APIKey: "sk-test"}, 768)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(ctx, config.LLMConfig{Provider: "ollama", OllamaHost: "http://localhost:11434"}, 768)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(ctx, config.LLMConfig{Provider: "openai"}, 768)
	assert.Error(t, err)

	_, err = NewProvider(ctx, config.LLMConfig{Provider: "unknown"}, 768)
	assert.Error(t, err)
}

func TestRuneTokenizer_RoundTrip(t *testing.T) {
	var tok RuneTokenizer
	text := "매출 추이 chart"

	tokens := tok.Encode(text)
	assert.Len(t, tokens, len([]rune(text)))
	assert.Equal(t, text, tok.Decode(tokens))
	assert.Equal(t, "매출", tok.Decode(tokens[:2]))
	assert.Equal(t, 0, Count(tok, ""))
}

func TestByteTokenizer_BoundsTiktoken(t *testing.T) {
	tik, err := NewTiktokenTokenizer("cl100k_base")
	require.NoError(t, err)

	for _, text := range []string{
		"스타트업 투자 동향을 알려주세요",
		"최근 5년 매출 그래프 보여줘",
		"plain ascii text",
		"혼합 mixed 텍스트 123",
	} {
		assert.GreaterOrEqual(t, Count(ByteTokenizer{}, text), Count(tik, text), text)
	}
}

func TestByteTokenizer_DecodeDropsSplitRune(t *testing.T) {
	var tok ByteTokenizer
	enc := tok.Encode("가나")
	require.Len(t, enc, 6)
	assert.Equal(t, "가나", tok.Decode(enc))
	assert.Equal(t, "가", tok.Decode(enc[:4]))
	assert.True(t, utf8.ValidString(tok.Decode(enc[:5])))
}

func TestStubProvider_EmbedDeterministic(t *testing.T) {
	s := NewStubProvider(8)
	ctx := context.Background()

	a, err := s.Embed(ctx, "hello")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "hello")
	require.NoError(t, err)
	c, err := s.Embed(ctx, "world")
	require.NoError(t, err)

	assert.Len(t, a, 8)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, []string{"hello", "hello", "world"}, s.Embedded())
}

func TestStubProvider_CompleteFunc(t *testing.T) {
	s := NewStubProvider(4)
	s.CompleteFunc = func(_ context.Context, prompt string) (string, error) {
		if prompt == "fail" {
			return "", errors.New("boom")
		}
		return "echo: " + prompt, nil
	}

	out, err := s.Complete(context.Background(), "hi", 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)

	_, err = s.Complete(context.Background(), "fail", 0.5, 10)
	assert.Error(t, err)
	assert.Equal(t, []string{"hi", "fail"}, s.Prompts())
}

func TestStubProvider_CancelledContext(t *testing.T) {
	s := NewStubProvider(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Complete(ctx, "hi", 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Embed(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}
