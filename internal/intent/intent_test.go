package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantCat string
		wantKws []string
	}{
		{"korean labels", "카테고리: 정보 검색\n키워드: 스타트업, 투자, 동향", "정보 검색", []string{"스타트업", "투자", "동향"}},
		{"english labels", "Category: visualization\nKeywords: revenue, 5 years", "visualization", []string{"revenue", "5 years"}},
		{"blank lines skipped", "\n\n카테고리: 날씨\n\n키워드: 서울", "날씨", []string{"서울"}},
		{"category only", "카테고리: 인사", "인사", nil},
		{"empty", "", CategoryUnknown, nil},
		{"missing value", "카테고리:\n키워드: a", CategoryUnknown, []string{"a"}},
		{"full width colon", "카테고리： 뉴스\n키워드： 경제,  금리", "뉴스", []string{"경제", "금리"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIntent(tt.in)
			assert.Equal(t, tt.wantCat, got.Category)
			assert.Equal(t, tt.wantKws, got.Keywords)
		})
	}
}

func TestAnalyzer_FailureYieldsUnknown(t *testing.T) {
	p := llm.NewStubProvider(1)
	p.CompleteFunc = func(context.Context, string) (string, error) {
		return "", errors.New("rate limited")
	}

	got := NewAnalyzer(p, 0).Analyze(context.Background(), "안녕")
	assert.Equal(t, CategoryUnknown, got.Category)
	assert.Empty(t, got.Keywords)
}

func TestAnalyzer_IncludesInput(t *testing.T) {
	p := llm.NewStubProvider(1)
	p.CompleteFunc = func(_ context.Context, prompt string) (string, error) {
		return "카테고리: 검색\n키워드: 투자", nil
	}

	got := NewAnalyzer(p, 0).Analyze(context.Background(), "스타트업 투자 동향 알려줘")
	assert.Equal(t, "검색", got.Category)
	assert.Contains(t, p.Prompts()[0], "스타트업 투자 동향 알려줘")
}

func TestParseQueries(t *testing.T) {
	text := "1. 스타트업 투자 2024\n\n- 벤처 캐피탈 동향\n* \"시리즈 A 투자\"\n4) 엔젤 투자\n5. 투자 규모\n6. 초과 쿼리"

	got := ParseQueries(text, 5)
	assert.Equal(t, []string{"스타트업 투자 2024", "벤처 캐피탈 동향", "시리즈 A 투자", "엔젤 투자", "투자 규모"}, got)
	assert.Empty(t, ParseQueries("\n  \n", 5))
}

func TestQueryGenerator_Generate(t *testing.T) {
	p := llm.NewStubProvider(1)
	p.CompleteFunc = func(_ context.Context, prompt string) (string, error) {
		return "q1\nq2\nq3", nil
	}

	g := NewQueryGenerator(p, 2, 0)
	got := g.Generate(context.Background(), "input", domain.IntentResult{Category: "c", Keywords: []string{"k1", "k2"}})
	assert.Equal(t, []string{"q1", "q2"}, got)
	assert.True(t, strings.Contains(p.Prompts()[0], "k1, k2"))
}

func TestQueryGenerator_KeywordsFallBackToInput(t *testing.T) {
	p := llm.NewStubProvider(1)
	g := NewQueryGenerator(p, 5, 0)
	g.Generate(context.Background(), "원본 질문", domain.IntentResult{Category: CategoryUnknown})
	assert.Contains(t, p.Prompts()[0], "키워드: 원본 질문")
}

func TestQueryGenerator_NeverEmpty(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string) (string, error)
	}{
		{"error", func(context.Context, string) (string, error) { return "", errors.New("down") }},
		{"blank output", func(context.Context, string) (string, error) { return "\n \n", nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := llm.NewStubProvider(1)
			p.CompleteFunc = tt.fn
			got := NewQueryGenerator(p, 5, 0).Generate(context.Background(), "원본", domain.IntentResult{})
			assert.Equal(t, []string{"원본"}, got)
		})
	}
}

func TestIsGraphRequest(t *testing.T) {
	tests := []struct {
		name  string
		cat   string
		input string
		want  bool
	}{
		{"visualization category", "visualization", "매출 알려줘", true},
		{"korean category", "시각화", "매출 알려줘", true},
		{"graph keyword", "정보", "최근 5년 매출 그래프 보여줘", true},
		{"chart english", "info", "Show me a revenue Chart", true},
		{"trend keyword", "정보", "금리 추이", true},
		{"plain question", "정보", "스타트업 투자 동향 알려줘", false},
		{"unknown", CategoryUnknown, "안녕", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGraphRequest(domain.IntentResult{Category: tt.cat}, tt.input))
		})
	}
}
