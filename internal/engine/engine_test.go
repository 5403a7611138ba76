package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/extract"
	"github.com/jiwoo-ai/jiwoo/internal/index"
	"github.com/jiwoo-ai/jiwoo/internal/intent"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/memory"
	"github.com/jiwoo-ai/jiwoo/internal/prompt"
	"github.com/jiwoo-ai/jiwoo/internal/retrieval"
	"github.com/jiwoo-ai/jiwoo/internal/websearch"
	"github.com/jiwoo-ai/jiwoo/internal/writeback"
)

type staticSearcher struct {
	results []websearch.Result
	related []string
}

func (s staticSearcher) Search(context.Context, string) ([]websearch.Result, error) {
	return s.results, nil
}

func (s staticSearcher) SearchWithRelated(context.Context, string) ([]websearch.Result, []string, error) {
	if len(s.results) == 0 {
		return nil, nil, nil
	}
	return s.results, s.related, nil
}

type spyPersister struct {
	mu    sync.Mutex
	turns []string
}

func (p *spyPersister) Persist(_ context.Context, userInput, response string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, userInput+"|"+response)
	return nil
}

func (p *spyPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.turns)
}

// script routes stub completions by the prompt they receive.
type script struct {
	intent   string
	queries  string
	extract  func(prompt string) string
	classify string
	answer   string
	answerEr error
}

func (s script) complete(_ context.Context, p string) (string, error) {
	switch {
	case strings.Contains(p, "사용자 의도를 분석"):
		return s.intent, nil
	case strings.Contains(p, "검색 쿼리를"):
		return s.queries, nil
	case strings.Contains(p, "수치 데이터를 추출"):
		if s.extract == nil {
			return "", nil
		}
		return s.extract(p), nil
	case strings.Contains(p, "차트 유형을"):
		return s.classify, nil
	case strings.Contains(p, "[참고 정보]"):
		return s.answer, s.answerEr
	}
	return "", errors.New("unexpected prompt")
}

type fixture struct {
	engine    *Engine
	stub      *llm.StubProvider
	memory    *memory.Service
	persister *spyPersister
}

func newFixture(t *testing.T, sc script, web []websearch.Result, related ...string) fixture {
	t.Helper()

	stub := llm.NewStubProvider(8)
	stub.CompleteFunc = sc.complete

	mem := memory.NewService(memory.NewInProcessStore(), llm.RuneTokenizer{}, 10, 500)
	persister := &spyPersister{}

	e := New(Deps{
		Completer: stub,
		Analyzer:  intent.NewAnalyzer(stub, time.Second),
		Queries:   intent.NewQueryGenerator(stub, 5, time.Second),
		Retriever: retrieval.New(stub, index.NewMemoryIndex(8), staticSearcher{results: web, related: related}, retrieval.Options{
			EmbedTimeout:  time.Second,
			SearchTimeout: time.Second,
		}),
		Assembler: prompt.NewAssembler(llm.RuneTokenizer{}, 14000),
		Memory:    mem,
		Extractor: extract.NewPipeline(stub, time.Second),
		Persister: persister,
	}, Options{TopK: 5, Threshold: 0.4, Temperature: 0.7, MaxAnswerTokens: 512})

	return fixture{engine: e, stub: stub, memory: mem, persister: persister}
}

func TestAnswer_TextPathFromWeb(t *testing.T) {
	f := newFixture(t, script{
		intent:  "카테고리: 정보 검색\n키워드: 스타트업, 투자",
		queries: "스타트업 투자 동향 2024\n국내 벤처 투자 현황",
		answer:  "최근 스타트업 투자는 AI 분야를 중심으로 회복세입니다.",
	}, []websearch.Result{
		{Title: "투자 동향", Link: "https://news.example/1", Snippet: "1분기 벤처 투자 2조원"},
		{Title: "AI 스타트업", Link: "https://news.example/2", Snippet: "AI 스타트업 투자 증가"},
	}, "벤처 투자 현황")

	resp := f.engine.Answer(context.Background(), "s1", "스타트업 투자 동향 알려줘")

	assert.Empty(t, resp.Error)
	assert.NotEmpty(t, resp.TextResponse)
	assert.Len(t, resp.RelevantInfo, 2)
	assert.Nil(t, resp.GraphData)
	assert.Equal(t, []string{"벤처 투자 현황"}, resp.RelatedSearches)
	assert.Equal(t, 1, f.persister.count())

	var answerPrompt string
	for _, p := range f.stub.Prompts() {
		if strings.Contains(p, "[참고 정보]") {
			answerPrompt = p
		}
	}
	assert.Contains(t, answerPrompt, "1분기 벤처 투자 2조원")
	assert.Contains(t, answerPrompt, "스타트업 투자 동향 알려줘")

	turns, err := f.memory.Turns(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, resp.TextResponse, turns[0].Response)
}

func TestAnswer_GraphPath(t *testing.T) {
	f := newFixture(t, script{
		intent:  "카테고리: visualization\n키워드: 매출, 5년",
		queries: "지우 매출 추이",
		extract: func(p string) string {
			for _, y := range []string{"2023", "2019", "2021", "2020", "2022"} {
				if strings.Contains(p, y+"년 매출") {
					return "기업: 지우, 분야: 매출, 수치: " + y[3:] + "0억원, 날짜: " + y
				}
			}
			return ""
		},
		classify: "line",
	}, []websearch.Result{
		{Title: "a", Link: "https://ir.example/2023", Snippet: "2023년 매출 발표"},
		{Title: "b", Link: "https://ir.example/2019", Snippet: "2019년 매출 발표"},
		{Title: "c", Link: "https://ir.example/2021", Snippet: "2021년 매출 발표"},
		{Title: "d", Link: "https://ir.example/2020", Snippet: "2020년 매출 발표"},
		{Title: "e", Link: "https://ir.example/2022", Snippet: "2022년 매출 발표"},
	})

	resp := f.engine.Answer(context.Background(), "s1", "최근 5년 매출 그래프 보여줘")

	require.NotNil(t, resp.GraphData)
	assert.Empty(t, resp.Error)
	assert.Equal(t, domain.ChartLine, resp.GraphData.ChartType)
	require.Len(t, resp.GraphData.Series, 5)
	for i := 1; i < len(resp.GraphData.Series); i++ {
		prev, cur := resp.GraphData.Series[i-1].Date, resp.GraphData.Series[i].Date
		require.NotNil(t, prev)
		require.NotNil(t, cur)
		assert.True(t, prev.Before(*cur))
	}
	assert.Equal(t, 2019, resp.GraphData.Series[0].Date.Year())
	assert.Len(t, resp.RelevantInfo, 5)
	assert.NotEmpty(t, resp.TextResponse)
	assert.Equal(t, 0, f.persister.count())
}

func TestAnswer_GraphInsufficientData(t *testing.T) {
	f := newFixture(t, script{
		intent:   "카테고리: visualization\n키워드: 매출",
		queries:  "매출",
		classify: "bar",
	}, []websearch.Result{
		{Title: "a", Link: "https://x.example", Snippet: "숫자가 없는 글"},
	})

	resp := f.engine.Answer(context.Background(), "s1", "매출 차트 그려줘")

	assert.Equal(t, ErrCodeInsufficientData, resp.Error)
	assert.Nil(t, resp.GraphData)
	assert.NotEmpty(t, resp.TextResponse)
}

func TestAnswer_GraphNothingFound(t *testing.T) {
	f := newFixture(t, script{
		intent:  "카테고리: visualization\n키워드: 매출",
		queries: "매출",
	}, nil)

	resp := f.engine.Answer(context.Background(), "s1", "매출 그래프")

	assert.Equal(t, ErrCodeInsufficientData, resp.Error)
	assert.Nil(t, resp.RelevantInfo)
}

func TestAnswer_FallbackHiddenFromCaller(t *testing.T) {
	f := newFixture(t, script{
		intent:  "카테고리: 정보\n키워드: 없음",
		queries: "아무것도",
		answer:  "관련 정보가 없습니다.",
	}, nil)

	resp := f.engine.Answer(context.Background(), "s1", "아무도 모르는 것")

	assert.Empty(t, resp.Error)
	assert.Nil(t, resp.RelevantInfo)
	assert.Equal(t, "관련 정보가 없습니다.", resp.TextResponse)
}

func TestAnswer_CompletionFailure(t *testing.T) {
	f := newFixture(t, script{
		intent:   "카테고리: 정보\n키워드: x",
		queries:  "x",
		answerEr: errors.New("provider exploded: secret-detail"),
	}, []websearch.Result{{Title: "t", Link: "https://a", Snippet: "s"}})

	resp := f.engine.Answer(context.Background(), "s1", "질문")

	assert.Equal(t, ErrCodeCompletionFailed, resp.Error)
	assert.NotContains(t, resp.TextResponse, "secret-detail")
	assert.NotEmpty(t, resp.TextResponse)
	assert.Equal(t, 0, f.persister.count())
}

func TestUserFacingTexts_NoApology(t *testing.T) {
	for _, text := range []string{emptyInputText, insufficientDataText, completionFailedText} {
		assert.False(t, strings.HasPrefix(text, "죄송"), text)
		assert.NotContains(t, text, "죄송합니다")
		assert.NotContains(t, strings.ToLower(text), "sorry")
	}
	assert.True(t, writeback.NewCache(nil, nil, 0).IsNonAnswer(completionFailedText))
}

func TestAnswer_EmptyInput(t *testing.T) {
	f := newFixture(t, script{}, nil)

	resp := f.engine.Answer(context.Background(), "s1", "   ")

	assert.Equal(t, ErrCodeEmptyInput, resp.Error)
	assert.NotEmpty(t, resp.TextResponse)
	assert.Empty(t, f.stub.Prompts())
}

func TestAnswer_CancelledContextSkipsMemory(t *testing.T) {
	f := newFixture(t, script{
		intent:  "카테고리: 정보\n키워드: x",
		queries: "x",
		answer:  "answer",
	}, []websearch.Result{{Title: "t", Link: "https://a", Snippet: "s"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := f.engine.Answer(ctx, "s1", "질문")
	assert.NotEmpty(t, resp.TextResponse)

	turns, err := f.memory.Turns(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAnswer_MemoryFeedsNextPrompt(t *testing.T) {
	f := newFixture(t, script{
		intent:  "카테고리: 정보\n키워드: x",
		queries: "x",
		answer:  "첫 번째 답변",
	}, []websearch.Result{{Title: "t", Link: "https://a", Snippet: "s"}})

	f.engine.Answer(context.Background(), "s1", "첫 질문")
	f.engine.Answer(context.Background(), "s1", "두 번째 질문")

	prompts := f.stub.Prompts()
	last := prompts[len(prompts)-1]
	assert.Contains(t, last, "[대화 요약]")
	assert.Contains(t, last, "User: 첫 질문\nAI: 첫 번째 답변")

	require.NoError(t, f.engine.ClearSession(context.Background(), "s1"))
	turns, err := f.memory.Turns(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
