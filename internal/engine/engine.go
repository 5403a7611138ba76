package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/extract"
	"github.com/jiwoo-ai/jiwoo/internal/intent"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/memory"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
	"github.com/jiwoo-ai/jiwoo/internal/prompt"
	"github.com/jiwoo-ai/jiwoo/internal/retrieval"
	"github.com/jiwoo-ai/jiwoo/internal/writeback"
)

// Error codes carried in Response.Error.
const (
	ErrCodeEmptyInput       = "empty_input"
	ErrCodeInsufficientData = "insufficient_data"
	ErrCodeCompletionFailed = "completion_failed"
)

const (
	pathText  = "text"
	pathGraph = "graph"
)

const (
	emptyInputText       = "질문을 입력해주세요."
	insufficientDataText = "차트를 만들 수 있는 수치 데이터를 찾지 못했습니다. 기간이나 대상을 더 구체적으로 알려주세요."
	completionFailedText = "지금은 답변을 생성하지 못했습니다. 잠시 후 다시 시도하거나 질문을 바꿔 보세요."
)

var chartNames = map[domain.ChartType]string{
	domain.ChartLine: "선",
	domain.ChartBar:  "막대",
	domain.ChartPie:  "원형",
}

type Options struct {
	TopK              int
	Threshold         float64
	Temperature       float32
	MaxAnswerTokens   int
	CompletionTimeout time.Duration
}

// Deps are the collaborators of an Engine. Persister may be nil to
// disable write-back.
type Deps struct {
	Completer llm.Completer
	Analyzer  *intent.Analyzer
	Queries   *intent.QueryGenerator
	Retriever *retrieval.Retriever
	Assembler *prompt.Assembler
	Memory    *memory.Service
	Extractor *extract.Pipeline
	Persister writeback.Persister
}

// Engine answers one user turn at a time.
type Engine struct {
	Deps
	opts Options
}

func New(deps Deps, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxAnswerTokens <= 0 {
		opts.MaxAnswerTokens = 1024
	}
	return &Engine{Deps: deps, opts: opts}
}

// Answer always returns a Response. Problems are reported through the
// Error code and a natural-language TextResponse, never as a Go error.
func (e *Engine) Answer(ctx context.Context, sessionID, userInput string) domain.Response {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		metrics.TurnsTotal.WithLabelValues(pathText, ErrCodeEmptyInput).Inc()
		return domain.Response{TextResponse: emptyInputText, Error: ErrCodeEmptyInput}
	}

	start := time.Now()
	in := e.Analyzer.Analyze(ctx, userInput)

	path := pathText
	var resp domain.Response
	if intent.IsGraphRequest(in, userInput) {
		path = pathGraph
		resp = e.answerGraph(ctx, userInput, in)
	} else {
		resp = e.answerText(ctx, sessionID, userInput, in)
	}

	status := "ok"
	if resp.Error != "" {
		status = resp.Error
	}
	metrics.TurnsTotal.WithLabelValues(path, status).Inc()
	metrics.TurnDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		slog.Warn("engine: turn cancelled, memory not updated", "session_id", sessionID, "error", ctx.Err())
		return resp
	}

	turn := domain.ConversationTurn{UserInput: userInput, Response: resp.TextResponse, CreatedAt: time.Now().UTC()}
	if err := e.Memory.Append(ctx, sessionID, turn); err != nil {
		slog.Error("engine: appending memory", "error", err, "session_id", sessionID)
	}

	slog.Info("answered turn",
		"session_id", sessionID,
		"path", path,
		"status", status,
		"evidence", len(resp.RelevantInfo),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp
}

// ClearSession drops the stored conversation for sessionID.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	if err := e.Memory.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clearing session %s: %w", sessionID, err)
	}
	return nil
}

func (e *Engine) answerText(ctx context.Context, sessionID, userInput string, in domain.IntentResult) domain.Response {
	queries := e.Queries.Generate(ctx, userInput, in)
	found := e.Retriever.Resolve(ctx, userInput, queries, e.opts.TopK, e.opts.Threshold)
	evidence := found.Evidence

	summary, err := e.Memory.Summary(ctx, sessionID)
	if err != nil {
		slog.Warn("engine: reading memory summary", "error", err, "session_id", sessionID)
		summary = ""
	}

	p := e.Assembler.Assemble(evidence, summary, userInput)

	cctx := ctx
	if e.opts.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, e.opts.CompletionTimeout)
		defer cancel()
	}
	answer, err := e.Completer.Complete(cctx, p, e.opts.Temperature, e.opts.MaxAnswerTokens)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = llm.ErrEmptyCompletion
	}
	if err != nil {
		metrics.CompletionFailuresTotal.WithLabelValues("answer").Inc()
		slog.Error("engine: answer completion failed", "error", err)
		return domain.Response{
			TextResponse: completionFailedText,
			RelevantInfo: relevant(evidence),
			Error:        ErrCodeCompletionFailed,
		}
	}
	answer = strings.TrimSpace(answer)

	if e.Persister != nil {
		if err := e.Persister.Persist(ctx, userInput, answer); err != nil {
			slog.Warn("engine: write-back failed", "error", err)
		}
	}

	return domain.Response{TextResponse: answer, RelevantInfo: relevant(evidence), RelatedSearches: found.Related}
}

func (e *Engine) answerGraph(ctx context.Context, userInput string, in domain.IntentResult) domain.Response {
	queries := e.Queries.Generate(ctx, userInput, in)
	evidence := e.Retriever.RetrieveExpanded(ctx, userInput, queries, e.opts.TopK, e.opts.Threshold)
	if retrieval.IsFallback(evidence) {
		return insufficient(nil)
	}

	points := e.Extractor.Extract(ctx, evidence, nil)
	if filtered := extract.FilterFields(points, in.Keywords); len(filtered) > 0 {
		points = filtered
	}

	classification := e.Extractor.ClassifyChart(ctx, userInput)
	chart, err := extract.BuildChart(points, classification, "")
	if errors.Is(err, extract.ErrInsufficientData) {
		return insufficient(evidence)
	}
	if err != nil {
		slog.Error("engine: building chart", "error", err)
		return insufficient(evidence)
	}

	text := fmt.Sprintf("요청하신 %s 데이터를 %s 차트로 정리했습니다. (데이터 %d건)",
		chart.Title, chartNames[chart.ChartType], len(chart.Series))
	return domain.Response{TextResponse: text, RelevantInfo: evidence, GraphData: chart}
}

func insufficient(evidence []domain.EvidenceItem) domain.Response {
	return domain.Response{
		TextResponse: insufficientDataText,
		RelevantInfo: relevant(evidence),
		Error:        ErrCodeInsufficientData,
	}
}

// relevant hides the synthetic fallback item from callers.
func relevant(evidence []domain.EvidenceItem) []domain.EvidenceItem {
	if len(evidence) == 0 || retrieval.IsFallback(evidence) {
		return nil
	}
	return evidence
}
