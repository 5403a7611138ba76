package intent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
)

const queriesPrompt = `당신은 사용자 입력과 의도 분석을 바탕으로 검색 쿼리를 생성하는 AI 어시스턴트입니다.
다음 내용을 바탕으로 웹 검색에 사용할 검색 쿼리를 %d개 생성하세요.
한 줄에 하나의 쿼리만 쓰고 다른 설명은 쓰지 마세요.

입력: %s
의도: %s
키워드: %s`

var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// QueryGenerator expands user input into several search queries.
type QueryGenerator struct {
	completer  llm.Completer
	maxQueries int
	timeout    time.Duration
}

func NewQueryGenerator(completer llm.Completer, maxQueries int, timeout time.Duration) *QueryGenerator {
	if maxQueries <= 0 {
		maxQueries = 5
	}
	return &QueryGenerator{completer: completer, maxQueries: maxQueries, timeout: timeout}
}

// Generate always returns at least one query; the raw input is used when
// the model fails or produces nothing usable.
func (g *QueryGenerator) Generate(ctx context.Context, userInput string, in domain.IntentResult) []string {
	keywords := strings.Join(in.Keywords, ", ")
	if keywords == "" {
		keywords = userInput
	}

	cctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(queriesPrompt, g.maxQueries, userInput, in.Category, keywords)
	out, err := g.completer.Complete(cctx, prompt, 0.7, 200)
	if err != nil {
		metrics.CompletionFailuresTotal.WithLabelValues("queries").Inc()
		slog.Warn("intent: query generation failed", "error", err)
		return []string{userInput}
	}

	queries := ParseQueries(out, g.maxQueries)
	if len(queries) == 0 {
		return []string{userInput}
	}
	return queries
}

// ParseQueries splits completion output into at most max trimmed,
// non-empty queries, stripping list numbering and surrounding quotes.
func ParseQueries(text string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), "\"'")
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
