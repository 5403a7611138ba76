package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
)

const (
	CategoryUnknown       = "unknown"
	CategoryVisualization = "visualization"
)

const analyzePrompt = `당신은 사용자 의도를 분석하는 AI 어시스턴트입니다.
다음 사용자 입력의 의도를 분류하고 관련 키워드를 제공하세요.
사용자가 차트, 그래프, 추이, 통계 등 시각화를 원하면 카테고리를 visualization 으로 답하세요.
반드시 아래 두 줄 형식으로만 답하세요.
카테고리: <카테고리>
키워드: <키워드1>, <키워드2>, ...

사용자 입력: %s`

// Analyzer classifies user input into a category and keywords.
type Analyzer struct {
	completer llm.Completer
	timeout   time.Duration
}

func NewAnalyzer(completer llm.Completer, timeout time.Duration) *Analyzer {
	return &Analyzer{completer: completer, timeout: timeout}
}

// Analyze never fails: any completion or parse problem yields the unknown category.
func (a *Analyzer) Analyze(ctx context.Context, userInput string) domain.IntentResult {
	cctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.completer.Complete(cctx, fmt.Sprintf(analyzePrompt, userInput), 0.3, 100)
	if err != nil {
		metrics.CompletionFailuresTotal.WithLabelValues("intent").Inc()
		slog.Warn("intent: analysis failed", "error", err)
		return domain.IntentResult{Category: CategoryUnknown}
	}
	return ParseIntent(out)
}

// ParseIntent reads "label: category" on the first non-blank line and
// "label: kw1, kw2" on the second.
func ParseIntent(text string) domain.IntentResult {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return domain.IntentResult{Category: CategoryUnknown}
	}

	res := domain.IntentResult{Category: afterLabel(lines[0])}
	if res.Category == "" {
		res.Category = CategoryUnknown
	}

	if len(lines) > 1 {
		for _, kw := range strings.Split(afterLabel(lines[1]), ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				res.Keywords = append(res.Keywords, kw)
			}
		}
	}
	return res
}

func afterLabel(line string) string {
	line = strings.ReplaceAll(line, "：", ":")
	if i := strings.LastIndex(line, ":"); i >= 0 {
		line = line[i+1:]
	}
	return strings.Trim(strings.TrimSpace(line), "*\"'")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
