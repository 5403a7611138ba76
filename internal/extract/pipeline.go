package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
)

var ErrInsufficientData = errors.New("no numeric data to chart")

const extractPrompt = `다음 텍스트에서 수치 데이터를 추출하세요.
데이터 하나당 한 줄로, 반드시 아래 형식만 사용하세요. 수치가 없으면 아무것도 쓰지 마세요.
기업: <기업 또는 대상>, 분야: <지표 이름>, 수치: <숫자와 단위>, 날짜: <연도 또는 날짜>

텍스트:
%s`

const classifyPrompt = `다음 요청에 가장 알맞은 차트 유형을 line, bar, pie 중 하나의 단어로만 답하세요.
시간에 따른 변화는 line, 항목 간 비교는 bar, 구성 비율은 pie 입니다.

요청: %s`

var shareTokens = []string{"점유율", "비율", "비중", "share", "percentage", "%"}

// Pipeline turns evidence into chart-ready data points.
type Pipeline struct {
	completer llm.Completer
	timeout   time.Duration
}

func NewPipeline(completer llm.Completer, timeout time.Duration) *Pipeline {
	return &Pipeline{completer: completer, timeout: timeout}
}

// Extract runs one completion per evidence item and parses the records.
// Items whose completion fails are skipped. When requestedFields is
// non-empty only points whose field contains one of them are kept.
func (p *Pipeline) Extract(ctx context.Context, evidence []domain.EvidenceItem, requestedFields []string) []domain.ExtractedDataPoint {
	var points []domain.ExtractedDataPoint
	for _, item := range domain.FilterEmpty(evidence) {
		if ctx.Err() != nil {
			break
		}

		text := item.Snippet
		if item.Title != "" {
			text = item.Title + "\n" + text
		}
		if item.Date != "" {
			text += "\n(작성일: " + item.Date + ")"
		}

		out, err := p.complete(ctx, fmt.Sprintf(extractPrompt, text), 0, 500)
		if err != nil {
			metrics.CompletionFailuresTotal.WithLabelValues("extract").Inc()
			slog.Warn("extract: completion failed", "error", err, "source", item.SourceURL)
			continue
		}
		points = append(points, ParseRecords(out)...)
	}

	points = FilterFields(points, requestedFields)
	SortByDate(points)
	return points
}

// ClassifyChart asks the model for a chart type and falls back to keyword
// rules when the answer is missing or unrecognised.
func (p *Pipeline) ClassifyChart(ctx context.Context, userInput string) string {
	out, err := p.complete(ctx, fmt.Sprintf(classifyPrompt, userInput), 0, 10)
	if err == nil {
		if c := parseChartAnswer(out); c != "" {
			return c
		}
	} else {
		metrics.CompletionFailuresTotal.WithLabelValues("classify").Inc()
		slog.Warn("extract: chart classification failed", "error", err)
	}
	return HeuristicChart(userInput)
}

func (p *Pipeline) complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.completer.Complete(ctx, prompt, temperature, maxTokens)
}

var (
	chartWordRe   = regexp.MustCompile(`\b(line|bar|pie)\b`)
	chartKoreanRe = regexp.MustCompile(`꺾은선|선\s*(?:그래프|차트)|막대|원형|파이`)
)

// parseChartAnswer reads the first chart name in a model answer. English
// names win over Korean ones and only whole words count.
func parseChartAnswer(out string) string {
	if m := chartWordRe.FindString(strings.ToLower(out)); m != "" {
		return m
	}
	switch m := chartKoreanRe.FindString(out); {
	case m == "":
		return ""
	case m == "막대":
		return string(domain.ChartBar)
	case m == "원형" || m == "파이":
		return string(domain.ChartPie)
	default:
		return string(domain.ChartLine)
	}
}

// HeuristicChart picks a chart type from words in the request.
func HeuristicChart(userInput string) string {
	lower := strings.ToLower(userInput)
	for _, kw := range []string{"추이", "트렌드", "변화", "성장", "년", "월별", "분기", "trend", "over time", "growth"} {
		if strings.Contains(lower, kw) {
			return string(domain.ChartLine)
		}
	}
	for _, kw := range shareTokens {
		if strings.Contains(lower, kw) {
			return string(domain.ChartPie)
		}
	}
	return string(domain.ChartBar)
}

// SelectChartType maps a classification and the data's field to a chart.
func SelectChartType(classification, field string) domain.ChartType {
	c := strings.ToLower(strings.TrimSpace(classification))
	if c == string(domain.ChartLine) {
		return domain.ChartLine
	}
	f := strings.ToLower(field)
	for _, tok := range shareTokens {
		if strings.Contains(f, tok) {
			return domain.ChartPie
		}
	}
	if c == string(domain.ChartPie) {
		return domain.ChartPie
	}
	return domain.ChartBar
}

// BuildChart assembles a chart from extracted points.
func BuildChart(points []domain.ExtractedDataPoint, classification, title string) (*domain.ChartSpec, error) {
	if len(points) == 0 {
		return nil, ErrInsufficientData
	}

	field := dominantField(points)
	if title == "" {
		title = field
		if unit := points[0].Unit; unit != "" {
			title = fmt.Sprintf("%s (%s)", field, unit)
		}
	}

	return &domain.ChartSpec{
		ChartType: SelectChartType(classification, field),
		Title:     title,
		Series:    points,
	}, nil
}

func dominantField(points []domain.ExtractedDataPoint) string {
	counts := map[string]int{}
	best := ""
	for _, p := range points {
		if p.Field == "" {
			continue
		}
		counts[p.Field]++
		if counts[p.Field] > counts[best] {
			best = p.Field
		}
	}
	return best
}

// FilterFields keeps points whose field contains one of fields,
// case-insensitively. An empty fields list keeps everything.
func FilterFields(points []domain.ExtractedDataPoint, fields []string) []domain.ExtractedDataPoint {
	if len(fields) == 0 {
		return points
	}
	out := make([]domain.ExtractedDataPoint, 0, len(points))
	for _, p := range points {
		f := strings.ToLower(p.Field)
		for _, want := range fields {
			if want = strings.ToLower(strings.TrimSpace(want)); want != "" && strings.Contains(f, want) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
