package intent

import (
	"strings"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

var graphKeywords = []string{
	"그래프", "차트", "추이", "통계", "시각화", "도표",
	"graph", "chart", "trend", "statistics", "visualize", "visualization", "plot",
}

// IsGraphRequest reports whether the turn should produce a chart.
func IsGraphRequest(in domain.IntentResult, userInput string) bool {
	cat := strings.ToLower(strings.TrimSpace(in.Category))
	if cat == CategoryVisualization || cat == "시각화" {
		return true
	}

	lower := strings.ToLower(userInput)
	for _, kw := range graphKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
