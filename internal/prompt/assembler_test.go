package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
)

func evidence(n int) []domain.EvidenceItem {
	items := make([]domain.EvidenceItem, n)
	for i := range items {
		items[i] = domain.EvidenceItem{
			Title:     fmt.Sprintf("문서 %d", i),
			Snippet:   strings.Repeat("내용", 10+i),
			SourceURL: fmt.Sprintf("https://example.test/%d", i),
		}
	}
	return items
}

func count(s string) int {
	return llm.Count(llm.RuneTokenizer{}, s)
}

func TestAssemble_UnderBudget(t *testing.T) {
	a := NewAssembler(llm.RuneTokenizer{}, 100000)
	items := evidence(3)

	out := a.Assemble(items, "User: 안녕\nAI: 반갑습니다", "투자 동향은?")

	assert.Contains(t, out, EvidenceStart)
	assert.Contains(t, out, EvidenceEnd)
	assert.Contains(t, out, "[대화 요약]")
	assert.Contains(t, out, "User: 안녕")
	assert.True(t, strings.HasSuffix(out, "사용자: 투자 동향은?\nAI:"))
	for _, it := range items {
		assert.Contains(t, out, EvidenceLine(it))
	}
}

func TestAssemble_OmitsEmptySummaryAndSnippets(t *testing.T) {
	a := NewAssembler(llm.RuneTokenizer{}, 100000)
	out := a.Assemble([]domain.EvidenceItem{{Title: "blank", Snippet: " "}}, "", "q")

	assert.NotContains(t, out, "[대화 요약]")
	assert.NotContains(t, out, "blank")
}

func TestAssemble_KeepsLeadingWholeLines(t *testing.T) {
	items := evidence(5)
	big := NewAssembler(llm.RuneTokenizer{}, 100000)
	skeleton := count(big.Assemble(nil, "", "질문"))

	l0 := EvidenceLine(items[0])
	l1 := EvidenceLine(items[1])
	l2 := EvidenceLine(items[2])
	budget := skeleton + count(l0+"\n") + count(l1+"\n") + count(l2+"\n") - 1

	out := NewAssembler(llm.RuneTokenizer{}, budget).Assemble(items, "", "질문")

	assert.LessOrEqual(t, count(out), budget)
	assert.Contains(t, out, l0)
	assert.Contains(t, out, l1)
	assert.NotContains(t, out, l2)
	assert.NotContains(t, out, EvidenceLine(items[3]))
	assert.Contains(t, out, EvidenceStart)
	assert.Contains(t, out, "사용자: 질문")
}

func TestAssemble_DropsBlockWhenNoRoom(t *testing.T) {
	items := evidence(3)
	big := NewAssembler(llm.RuneTokenizer{}, 100000)
	skeleton := count(big.Assemble(nil, "", "질문"))

	out := NewAssembler(llm.RuneTokenizer{}, skeleton-1).Assemble(items, "", "질문")

	assert.LessOrEqual(t, count(out), skeleton-1)
	assert.NotContains(t, out, EvidenceStart)
	assert.NotContains(t, out, EvidenceEnd)
	assert.Contains(t, out, "사용자: 질문")
}

func TestAssemble_TruncatesOversizedInput(t *testing.T) {
	const budget = 50
	a := NewAssembler(llm.RuneTokenizer{}, budget)

	out := a.Assemble(evidence(2), strings.Repeat("요약", 100), strings.Repeat("아주 긴 질문 ", 100))
	assert.Equal(t, budget, count(out))
}

func TestAssemble_NeverExceedsBudget(t *testing.T) {
	items := evidence(8)
	full := count(NewAssembler(llm.RuneTokenizer{}, 1<<30).Assemble(items, "User: a\nAI: b", "질문입니다"))

	for budget := 1; budget <= full+10; budget += 7 {
		out := NewAssembler(llm.RuneTokenizer{}, budget).Assemble(items, "User: a\nAI: b", "질문입니다")
		require.LessOrEqual(t, count(out), budget, "budget %d", budget)
	}
}

func TestFit_WithoutMarkers(t *testing.T) {
	a := NewAssembler(llm.RuneTokenizer{}, 5)
	assert.Equal(t, "short", a.Fit("short"))
	assert.Equal(t, "abcde", a.Fit("abcdefghij"))
}

func TestEvidenceLine(t *testing.T) {
	line := EvidenceLine(domain.EvidenceItem{
		Title:     "제목",
		Snippet:   "여러\n줄의   내용",
		SourceURL: "https://a.test",
		Date:      "2024-05-01",
	})
	assert.Equal(t, "- 제목: 여러 줄의 내용 (https://a.test, 2024-05-01)", line)
	assert.Equal(t, "- 본문", EvidenceLine(domain.EvidenceItem{Snippet: "본문"}))
}
