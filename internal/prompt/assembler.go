package prompt

import (
	"fmt"
	"strings"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
)

// Markers delimiting the evidence block inside a prompt.
const (
	EvidenceStart = "--- CONTEXT START ---"
	EvidenceEnd   = "--- CONTEXT END ---"
)

const instruction = `다음 참고 정보와 이전 대화 요약을 바탕으로 사용자의 질문에 한국어로 답하세요.
필요한 경우 추가 정보를 제공하고, 구체적인 단계나 예시를 들어 설명해주세요.
참고 정보에 답이 없으면 지어내지 말고 정보가 없다고 답하세요.`

// Assembler builds prompts that never exceed a token budget.
type Assembler struct {
	tokenizer llm.Tokenizer
	maxTokens int
}

func NewAssembler(tokenizer llm.Tokenizer, maxTokens int) *Assembler {
	return &Assembler{tokenizer: tokenizer, maxTokens: maxTokens}
}

func (a *Assembler) MaxTokens() int {
	return a.maxTokens
}

// Assemble renders the prompt for one turn and fits it to the budget.
func (a *Assembler) Assemble(evidence []domain.EvidenceItem, memorySummary, userInput string) string {
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\n")

	if s := strings.TrimSpace(memorySummary); s != "" {
		sb.WriteString("[대화 요약]\n")
		sb.WriteString(s)
		sb.WriteString("\n\n")
	}

	sb.WriteString("[참고 정보]\n")
	sb.WriteString(EvidenceStart)
	sb.WriteString("\n")
	for _, item := range domain.FilterEmpty(evidence) {
		sb.WriteString(EvidenceLine(item))
		sb.WriteString("\n")
	}
	sb.WriteString(EvidenceEnd)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "사용자: %s\nAI:", userInput)

	out := a.Fit(sb.String())
	metrics.PromptTokens.Observe(float64(llm.Count(a.tokenizer, out)))
	return out
}

// EvidenceLine renders one evidence item on a single line.
func EvidenceLine(item domain.EvidenceItem) string {
	line := "- "
	if item.Title != "" {
		line += item.Title + ": "
	}
	line += flatten(item.Snippet)

	var meta []string
	if item.SourceURL != "" {
		meta = append(meta, item.SourceURL)
	}
	if item.Date != "" {
		meta = append(meta, item.Date)
	}
	if len(meta) > 0 {
		line += " (" + strings.Join(meta, ", ") + ")"
	}
	return line
}

// Fit reduces prompt to at most maxTokens tokens. Evidence lines are dropped
// from the end first; if the rest of the prompt alone is too long the
// evidence block is removed and the text is truncated at the token level.
func (a *Assembler) Fit(prompt string) string {
	if a.count(prompt) <= a.maxTokens {
		return prompt
	}

	if reduced, ok := a.shrinkEvidence(prompt); ok {
		prompt = reduced
		if a.count(prompt) <= a.maxTokens {
			return prompt
		}
	}

	return a.truncate(prompt)
}

func (a *Assembler) shrinkEvidence(prompt string) (string, bool) {
	s := strings.Index(prompt, EvidenceStart)
	if s < 0 {
		return "", false
	}
	bodyStart := s + len(EvidenceStart)
	rel := strings.Index(prompt[bodyStart:], EvidenceEnd)
	if rel < 0 {
		return "", false
	}
	e := bodyStart + rel

	prefix := prompt[:bodyStart] + "\n"
	suffix := prompt[e:]
	lines := splitLines(prompt[bodyStart:e])

	available := a.maxTokens - a.count(prefix+suffix)
	if available <= 0 {
		return prompt[:s] + strings.TrimLeft(prompt[e+len(EvidenceEnd):], "\n"), true
	}

	used := 0
	kept := 0
	for _, l := range lines {
		cost := a.count(l + "\n")
		if used+cost > available {
			break
		}
		used += cost
		kept++
	}

	// Token counts are not strictly additive across line joins.
	for ; kept >= 0; kept-- {
		candidate := render(prefix, lines[:kept], suffix)
		if a.count(candidate) <= a.maxTokens || kept == 0 {
			return candidate, true
		}
	}
	return render(prefix, nil, suffix), true
}

func (a *Assembler) truncate(prompt string) string {
	tokens := a.tokenizer.Encode(prompt)
	n := a.maxTokens
	if n < 0 {
		n = 0
	}
	if n > len(tokens) {
		n = len(tokens)
	}
	for ; n > 0; n-- {
		out := a.tokenizer.Decode(tokens[:n])
		if a.count(out) <= a.maxTokens {
			return out
		}
	}
	return ""
}

func (a *Assembler) count(s string) int {
	return llm.Count(a.tokenizer, s)
}

func render(prefix string, lines []string, suffix string) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString(suffix)
	return sb.String()
}

func splitLines(body string) []string {
	var out []string
	for _, l := range strings.Split(body, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
