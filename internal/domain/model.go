package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Size limits for records stored in the similarity index.
const (
	MaxContentBytes = 64 * 1024
	MaxURLBytes     = 1024
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrRecordTooLarge    = errors.New("record exceeds size limit")
)

// EvidenceItem is a piece of retrieved information offered to the model.
type EvidenceItem struct {
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	SourceURL string `json:"link,omitempty"`
	Date      string `json:"date,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// FilterEmpty drops items whose snippet is blank.
func FilterEmpty(items []EvidenceItem) []EvidenceItem {
	out := make([]EvidenceItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Snippet) == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// ConversationTurn is one user input and the answer given to it.
type ConversationTurn struct {
	UserInput string    `json:"user_input"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// IntentResult is the classification of a single user input.
type IntentResult struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// SearchRecord is a row of the similarity index.
type SearchRecord struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Embedding []float32 `json:"-"`
	CreatedAt int64     `json:"created_at"`
}

// Validate checks the record against the index dimension and the size limits.
func (r *SearchRecord) Validate(dim int) error {
	if len(r.Embedding) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(r.Embedding), dim)
	}
	if len(r.Content) > MaxContentBytes {
		return fmt.Errorf("%w: content is %d bytes", ErrRecordTooLarge, len(r.Content))
	}
	if len(r.URL) > MaxURLBytes {
		return fmt.Errorf("%w: url is %d bytes", ErrRecordTooLarge, len(r.URL))
	}
	return nil
}

// ExtractedDataPoint is one numeric fact pulled out of evidence text.
type ExtractedDataPoint struct {
	Name  string     `json:"name"`
	Value float64    `json:"value"`
	Unit  string     `json:"unit"`
	Field string     `json:"field"`
	Date  *time.Time `json:"date,omitempty"`
}

type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
	ChartPie  ChartType = "pie"
)

// ChartSpec is the renderer-agnostic description of a chart.
type ChartSpec struct {
	ChartType ChartType            `json:"chart_type"`
	Title     string               `json:"title"`
	Series    []ExtractedDataPoint `json:"series"`
}

// Response is the answer to a single user turn.
type Response struct {
	TextResponse string         `json:"text_response"`
	RelevantInfo []EvidenceItem `json:"relevant_info"`
	GraphData    *ChartSpec     `json:"graph_data,omitempty"`
	// RelatedSearches are follow-up queries suggested by web search.
	RelatedSearches []string `json:"related_searches,omitempty"`
	Error           string   `json:"error,omitempty"`
}
