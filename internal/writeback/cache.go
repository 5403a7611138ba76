package writeback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/index"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
)

// DefaultMarkers are phrases that identify a non-answer. Responses
// containing any of them are never written back.
var DefaultMarkers = []string{
	"could not find",
	"no information",
	"정보가 없습니다",
	"찾을 수 없",
	"찾지 못했",
	"검색 결과가 없",
	"답변을 생성하지 못했",
}

// Persister receives completed turns for write-back.
type Persister interface {
	Persist(ctx context.Context, userInput, response string) error
}

// Cache stores good answers in the similarity index so later questions can
// be served from it.
type Cache struct {
	embedder     llm.Embedder
	index        index.Index
	markers      []string
	embedTimeout time.Duration
	now          func() time.Time
}

func NewCache(embedder llm.Embedder, idx index.Index, embedTimeout time.Duration) *Cache {
	return &Cache{
		embedder:     embedder,
		index:        idx,
		markers:      DefaultMarkers,
		embedTimeout: embedTimeout,
		now:          time.Now,
	}
}

// Persist implements Persister by writing the turn synchronously.
func (c *Cache) Persist(ctx context.Context, userInput, response string) error {
	c.MaybePersist(ctx, userInput, response)
	return nil
}

// IsNonAnswer reports whether response is empty or contains a marker.
func (c *Cache) IsNonAnswer(response string) bool {
	if strings.TrimSpace(response) == "" {
		return true
	}
	lower := strings.ToLower(response)
	for _, m := range c.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// MaybePersist embeds and inserts the turn unless the response is a
// non-answer. Failures are logged and swallowed. It reports whether a
// record was written.
func (c *Cache) MaybePersist(ctx context.Context, userInput, response string) bool {
	if c.IsNonAnswer(response) {
		metrics.WritebackTotal.WithLabelValues("skipped").Inc()
		slog.Debug("writeback: skipping non-answer")
		return false
	}

	content := fmt.Sprintf("User: %s\nAI: %s", userInput, response)

	embedCtx := ctx
	if c.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, c.embedTimeout)
		defer cancel()
	}
	vec, err := c.embedder.Embed(embedCtx, content)
	if err != nil {
		metrics.WritebackTotal.WithLabelValues("error").Inc()
		slog.Warn("writeback: embedding turn", "error", err)
		return false
	}

	rec := &domain.SearchRecord{
		Content:   content,
		URL:       "turn://" + uuid.NewString(),
		Embedding: vec,
		CreatedAt: c.now().Unix(),
	}
	id, err := c.index.Insert(ctx, rec)
	if err != nil {
		metrics.WritebackTotal.WithLabelValues("error").Inc()
		slog.Warn("writeback: inserting record", "error", err, "url", rec.URL)
		return false
	}

	metrics.WritebackTotal.WithLabelValues("stored").Inc()
	slog.Debug("writeback: stored turn", "id", id, "url", rec.URL)
	return true
}
