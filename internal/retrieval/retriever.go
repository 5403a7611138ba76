package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/index"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
	"github.com/jiwoo-ai/jiwoo/internal/websearch"
)

// Synthetic result returned when neither the index nor the web has anything.
const (
	NoResultTitle   = "검색 결과 없음"
	NoResultSnippet = "요청하신 정보에 대한 검색 결과를 찾지 못했습니다."
)

const (
	sourceIndex    = "index"
	sourceWeb      = "web"
	sourceFallback = "fallback"
)

type Options struct {
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	WebLimit      int
}

// Retriever resolves a query to evidence: index first, then web search,
// then a single synthetic "nothing found" item. It never returns empty.
type Retriever struct {
	embedder llm.Embedder
	index    index.Index
	searcher websearch.Searcher
	opts     Options
}

// New builds a Retriever. searcher may be nil to disable the web step.
func New(embedder llm.Embedder, idx index.Index, searcher websearch.Searcher, opts Options) *Retriever {
	if opts.WebLimit <= 0 {
		opts.WebLimit = websearch.DefaultLimit
	}
	return &Retriever{embedder: embedder, index: idx, searcher: searcher, opts: opts}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int, threshold float64) []domain.EvidenceItem {
	return r.RetrieveExpanded(ctx, query, nil, k, threshold)
}

// Result is the evidence for a query plus the related queries the web
// step reported, if it ran.
type Result struct {
	Evidence []domain.EvidenceItem
	Related  []string
}

// RetrieveExpanded behaves like Retrieve, but the web step searches the
// expansions instead of the raw query when any are given.
func (r *Retriever) RetrieveExpanded(ctx context.Context, query string, expansions []string, k int, threshold float64) []domain.EvidenceItem {
	return r.Resolve(ctx, query, expansions, k, threshold).Evidence
}

// Resolve runs the fallback chain and keeps the web step's related queries.
func (r *Retriever) Resolve(ctx context.Context, query string, expansions []string, k int, threshold float64) Result {
	if items := r.fromIndex(ctx, query, k, threshold); len(items) > 0 {
		metrics.RetrievalSourceTotal.WithLabelValues(sourceIndex).Inc()
		return Result{Evidence: items}
	}

	queries := expansions
	if len(queries) == 0 {
		queries = []string{query}
	}
	items, related := r.fromWeb(ctx, queries)
	if len(items) > 0 {
		metrics.RetrievalSourceTotal.WithLabelValues(sourceWeb).Inc()
		return Result{Evidence: items, Related: related}
	}

	metrics.RetrievalSourceTotal.WithLabelValues(sourceFallback).Inc()
	return Result{Evidence: []domain.EvidenceItem{Fallback()}, Related: related}
}

func (r *Retriever) fromIndex(ctx context.Context, query string, k int, threshold float64) []domain.EvidenceItem {
	if r.embedder == nil || r.index == nil || k <= 0 {
		return nil
	}

	ectx, cancel := withTimeout(ctx, r.opts.EmbedTimeout)
	vec, err := r.embedder.Embed(ectx, query)
	cancel()
	if err != nil {
		slog.Warn("retrieval: embedding query failed", "error", err)
		return nil
	}

	hits, err := r.index.Search(ctx, vec, k)
	if err != nil {
		slog.Warn("retrieval: index search failed", "error", err)
		return nil
	}

	var items []domain.EvidenceItem
	for i, h := range FilterBySimilarity(hits, threshold) {
		if strings.TrimSpace(h.Record.Content) == "" {
			continue
		}
		items = append(items, domain.EvidenceItem{
			Title:     indexTitle(h.Record, i),
			Snippet:   h.Record.Content,
			SourceURL: h.Record.URL,
			Date:      formatEpoch(h.Record.CreatedAt),
		})
	}
	return items
}

func (r *Retriever) fromWeb(ctx context.Context, queries []string) ([]domain.EvidenceItem, []string) {
	if r.searcher == nil {
		return nil, nil
	}

	sctx, cancel := withTimeout(ctx, r.opts.SearchTimeout)
	defer cancel()

	results, related := websearch.MultiSearchRelated(sctx, r.searcher, queries, r.opts.WebLimit)
	items := make([]domain.EvidenceItem, 0, len(results))
	for _, res := range results {
		items = append(items, domain.EvidenceItem{
			Title:     res.Title,
			Snippet:   res.Snippet,
			SourceURL: res.Link,
			Date:      res.Date,
			ImageURL:  res.ImageURL,
		})
	}
	return domain.FilterEmpty(items), related
}

// Similarity converts an L2 distance into a score relative to the best hit:
// 1 - distance/max(best, 1). The best hit always scores 1 when best <= 1.
func Similarity(distance, best float64) float64 {
	return 1 - distance/math.Max(best, 1)
}

// FilterBySimilarity keeps hits whose relative similarity reaches threshold.
// hits must be ordered by ascending distance.
func FilterBySimilarity(hits []index.Hit, threshold float64) []index.Hit {
	if len(hits) == 0 {
		return nil
	}
	best := hits[0].Distance
	out := make([]index.Hit, 0, len(hits))
	for _, h := range hits {
		if Similarity(h.Distance, best) >= threshold {
			out = append(out, h)
		}
	}
	return out
}

// Fallback returns the synthetic no-result item.
func Fallback() domain.EvidenceItem {
	return domain.EvidenceItem{Title: NoResultTitle, Snippet: NoResultSnippet}
}

// IsFallback reports whether items is exactly the synthetic no-result answer.
func IsFallback(items []domain.EvidenceItem) bool {
	return len(items) == 1 && items[0].Title == NoResultTitle && items[0].Snippet == NoResultSnippet
}

func indexTitle(rec domain.SearchRecord, i int) string {
	if rec.URL != "" {
		return rec.URL
	}
	return fmt.Sprintf("저장된 정보 %d", i+1)
}

func formatEpoch(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format("2006-01-02")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
