package company

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/index"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
)

// DefaultLimit is the number of similar companies returned.
const DefaultLimit = 5

const urlScheme = "company://"

// Directory stores company profiles in their own index and finds
// companies with similar profiles.
type Directory struct {
	embedder     llm.Embedder
	index        index.Index
	embedTimeout time.Duration
	now          func() time.Time
}

func NewDirectory(embedder llm.Embedder, idx index.Index, embedTimeout time.Duration) *Directory {
	return &Directory{embedder: embedder, index: idx, embedTimeout: embedTimeout, now: time.Now}
}

// Insert embeds c's profile and stores c as JSON. The name is kept in the
// record URL as company://<escaped name>.
func (d *Directory) Insert(ctx context.Context, c Company) (int64, error) {
	vec, err := d.embed(ctx, c.Info)
	if err != nil {
		return 0, err
	}

	content, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("encoding company %s: %w", c.BusinessName, err)
	}

	rec := &domain.SearchRecord{
		Content:   string(content),
		URL:       urlScheme + url.PathEscape(c.BusinessName),
		Embedding: vec,
		CreatedAt: d.now().Unix(),
	}
	id, err := d.index.Insert(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("inserting company %s: %w", c.BusinessName, err)
	}
	return id, nil
}

// Similar returns up to limit stored companies nearest to info, closest
// first. The score is 1 - L2 distance, floored at 0.
func (d *Directory) Similar(ctx context.Context, info Info, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vec, err := d.embed(ctx, info)
	if err != nil {
		return nil, err
	}

	hits, err := d.index.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("searching companies: %w", err)
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		var c Company
		if err := json.Unmarshal([]byte(h.Record.Content), &c); err != nil {
			slog.Warn("company: skipping malformed record", "id", h.Record.ID, "error", err)
			continue
		}
		matches = append(matches, Match{
			BusinessName:    c.BusinessName,
			Info:            c.Info,
			SimilarityScore: math.Max(0, 1-h.Distance),
		})
	}
	return matches, nil
}

func (d *Directory) embed(ctx context.Context, info Info) ([]float32, error) {
	if d.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.embedTimeout)
		defer cancel()
	}
	vec, err := d.embedder.Embed(ctx, info.Text())
	if err != nil {
		return nil, fmt.Errorf("embedding company profile: %w", err)
	}
	return vec, nil
}
