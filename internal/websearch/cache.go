package websearch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jiwoo-ai/jiwoo/internal/metrics"
)

// CachedSearcher memoizes non-empty search results in Redis.
// Cache failures never fail the search.
type CachedSearcher struct {
	next   Searcher
	client redis.Cmdable
	ttl    time.Duration
}

func NewCachedSearcher(next Searcher, client redis.Cmdable, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{next: next, client: client, ttl: ttl}
}

func cacheKey(query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return "websearch:" + hex.EncodeToString(sum[:])
}

// cacheEntry is the stored form of one query's results.
type cacheEntry struct {
	Organic []Result `json:"organic"`
	Related []string `json:"related,omitempty"`
}

func (c *CachedSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	results, _, err := c.SearchWithRelated(ctx, query)
	return results, err
}

// SearchWithRelated serves both organic results and related queries from the
// cache. Related queries are empty when the wrapped searcher has none.
func (c *CachedSearcher) SearchWithRelated(ctx context.Context, query string) ([]Result, []string, error) {
	key := cacheKey(query)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cacheEntry
		if jerr := json.Unmarshal(raw, &cached); jerr == nil {
			metrics.WebSearchCacheTotal.WithLabelValues("hit").Inc()
			return cached.Organic, cached.Related, nil
		}
		slog.Warn("websearch: malformed cache entry", "key", key)
	case errors.Is(err, redis.Nil):
		metrics.WebSearchCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.WebSearchCacheTotal.WithLabelValues("error").Inc()
		slog.Warn("websearch: cache read failed", "error", err)
	}

	var entry cacheEntry
	if rs, ok := c.next.(RelatedSearcher); ok {
		entry.Organic, entry.Related, err = rs.SearchWithRelated(ctx, query)
	} else {
		entry.Organic, err = c.next.Search(ctx, query)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(entry.Organic) == 0 {
		return entry.Organic, entry.Related, nil
	}

	if data, err := json.Marshal(entry); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("websearch: cache write failed", "error", err)
		}
	}
	return entry.Organic, entry.Related, nil
}
