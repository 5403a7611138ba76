package websearch

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit caps merged multi-query results.
const DefaultLimit = 10

// RelatedLimit caps merged related queries.
const RelatedLimit = 5

// MultiSearch runs every query concurrently and merges the organic results in
// query order, dropping repeated links. A failing query is logged and skipped.
func MultiSearch(ctx context.Context, s Searcher, queries []string, limit int) []Result {
	results, _ := MultiSearchRelated(ctx, s, queries, limit)
	return results
}

// MultiSearchRelated is MultiSearch that also merges related queries when s
// reports them: first-seen order, no repeats, at most RelatedLimit.
func MultiSearchRelated(ctx context.Context, s Searcher, queries []string, limit int) ([]Result, []string) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	perQuery := make([][]Result, len(queries))
	perRelated := make([][]string, len(queries))
	rs, withRelated := s.(RelatedSearcher)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		g.Go(func() error {
			var (
				res     []Result
				related []string
				err     error
			)
			if withRelated {
				res, related, err = rs.SearchWithRelated(gctx, q)
			} else {
				res, err = s.Search(gctx, q)
			}
			if err != nil {
				slog.Warn("websearch: query failed", "error", err, "query", q)
				return nil
			}
			perQuery[i] = res
			perRelated[i] = related
			return nil
		})
	}
	_ = g.Wait()

	return mergeResults(perQuery, limit), mergeRelated(perRelated, RelatedLimit)
}

func mergeResults(perQuery [][]Result, limit int) []Result {
	seen := make(map[string]struct{})
	merged := make([]Result, 0, limit)
	for _, results := range perQuery {
		for _, r := range results {
			key := r.Link
			if key == "" {
				key = r.Title + "\x00" + r.Snippet
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
			if len(merged) == limit {
				return merged
			}
		}
	}
	return merged
}

func mergeRelated(perQuery [][]string, limit int) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, related := range perQuery {
		for _, q := range related {
			if _, dup := seen[q]; dup || q == "" {
				continue
			}
			seen[q] = struct{}{}
			merged = append(merged, q)
			if len(merged) == limit {
				return merged
			}
		}
	}
	return merged
}
