package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNoAPIKey = errors.New("web search API key is not configured")

// Result is a single organic web search hit.
type Result struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Date     string `json:"date,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Searcher runs one web query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// RelatedSearcher also reports the queries the engine suggests as related.
type RelatedSearcher interface {
	Searcher
	SearchWithRelated(ctx context.Context, query string) ([]Result, []string, error)
}

// SerperClient queries the Serper Google search API.
type SerperClient struct {
	apiKey     string
	endpoint   string
	numResults int
	httpClient *http.Client
}

func NewSerperClient(apiKey, endpoint string, numResults int) *SerperClient {
	if numResults <= 0 {
		numResults = 10
	}
	return &SerperClient{
		apiKey:     apiKey,
		endpoint:   endpoint,
		numResults: numResults,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
}

type serperResponse struct {
	Organic         []Result       `json:"organic"`
	RelatedSearches []relatedQuery `json:"relatedSearches"`
}

// relatedQuery accepts both {"query": "..."} objects and bare strings.
type relatedQuery string

func (q *relatedQuery) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = relatedQuery(s)
		return nil
	}
	var obj struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*q = relatedQuery(obj.Query)
	return nil
}

func (c *SerperClient) Search(ctx context.Context, query string) ([]Result, error) {
	results, _, err := c.SearchWithRelated(ctx, query)
	return results, err
}

func (c *SerperClient) SearchWithRelated(ctx context.Context, query string) ([]Result, []string, error) {
	if c.apiKey == "" {
		return nil, nil, ErrNoAPIKey
	}

	body, err := json.Marshal(serperRequest{Q: query, Num: c.numResults, GL: "kr", HL: "ko"})
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("calling search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("search api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("decoding search response: %w", err)
	}
	related := make([]string, 0, len(out.RelatedSearches))
	for _, q := range out.RelatedSearches {
		if q := strings.TrimSpace(string(q)); q != "" {
			related = append(related, q)
		}
	}
	if out.Organic == nil {
		return []Result{}, related, nil
	}
	return out.Organic, related, nil
}
