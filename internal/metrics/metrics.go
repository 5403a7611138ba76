package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jiwoo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jiwoo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RetrievalSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jiwoo_retrieval_source_total",
			Help: "Retrievals by the source that produced the evidence (index, web, fallback).",
		},
		[]string{"source"},
	)

	WebSearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jiwoo_websearch_cache_total",
			Help: "Web search cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	CompletionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jiwoo_completion_failures_total",
			Help: "Failed completion calls by stage.",
		},
		[]string{"stage"},
	)

	PromptTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jiwoo_prompt_tokens",
			Help:    "Token count of assembled prompts.",
			Buckets: prometheus.ExponentialBuckets(128, 2, 8),
		},
	)

	ExtractionDroppedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jiwoo_extraction_dropped_lines_total",
			Help: "Extraction lines dropped because no numeric value could be parsed.",
		},
	)

	WritebackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jiwoo_writeback_total",
			Help: "Write-back attempts by result (stored, skipped, failed).",
		},
		[]string{"result"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jiwoo_turns_total",
			Help: "Answered turns by path (text, graph) and status.",
		},
		[]string{"path", "status"},
	)

	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jiwoo_turn_duration_seconds",
			Help:    "End-to-end turn latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RetrievalSourceTotal,
		WebSearchCacheTotal,
		CompletionFailuresTotal,
		PromptTokens,
		ExtractionDroppedLinesTotal,
		WritebackTotal,
		TurnsTotal,
		TurnDuration,
	)
}
