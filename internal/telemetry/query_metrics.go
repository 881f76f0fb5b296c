// Package telemetry records search and ingestion metrics. Counters are
// exported in Prometheus format; a local snapshot backs the CLI stats view.
package telemetry

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LatencyBucket is a coarse latency class used in snapshots.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket classifies d.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch ms := d.Milliseconds(); {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent describes one completed search.
type QueryEvent struct {
	DocumentID  string
	Query       string
	Mode        string // hybrid, keyword or semantic
	ResultCount int
	Latency     time.Duration
}

// IngestEvent describes one ingested document.
type IngestEvent struct {
	Pages    int
	Chunks   int
	Duration time.Duration
	Failed   bool
}

// TermCount is a query term with its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the local aggregates.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	FallbackCount       int64                   `json:"fallback_count"`
	ModeCounts          map[string]int64        `json:"mode_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries with no results.
func (s Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryMetrics is safe for concurrent use. A nil *QueryMetrics ignores
// all records.
type QueryMetrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	zeroResults   *prometheus.CounterVec
	fallbacks     prometheus.Counter
	latency       *prometheus.HistogramVec
	resultCount   prometheus.Histogram
	ingested      *prometheus.CounterVec
	ingestChunks  prometheus.Counter
	ingestLatency prometheus.Histogram

	mu          sync.Mutex
	total       int64
	zero        int64
	fallback    int64
	modes       map[string]int64
	latencies   map[LatencyBucket]int64
	terms       *lru.Cache[string, int64]
	zeroQueries *RingBuffer[string]
	since       time.Time
}

// NewQueryMetrics creates collectors on a private registry.
func NewQueryMetrics() *QueryMetrics {
	reg := prometheus.NewRegistry()
	terms, _ := lru.New[string, int64](200)

	m := &QueryMetrics{
		registry: reg,
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planqa", Name: "search_queries_total",
			Help: "Searches served, by mode.",
		}, []string{"mode"}),
		zeroResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planqa", Name: "search_zero_results_total",
			Help: "Searches that returned nothing, by mode.",
		}, []string{"mode"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planqa", Name: "search_fallbacks_total",
			Help: "Hybrid searches topped up with a keyword pass.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planqa", Name: "search_duration_seconds",
			Help:    "Search latency including query embedding.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"mode"}),
		resultCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planqa", Name: "search_results",
			Help:    "Results returned per search.",
			Buckets: []float64{0, 1, 3, 5, 10, 20},
		}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planqa", Name: "ingest_documents_total",
			Help: "Documents ingested, by outcome.",
		}, []string{"outcome"}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planqa", Name: "ingest_chunks_total",
			Help: "Chunks written by ingestion.",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planqa", Name: "ingest_duration_seconds",
			Help:    "End-to-end document ingestion time.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		modes:       make(map[string]int64),
		latencies:   make(map[LatencyBucket]int64),
		terms:       terms,
		zeroQueries: NewRingBuffer[string](100),
		since:       time.Now(),
	}
	reg.MustRegister(m.queries, m.zeroResults, m.fallbacks, m.latency, m.resultCount,
		m.ingested, m.ingestChunks, m.ingestLatency)
	return m
}

// Registry exposes the collectors, for example to add Go runtime metrics.
func (m *QueryMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in Prometheus text format.
func (m *QueryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordQuery records a completed search.
func (m *QueryMetrics) RecordQuery(e QueryEvent) {
	if m == nil {
		return
	}
	mode := e.Mode
	if mode == "" {
		mode = "hybrid"
	}
	m.queries.WithLabelValues(mode).Inc()
	m.latency.WithLabelValues(mode).Observe(e.Latency.Seconds())
	m.resultCount.Observe(float64(e.ResultCount))
	if e.ResultCount == 0 {
		m.zeroResults.WithLabelValues(mode).Inc()
		m.zeroQueries.Add(e.Query)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.modes[mode]++
	m.latencies[LatencyToBucket(e.Latency)]++
	if e.ResultCount == 0 {
		m.zero++
	}
	for _, term := range ExtractTerms(e.Query) {
		n, _ := m.terms.Get(term)
		m.terms.Add(term, n+1)
	}
}

// RecordFallback records a hybrid search that was topped up with a keyword pass.
func (m *QueryMetrics) RecordFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
	m.mu.Lock()
	m.fallback++
	m.mu.Unlock()
}

// RecordIngest records a document ingestion attempt.
func (m *QueryMetrics) RecordIngest(e IngestEvent) {
	if m == nil {
		return
	}
	if e.Failed {
		m.ingested.WithLabelValues("failed").Inc()
		return
	}
	m.ingested.WithLabelValues("ok").Inc()
	m.ingestChunks.Add(float64(e.Chunks))
	m.ingestLatency.Observe(e.Duration.Seconds())
}

// Snapshot copies the local aggregates. Top terms are sorted by count,
// then alphabetically.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		TotalQueries:        m.total,
		ZeroResultCount:     m.zero,
		FallbackCount:       m.fallback,
		ModeCounts:          make(map[string]int64, len(m.modes)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(m.latencies)),
		ZeroResultQueries:   m.zeroQueries.Items(),
		Since:               m.since,
	}
	for k, v := range m.modes {
		s.ModeCounts[k] = v
	}
	for k, v := range m.latencies {
		s.LatencyDistribution[k] = v
	}
	for _, term := range m.terms.Keys() {
		if n, ok := m.terms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	sort.Slice(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	if len(s.TopTerms) > 20 {
		s.TopTerms = s.TopTerms[:20]
	}
	return s
}

// ExtractTerms lowercases query and keeps words of three or more bytes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, "?.,!;:\"'()")
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}
