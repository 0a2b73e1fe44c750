package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corpuskit/novel-analyzer/pkg/kafka"
)

// AggregatedStats is the snapshot served on the analytics endpoint.
type AggregatedStats struct {
	TotalUploads      int64            `json:"total_uploads"`
	TotalAnalyses     int64            `json:"total_analyses"`
	TotalSearches     int64            `json:"total_searches"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	UploadsByFormat   map[string]int64 `json:"uploads_by_format"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

// QueryCount pairs a query string with its occurrence count.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator accumulates usage events in memory.
type Aggregator struct {
	mu                sync.RWMutex
	totalUploads      atomic.Int64
	totalAnalyses     atomic.Int64
	totalSearches     atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64
	uploadsByFormat   map[string]int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator fed by the given consumer. The
// consumer may be nil in tests; events can then be recorded directly.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 10000),
		uploadsByFormat:   make(map[string]int64),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		consumer:          consumer,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// AttachConsumer sets the consumer Start will run. The handler produced by
// HandleEvent needs the aggregator, and the consumer needs the handler, so
// the consumer is attached after construction.
func (a *Aggregator) AttachConsumer(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start runs the underlying consumer until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent returns a Kafka message handler that dispatches events to the
// aggregator and, when non-nil, the durable query log. Malformed messages
// are logged and skipped.
func HandleEvent(agg *Aggregator, qlog *QueryLog) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventUpload:
			event, err := kafka.DecodeJSON[UploadEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode upload event", "error", err)
				return nil
			}
			agg.RecordUpload(event)
		case EventAnalyze:
			event, err := kafka.DecodeJSON[AnalyzeEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode analyze event", "error", err)
				return nil
			}
			agg.RecordAnalyze(event)
		case EventSearch:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.RecordSearch(event)
			if qlog != nil {
				if err := qlog.Record(ctx, event); err != nil {
					agg.logger.Error("failed to record query log entry", "error", err)
				}
			}
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

// RecordUpload accumulates an upload event.
func (a *Aggregator) RecordUpload(event UploadEvent) {
	a.totalUploads.Add(1)
	a.mu.Lock()
	a.uploadsByFormat[event.Format]++
	a.mu.Unlock()
}

// RecordAnalyze accumulates an analyze event.
func (a *Aggregator) RecordAnalyze(event AnalyzeEvent) {
	a.totalAnalyses.Add(1)
}

// RecordSearch accumulates a search event.
func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.totalSearches.Add(1)

	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

// Stats returns a snapshot of the accumulated statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalUploads:    a.totalUploads.Load(),
		TotalAnalyses:   a.totalAnalyses.Load(),
		TotalSearches:   a.totalSearches.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		UploadsByFormat: make(map[string]int64, len(a.uploadsByFormat)),
	}
	for format, count := range a.uploadsByFormat {
		stats.UploadsByFormat[format] = count
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
