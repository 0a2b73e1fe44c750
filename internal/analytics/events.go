// Package analytics implements the usage-analytics pipeline: handlers track
// events through a buffered Collector that publishes to Kafka; a consumer
// feeds the in-memory Aggregator and, optionally, a durable PostgreSQL
// query log.
package analytics

import "time"

type EventType string

const (
	EventUpload  EventType = "upload"
	EventAnalyze EventType = "analyze"
	EventSearch  EventType = "search"
)

// envelope carries just enough to dispatch a raw message to its event type.
type envelope struct {
	Type EventType `json:"type"`
}

// UploadEvent records a document ingestion.
type UploadEvent struct {
	Type      EventType `json:"type"`
	DocID     string    `json:"doc_id"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"size_bytes"`
	Chars     int       `json:"chars"`
	Chunks    int       `json:"chunks"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// AnalyzeEvent records a lexical analysis run.
type AnalyzeEvent struct {
	Type      EventType `json:"type"`
	DocID     string    `json:"doc_id"`
	Chars     int       `json:"chars"`
	WordsEst  int       `json:"words_est"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// SearchEvent records a substring search.
type SearchEvent struct {
	Type      EventType `json:"type"`
	DocID     string    `json:"doc_id"`
	Query     string    `json:"query"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
