package analytics

import (
	"testing"
	"time"
)

func searchEvent(query string, hits int, latency int64, cacheHit bool) SearchEvent {
	return SearchEvent{
		Type:      EventSearch,
		DocID:     "0123456789ab",
		Query:     query,
		TotalHits: hits,
		Returned:  hits,
		LatencyMs: latency,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
	}
}

func TestAggregatorTotals(t *testing.T) {
	agg := NewAggregator(nil)

	agg.RecordUpload(UploadEvent{Type: EventUpload, Format: "pdf"})
	agg.RecordUpload(UploadEvent{Type: EventUpload, Format: "pdf"})
	agg.RecordUpload(UploadEvent{Type: EventUpload, Format: "text"})
	agg.RecordAnalyze(AnalyzeEvent{Type: EventAnalyze})
	agg.RecordSearch(searchEvent("剑法", 3, 12, false))
	agg.RecordSearch(searchEvent("剑法", 3, 2, true))
	agg.RecordSearch(searchEvent("不存在", 0, 8, false))

	stats := agg.Stats()
	if stats.TotalUploads != 3 || stats.TotalAnalyses != 1 || stats.TotalSearches != 3 {
		t.Errorf("totals = %d/%d/%d, want 3/1/3",
			stats.TotalUploads, stats.TotalAnalyses, stats.TotalSearches)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("cache = %d hits / %d misses, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if stats.ZeroResultCount != 1 {
		t.Errorf("zero results = %d, want 1", stats.ZeroResultCount)
	}
	if stats.UploadsByFormat["pdf"] != 2 || stats.UploadsByFormat["text"] != 1 {
		t.Errorf("uploads by format = %v", stats.UploadsByFormat)
	}
	if len(stats.TopQueries) == 0 || stats.TopQueries[0].Query != "剑法" || stats.TopQueries[0].Count != 2 {
		t.Errorf("top queries = %v", stats.TopQueries)
	}
	if len(stats.ZeroResultQueries) != 1 || stats.ZeroResultQueries[0].Query != "不存在" {
		t.Errorf("zero-result queries = %v", stats.ZeroResultQueries)
	}
}

func TestAggregatorPercentiles(t *testing.T) {
	agg := NewAggregator(nil)
	for i := int64(1); i <= 100; i++ {
		agg.RecordSearch(searchEvent("q", 1, i, false))
	}
	stats := agg.Stats()
	if stats.P50LatencyMs < 45 || stats.P50LatencyMs > 55 {
		t.Errorf("p50 = %d, want ~50", stats.P50LatencyMs)
	}
	if stats.P95LatencyMs < 90 || stats.P95LatencyMs > 100 {
		t.Errorf("p95 = %d, want ~95", stats.P95LatencyMs)
	}
	if stats.AvgLatencyMs < 50 || stats.AvgLatencyMs > 51 {
		t.Errorf("avg = %f, want 50.5", stats.AvgLatencyMs)
	}
}

func TestAggregatorEmpty(t *testing.T) {
	agg := NewAggregator(nil)
	stats := agg.Stats()
	if stats.TotalSearches != 0 || stats.P99LatencyMs != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
	if len(stats.TopQueries) != 0 {
		t.Errorf("top queries should be empty, got %v", stats.TopQueries)
	}
}

func TestTopNTruncatesAndOrders(t *testing.T) {
	counts := map[string]int64{}
	for i := 0; i < 15; i++ {
		counts[string(rune('a'+i))] = int64(i)
	}
	top := topN(counts, 10)
	if len(top) != 10 {
		t.Fatalf("got %d entries, want 10", len(top))
	}
	if top[0].Count != 14 {
		t.Errorf("top count = %d, want 14", top[0].Count)
	}
	for i := 1; i < len(top); i++ {
		if top[i].Count > top[i-1].Count {
			t.Errorf("not descending at %d: %v", i, top)
		}
	}
}
