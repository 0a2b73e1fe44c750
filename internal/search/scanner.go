// Package search implements naive substring search over a document's stored
// chunks, with an optional Redis-backed result cache.
package search

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/corpuskit/novel-analyzer/internal/store"
	"github.com/corpuskit/novel-analyzer/internal/textproc"
)

// Hit is a matching chunk. Text is a snippet, not the full chunk.
type Hit struct {
	Index int    `json:"i"`
	Score int    `json:"score"`
	Text  string `json:"text"`
}

// Result is the outcome of a search over one document.
type Result struct {
	DocID     string `json:"doc_id"`
	Query     string `json:"query"`
	TotalHits int    `json:"total_hits"`
	Hits      []Hit  `json:"hits"`
}

// Scanner scores chunks by substring occurrence count.
type Scanner struct {
	store        *store.Store
	snippetRunes int
	logger       *slog.Logger
}

// NewScanner creates a Scanner over the given store.
func NewScanner(st *store.Store, snippetRunes int) *Scanner {
	return &Scanner{
		store:        st,
		snippetRunes: snippetRunes,
		logger:       slog.Default().With("component", "search-scanner"),
	}
}

// Search scans every stored chunk of docID, scoring each by the number of
// occurrences of query. Chunks with a zero score are dropped; the rest are
// sorted by score descending (ties keep chunk order) and capped at limit.
func (s *Scanner) Search(docID string, query string, limit int) (*Result, error) {
	chunks, err := s.store.Chunks(docID)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0)
	for _, chunk := range chunks {
		score := strings.Count(chunk.Text, query)
		if score == 0 {
			continue
		}
		hits = append(hits, Hit{
			Index: chunk.Index,
			Score: score,
			Text:  textproc.Truncate(chunk.Text, s.snippetRunes),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return &Result{
		DocID:     docID,
		Query:     query,
		TotalHits: total,
		Hits:      hits,
	}, nil
}
