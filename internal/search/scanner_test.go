package search

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/corpuskit/novel-analyzer/internal/store"
	"github.com/corpuskit/novel-analyzer/pkg/config"
	apperrors "github.com/corpuskit/novel-analyzer/pkg/errors"
)

// saveDoc stores text with small chunks so tests can target specific windows.
func saveDoc(t *testing.T, text string) (*store.Store, string) {
	t.Helper()
	st, err := store.Open(config.StoreConfig{
		DataDir:      t.TempDir(),
		ChunkSize:    20,
		ChunkOverlap: 0,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	meta, err := st.Save(text, "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return st, meta.DocID
}

func TestSearchScoringAndOrder(t *testing.T) {
	// Three 20-rune chunks: one occurrence, none, two occurrences.
	text := "剑气纵横三万里aaaaaaaaaaaaa" + // chunk 0: one 剑
		strings.Repeat("b", 20) + // chunk 1: none
		"剑剑cccccccccccccccccc" // chunk 2: two 剑
	st, docID := saveDoc(t, text)
	scanner := NewScanner(st, 300)

	result, err := scanner.Search(docID, "剑", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalHits != 2 {
		t.Fatalf("total hits = %d, want 2 (hits: %+v)", result.TotalHits, result.Hits)
	}
	if result.Hits[0].Index != 2 || result.Hits[0].Score != 2 {
		t.Errorf("top hit = %+v, want chunk 2 with score 2", result.Hits[0])
	}
	if result.Hits[1].Index != 0 || result.Hits[1].Score != 1 {
		t.Errorf("second hit = %+v, want chunk 0 with score 1", result.Hits[1])
	}
}

func TestSearchTieKeepsChunkOrder(t *testing.T) {
	text := "剑" + strings.Repeat("a", 19) + "剑" + strings.Repeat("b", 19)
	st, docID := saveDoc(t, text)
	scanner := NewScanner(st, 300)

	result, err := scanner.Search(docID, "剑", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Hits) != 2 || result.Hits[0].Index != 0 || result.Hits[1].Index != 1 {
		t.Errorf("tie order broken: %+v", result.Hits)
	}
}

func TestSearchLimit(t *testing.T) {
	text := strings.Repeat("剑"+strings.Repeat("x", 19), 5)
	st, docID := saveDoc(t, text)
	scanner := NewScanner(st, 300)

	result, err := scanner.Search(docID, "剑", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalHits != 5 {
		t.Errorf("total hits = %d, want 5", result.TotalHits)
	}
	if len(result.Hits) != 2 {
		t.Errorf("returned %d hits, want 2", len(result.Hits))
	}
}

func TestSearchSnippetTruncation(t *testing.T) {
	st, err := store.Open(config.StoreConfig{
		DataDir:      t.TempDir(),
		ChunkSize:    100,
		ChunkOverlap: 0,
	})
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Save("剑"+strings.Repeat("长", 99), "")
	if err != nil {
		t.Fatal(err)
	}
	scanner := NewScanner(st, 10)
	result, err := scanner.Search(meta.DocID, "剑", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if n := utf8.RuneCountInString(result.Hits[0].Text); n != 10 {
		t.Errorf("snippet has %d runes, want 10", n)
	}
}

func TestSearchNoMatches(t *testing.T) {
	st, docID := saveDoc(t, strings.Repeat("a", 40))
	scanner := NewScanner(st, 300)

	result, err := scanner.Search(docID, "missing", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalHits != 0 || len(result.Hits) != 0 {
		t.Errorf("result = %+v, want no hits", result)
	}
	if result.Hits == nil {
		t.Error("hits should be an empty slice, not nil")
	}
}

func TestSearchUnknownDocument(t *testing.T) {
	st, _ := saveDoc(t, "content")
	scanner := NewScanner(st, 300)
	if _, err := scanner.Search("0123456789ab", "q", 10); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}
