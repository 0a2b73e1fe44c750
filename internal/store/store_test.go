package store

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/corpuskit/novel-analyzer/pkg/config"
	apperrors "github.com/corpuskit/novel-analyzer/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.StoreConfig{
		DataDir:      t.TempDir(),
		ChunkSize:    50,
		ChunkOverlap: 10,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	text := strings.Repeat("少年向前走去。", 30)

	meta, err := s.Save(text, "novel.txt")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(meta.DocID) != 12 {
		t.Errorf("doc id = %q, want 12 hex chars", meta.DocID)
	}
	if meta.Length != utf8.RuneCountInString(text) {
		t.Errorf("meta length = %d, want %d", meta.Length, utf8.RuneCountInString(text))
	}

	doc, err := s.Get(meta.DocID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Text != text {
		t.Error("stored text does not round-trip")
	}
	if doc.Meta.FilenameHint != "novel.txt" {
		t.Errorf("filename hint = %q", doc.Meta.FilenameHint)
	}
}

func TestChunksLayout(t *testing.T) {
	s := newTestStore(t)
	text := strings.Repeat("a", 120)

	meta, err := s.Save(text, "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	chunks, err := s.Chunks(meta.DocID)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	// 120 runes, window 50, step 40: 0-50, 40-90, 80-120.
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
	if utf8.RuneCountInString(chunks[0].Text) != 50 {
		t.Errorf("first chunk has %d runes, want 50", utf8.RuneCountInString(chunks[0].Text))
	}
	if utf8.RuneCountInString(chunks[2].Text) != 40 {
		t.Errorf("last chunk has %d runes, want 40", utf8.RuneCountInString(chunks[2].Text))
	}
	// Overlap: the second window starts 10 runes before the first ends.
	if !strings.HasPrefix(chunks[1].Text, chunks[0].Text[40:]) {
		t.Error("consecutive chunks do not overlap")
	}
}

func TestListSortedByID(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if _, err := s.Save("content", ""); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 5 {
		t.Fatalf("got %d metas, want 5", len(metas))
	}
	for i := 1; i < len(metas); i++ {
		if metas[i-1].DocID >= metas[i].DocID {
			t.Errorf("list not sorted: %s before %s", metas[i-1].DocID, metas[i].DocID)
		}
	}
	n, err := s.Count()
	if err != nil || n != 5 {
		t.Errorf("Count = %d, %v; want 5", n, err)
	}
}

func TestGetUnknown(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("0123456789ab"); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocIDValidation(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"../evil", "ABCDEF123456", "short", ""} {
		if _, err := s.Get(id); !errors.Is(err, apperrors.ErrDocumentNotFound) {
			t.Errorf("Get(%q) err = %v, want ErrDocumentNotFound", id, err)
		}
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	meta, err := s.Save("content", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(meta.DocID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(meta.DocID); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("document still readable after delete: %v", err)
	}
	if err := s.Delete(meta.DocID); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("second delete err = %v, want ErrDocumentNotFound", err)
	}
}
