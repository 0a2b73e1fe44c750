// Package store implements the flat per-document directory store. Every
// document lives in <dataDir>/<docID>/ as three files: text.txt (full
// extracted text), meta.json, and chunks.jsonl with one JSON chunk record
// per line.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/corpuskit/novel-analyzer/internal/textproc"
	"github.com/corpuskit/novel-analyzer/pkg/config"
	apperrors "github.com/corpuskit/novel-analyzer/pkg/errors"
)

const (
	textFile   = "text.txt"
	metaFile   = "meta.json"
	chunksFile = "chunks.jsonl"
)

// Chunk lines stay well under this, but a scanner needs an explicit cap.
const maxChunkLineBytes = 1 << 20

var docIDPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// Meta describes a stored document.
type Meta struct {
	DocID        string `json:"doc_id"`
	FilenameHint string `json:"filename_hint,omitempty"`
	Length       int    `json:"length"`
}

// ChunkRecord is one line of chunks.jsonl.
type ChunkRecord struct {
	Index int    `json:"i"`
	Text  string `json:"text"`
}

// Document is a stored document's metadata plus its full text.
type Document struct {
	Meta Meta   `json:"meta"`
	Text string `json:"text"`
}

// Store reads and writes the per-document directory layout.
type Store struct {
	dataDir      string
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// Open creates the data directory if needed and returns a Store.
func Open(cfg config.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{
		dataDir:      cfg.DataDir,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       slog.Default().With("component", "store"),
	}, nil
}

// DataDir returns the root directory of the store.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Save persists a document under a fresh 12-character ID and returns its
// metadata. The document directory is staged under a temporary name and
// renamed into place once all three files are written.
func (s *Store) Save(text string, filenameHint string) (Meta, error) {
	docID := newDocID()
	meta := Meta{
		DocID:        docID,
		FilenameHint: filenameHint,
		Length:       utf8.RuneCountInString(text),
	}

	stageDir := filepath.Join(s.dataDir, ".stage-"+docID)
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return Meta{}, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(stageDir)

	if err := os.WriteFile(filepath.Join(stageDir, textFile), []byte(text), 0644); err != nil {
		return Meta{}, fmt.Errorf("writing %s: %w", textFile, err)
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("marshaling meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stageDir, metaFile), metaData, 0644); err != nil {
		return Meta{}, fmt.Errorf("writing %s: %w", metaFile, err)
	}

	if err := s.writeChunks(stageDir, text); err != nil {
		return Meta{}, err
	}

	finalDir := filepath.Join(s.dataDir, docID)
	if err := os.Rename(stageDir, finalDir); err != nil {
		return Meta{}, fmt.Errorf("renaming document directory: %w", err)
	}
	s.logger.Info("document saved",
		"doc_id", docID,
		"length", meta.Length,
		"filename_hint", filenameHint,
	)
	return meta, nil
}

// writeChunks splits text into the configured sliding windows and writes one
// JSON record per line.
func (s *Store) writeChunks(dir string, text string) error {
	f, err := os.Create(filepath.Join(dir, chunksFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", chunksFile, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i, chunk := range textproc.Chunk(text, s.chunkSize, s.chunkOverlap) {
		if err := enc.Encode(ChunkRecord{Index: i, Text: chunk}); err != nil {
			return fmt.Errorf("encoding chunk %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", chunksFile, err)
	}
	return f.Sync()
}

// Get returns the metadata and full text of a stored document.
func (s *Store) Get(docID string) (Document, error) {
	dir, err := s.docDir(docID)
	if err != nil {
		return Document{}, err
	}
	meta, err := readMeta(filepath.Join(dir, metaFile))
	if err != nil {
		return Document{}, err
	}
	text, err := os.ReadFile(filepath.Join(dir, textFile))
	if err != nil {
		return Document{}, apperrors.Newf(apperrors.ErrStoreCorrupted, 500,
			"document %s has no text file", docID)
	}
	return Document{Meta: meta, Text: string(text)}, nil
}

// Chunks streams the stored chunk records of a document.
func (s *Store) Chunks(docID string) ([]ChunkRecord, error) {
	dir, err := s.docDir(docID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, chunksFile))
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrStoreCorrupted, 500,
			"document %s has no chunks file", docID)
	}
	defer f.Close()

	var chunks []ChunkRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxChunkLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec ChunkRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, apperrors.Newf(apperrors.ErrStoreCorrupted, 500,
				"document %s has a malformed chunk line", docID)
		}
		chunks = append(chunks, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks of %s: %w", docID, err)
	}
	return chunks, nil
}

// List returns the metadata of every stored document, sorted by ID.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("listing data directory: %w", err)
	}
	metas := make([]Meta, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !docIDPattern.MatchString(entry.Name()) {
			continue
		}
		meta, err := readMeta(filepath.Join(s.dataDir, entry.Name(), metaFile))
		if err != nil {
			s.logger.Warn("skipping unreadable document", "doc_id", entry.Name(), "error", err)
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].DocID < metas[j].DocID })
	return metas, nil
}

// Delete removes a document directory.
func (s *Store) Delete(docID string) error {
	dir, err := s.docDir(docID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting document %s: %w", docID, err)
	}
	s.logger.Info("document deleted", "doc_id", docID)
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return 0, fmt.Errorf("listing data directory: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() && docIDPattern.MatchString(entry.Name()) {
			n++
		}
	}
	return n, nil
}

// docDir validates docID and returns its directory, or ErrDocumentNotFound.
// The pattern check doubles as a path-traversal guard.
func (s *Store) docDir(docID string) (string, error) {
	if !docIDPattern.MatchString(docID) {
		return "", apperrors.Newf(apperrors.ErrDocumentNotFound, 404,
			"unknown document %q", docID)
	}
	dir := filepath.Join(s.dataDir, docID)
	if _, err := os.Stat(dir); err != nil {
		return "", apperrors.Newf(apperrors.ErrDocumentNotFound, 404,
			"unknown document %q", docID)
	}
	return dir, nil
}

func readMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("reading meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("parsing meta: %w", err)
	}
	return meta, nil
}

func newDocID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
