// Package ingest runs the document ingestion pipeline: text extraction,
// rune capping, persistence, lexical statistics, and preview chunking.
package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/corpuskit/novel-analyzer/internal/extract"
	"github.com/corpuskit/novel-analyzer/internal/store"
	"github.com/corpuskit/novel-analyzer/internal/textproc"
	"github.com/corpuskit/novel-analyzer/pkg/config"
	apperrors "github.com/corpuskit/novel-analyzer/pkg/errors"
	"github.com/corpuskit/novel-analyzer/pkg/logger"
	"github.com/corpuskit/novel-analyzer/pkg/metrics"
	"github.com/corpuskit/novel-analyzer/pkg/tracing"
)

// Result is what an ingestion or analysis run produces.
type Result struct {
	Meta         store.Meta
	Format       extract.Format
	Stats        textproc.Stats
	Preview      []string
	StoredChunks int
}

// Pipeline wires the extraction, store, and statistics stages together.
type Pipeline struct {
	store       *store.Store
	segmenter   *textproc.Segmenter
	metrics     *metrics.Metrics
	topK        int
	previewSize int
	logger      *slog.Logger
}

// New creates a Pipeline. metrics may be nil.
func New(st *store.Store, seg *textproc.Segmenter, m *metrics.Metrics, analysis config.AnalysisConfig, ingest config.IngestConfig) *Pipeline {
	return &Pipeline{
		store:       st,
		segmenter:   seg,
		metrics:     m,
		topK:        analysis.TopK,
		previewSize: ingest.PreviewSize,
		logger:      slog.Default().With("component", "ingest-pipeline"),
	}
}

// Ingest extracts text from the file at path, caps it to capRunes, persists
// it, and computes statistics plus a preview. Every stage is traced.
func (p *Pipeline) Ingest(ctx context.Context, path string, format extract.Format, filenameHint string, capRunes, preview int) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest", logger.RequestID(ctx))
	span.SetAttr("format", string(format))
	defer func() {
		span.End()
		span.Log()
	}()

	_, extractSpan := tracing.StartChildSpan(ctx, "extract")
	extractStart := time.Now()
	text, err := extract.Text(path, format)
	extractSpan.End()
	if p.metrics != nil {
		p.metrics.ExtractionDuration.WithLabelValues(string(format)).Observe(time.Since(extractStart).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.New(apperrors.ErrEmptyDocument, http.StatusBadRequest, "document contains no extractable text")
	}

	capped := textproc.Truncate(text, capRunes)

	_, persistSpan := tracing.StartChildSpan(ctx, "persist")
	meta, err := p.store.Save(capped, filenameHint)
	if err != nil {
		persistSpan.End()
		return nil, err
	}
	persistSpan.SetAttr("doc_id", meta.DocID)
	persistSpan.End()
	if p.metrics != nil {
		p.metrics.DocumentChars.Observe(float64(meta.Length))
		if n, err := p.store.Count(); err == nil {
			p.metrics.DocumentsStored.Set(float64(n))
		}
	}

	result, err := p.analyze(ctx, meta, capped, preview)
	if err != nil {
		return nil, err
	}
	result.Format = format
	if records, err := p.store.Chunks(meta.DocID); err == nil {
		result.StoredChunks = len(records)
	}
	p.logger.Debug("document ingested",
		"doc_id", meta.DocID,
		"chars", meta.Length,
		"chunks", result.StoredChunks,
	)
	return result, nil
}

// Analyze recomputes statistics for a stored document, capped to capRunes.
func (p *Pipeline) Analyze(ctx context.Context, docID string, capRunes, preview int) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "analyze", logger.RequestID(ctx))
	span.SetAttr("doc_id", docID)
	defer func() {
		span.End()
		span.Log()
	}()

	doc, err := p.store.Get(docID)
	if err != nil {
		return nil, err
	}
	capped := textproc.Truncate(doc.Text, capRunes)
	result, err := p.analyze(ctx, doc.Meta, capped, preview)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.AnalysesTotal.Inc()
	}
	return result, nil
}

// analyze computes statistics and the preview over already-capped text.
func (p *Pipeline) analyze(ctx context.Context, meta store.Meta, text string, preview int) (*Result, error) {
	_, statsSpan := tracing.StartChildSpan(ctx, "stats")
	stats := textproc.Analyze(p.segmenter, text, p.topK)
	statsSpan.End()

	previewChunks := textproc.Chunk(text, p.previewSize, 0)
	keep := preview / p.previewSize
	if keep < 1 {
		keep = 1
	}
	if len(previewChunks) > keep {
		previewChunks = previewChunks[:keep]
	}
	if previewChunks == nil {
		previewChunks = []string{}
	}

	return &Result{
		Meta:    meta,
		Stats:   stats,
		Preview: previewChunks,
	}, nil
}
