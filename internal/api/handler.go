// Package api exposes the document, analysis, and search endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/corpuskit/novel-analyzer/internal/analytics"
	"github.com/corpuskit/novel-analyzer/internal/extract"
	"github.com/corpuskit/novel-analyzer/internal/ingest"
	"github.com/corpuskit/novel-analyzer/internal/search"
	"github.com/corpuskit/novel-analyzer/internal/store"
	"github.com/corpuskit/novel-analyzer/internal/textproc"
	"github.com/corpuskit/novel-analyzer/pkg/config"
	apperrors "github.com/corpuskit/novel-analyzer/pkg/errors"
	"github.com/corpuskit/novel-analyzer/pkg/logger"
	"github.com/corpuskit/novel-analyzer/pkg/metrics"
	"github.com/corpuskit/novel-analyzer/pkg/middleware"
)

// UploadResponse is returned by document upload and re-analysis.
type UploadResponse struct {
	DocID    string         `json:"doc_id"`
	Filename string         `json:"filename,omitempty"`
	Preview  []string       `json:"preview"`
	Stats    textproc.Stats `json:"stats"`
}

// ListResponse is returned by the document listing endpoint.
type ListResponse struct {
	Documents []store.Meta `json:"documents"`
	Total     int          `json:"total"`
}

// Handler serves the document, analysis, and search endpoints.
type Handler struct {
	pipeline  *ingest.Pipeline
	store     *store.Store
	scanner   *search.Scanner
	cache     *search.ResultCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	ingestCfg config.IngestConfig
	analysis  config.AnalysisConfig
	searchCfg config.SearchConfig
	logger    *slog.Logger
}

// New creates a Handler. cache, collector, and m may be nil; the matching
// features degrade instead of failing.
func New(
	pipeline *ingest.Pipeline,
	st *store.Store,
	scanner *search.Scanner,
	cache *search.ResultCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	cfg *config.Config,
) *Handler {
	return &Handler{
		pipeline:  pipeline,
		store:     st,
		scanner:   scanner,
		cache:     cache,
		collector: collector,
		metrics:   m,
		ingestCfg: cfg.Ingest,
		analysis:  cfg.Analysis,
		searchCfg: cfg.Search,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

// Upload handles POST /api/v1/documents.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.ingestCfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.ingestCfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "form file 'file' is required")
		return
	}
	defer file.Close()

	// The uploaded filename decides the format; the hint stands in when the
	// client sent the part without one.
	name := header.Filename
	hint := r.FormValue("filename_hint")
	if name == "" {
		name = hint
	}

	if err := ValidateUpload(name, hint, header.Size); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := extract.Detect(name)

	capRunes, err := h.positiveParam(r, "cap", h.ingestCfg.DefaultCapRunes)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	preview, err := h.positiveParam(r, "preview", h.ingestCfg.DefaultPreview)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmp, err := os.CreateTemp("", "novel-upload-*")
	if err != nil {
		log.Error("temp file creation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		log.Error("upload spool failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	tmp.Close()

	result, err := h.pipeline.Ingest(ctx, tmp.Name(), format, name, capRunes, preview)
	if h.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		h.metrics.UploadsTotal.WithLabelValues(string(format), outcome).Inc()
	}
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"filename", name,
			"format", string(format),
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("document ingested",
		"doc_id", result.Meta.DocID,
		"format", string(format),
		"chars", result.Meta.Length,
		"chunks", result.StoredChunks,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.Track(analytics.UploadEvent{
			Type:      analytics.EventUpload,
			DocID:     result.Meta.DocID,
			Format:    string(format),
			SizeBytes: header.Size,
			Chars:     result.Meta.Length,
			Chunks:    result.StoredChunks,
			LatencyMs: latencyMs,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusCreated, &UploadResponse{
		DocID:    result.Meta.DocID,
		Filename: result.Meta.FilenameHint,
		Preview:  result.Preview,
		Stats:    result.Stats,
	})
}

// Analyze handles POST /api/v1/documents/{id}/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	docID := r.PathValue("id")

	capRunes, err := h.positiveParam(r, "cap", h.analysis.DefaultCapRunes)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	preview, err := h.positiveParam(r, "preview", h.ingestCfg.DefaultPreview)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pipeline.Analyze(ctx, docID, capRunes, preview)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if statusCode >= http.StatusInternalServerError {
			log.Error("analysis failed", "doc_id", docID, "error", err)
		}
		h.writeError(w, statusCode, "analysis failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("document analyzed",
		"doc_id", docID,
		"chars", result.Stats.Chars,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.Track(analytics.AnalyzeEvent{
			Type:      analytics.EventAnalyze,
			DocID:     docID,
			Chars:     result.Stats.Chars,
			WordsEst:  result.Stats.WordsEst,
			LatencyMs: latencyMs,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, &UploadResponse{
		DocID:    result.Meta.DocID,
		Filename: result.Meta.FilenameHint,
		Preview:  result.Preview,
		Stats:    result.Stats,
	})
}

// List handles GET /api/v1/documents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	metas, err := h.store.List()
	if err != nil {
		logger.FromContext(r.Context()).Error("document listing failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "listing failed")
		return
	}
	h.writeJSON(w, http.StatusOK, &ListResponse{Documents: metas, Total: len(metas)})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	doc, err := h.store.Get(docID)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), "document not found")
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/v1/documents/{id}. Cached search
// results for the document are dropped alongside it.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := r.PathValue("id")
	if err := h.store.Delete(docID); err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), "deletion failed")
		return
	}
	if h.cache != nil {
		if err := h.cache.InvalidateDoc(ctx, docID); err != nil {
			h.logger.Warn("cache invalidation failed", "doc_id", docID, "error", err)
		}
	}
	if h.metrics != nil {
		if n, err := h.store.Count(); err == nil {
			h.metrics.DocumentsStored.Set(float64(n))
		}
	}
	logger.FromContext(ctx).Info("document deleted", "doc_id", docID)
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/v1/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'doc_id' is required")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.searchCfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.searchCfg.MaxResults {
			parsed = h.searchCfg.MaxResults
		}
		limit = parsed
	}

	var result *search.Result
	var err error
	cacheHit := false

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, docID, query, limit, func() (*search.Result, error) {
			return h.scanner.Search(docID, query, limit)
		})
	} else {
		result, err = h.scanner.Search(docID, query, limit)
	}

	if h.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		h.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
		h.metrics.SearchLatency.Observe(time.Since(start).Seconds())
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else if h.cache != nil {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if statusCode >= http.StatusInternalServerError {
			log.Error("search failed", "doc_id", docID, "query", query, "error", err)
		}
		h.writeError(w, statusCode, "search failed")
		return
	}
	if h.metrics != nil {
		h.metrics.SearchHitsCount.Observe(float64(result.TotalHits))
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"doc_id", docID,
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Hits),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:      analytics.EventSearch,
			DocID:     docID,
			Query:     query,
			TotalHits: result.TotalHits,
			Returned:  len(result.Hits),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// positiveParam reads an optional positive integer from the form or query.
func (h *Handler) positiveParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return parsed, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
