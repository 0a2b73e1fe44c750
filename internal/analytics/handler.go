package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler serves the analytics endpoints.
type Handler struct {
	aggregator *Aggregator
	queryLog   *QueryLog
	logger     *slog.Logger
}

// NewHandler creates a Handler. aggregator and queryLog may be nil when the
// matching feature is disabled.
func NewHandler(aggregator *Aggregator, queryLog *QueryLog) *Handler {
	return &Handler{
		aggregator: aggregator,
		queryLog:   queryLog,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats serves the aggregated in-memory statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.aggregator == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "analytics is disabled",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

// RecentQueries serves the durable query log, newest first.
func (h *Handler) RecentQueries(w http.ResponseWriter, r *http.Request) {
	if h.queryLog == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "query log is disabled",
		})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		if parsed > 1000 {
			parsed = 1000
		}
		limit = parsed
	}
	queries, err := h.queryLog.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read query log", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "query log unavailable",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"queries": queries})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
