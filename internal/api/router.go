package api

import "net/http"

// Routes registers the document, analysis, search, and cache endpoints.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Upload)
	mux.HandleFunc("GET /api/v1/documents", h.List)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.DeleteDocument)
	mux.HandleFunc("POST /api/v1/documents/{id}/analyze", h.Analyze)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}
