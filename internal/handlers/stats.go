package handlers

import (
	"net/http"

	"editorial-cache/internal/cache"
	"editorial-cache/internal/storage"
)

// StatsResponse combines tier statistics with table row counts.
type StatsResponse struct {
	Cache    cache.Stats    `json:"cache"`
	Tables   storage.Counts `json:"tables"`
	Journals []string       `json:"journals"`
}

// HealthCheck reports whether the relational store answers
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} ErrorResponse
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Health(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Type: "connection"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetStats returns cache and table statistics
// @Summary Get cache statistics
// @Tags statistics
// @Produce json
// @Success 200 {object} StatsResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/stats [get]
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Counts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	journals, err := h.store.Journals(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if journals == nil {
		journals = []string{}
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Cache:    h.cache.Stats(),
		Tables:   counts,
		Journals: journals,
	})
}
