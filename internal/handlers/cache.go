package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"editorial-cache/internal/cache"
	apperrors "editorial-cache/internal/common/errors"
)

const maxComponentsBody = 64 * 1024

// InvalidateCache drops one key from memory, blob and remote tiers
// @Summary Invalidate a cache entry
// @Tags cache
// @Accept json
// @Param namespace path string true "Cache namespace"
// @Param components body map[string]interface{} true "Key components"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /api/cache/{namespace} [delete]
func (h *Handlers) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	namespace := mux.Vars(r)["namespace"]

	var components cache.Components
	body := io.LimitReader(r.Body, maxComponentsBody)
	if err := json.NewDecoder(body).Decode(&components); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, apperrors.ValidationError("request body must be a JSON object of key components"))
		return
	}

	if err := h.cache.Invalidate(r.Context(), namespace, components); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
