// Package handlers implements the HTTP API over the editorial cache: lookups
// go through the multi-tier cache, decisions and statistics through the store.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"editorial-cache/internal/cache"
	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/storage"
)

// CacheService is the part of *cache.Cache the handlers use.
type CacheService interface {
	GetJSON(ctx context.Context, namespace string, components cache.Components, dest interface{}) (bool, error)
	Invalidate(ctx context.Context, namespace string, components cache.Components) error
	Stats() cache.Stats
}

type Handlers struct {
	store  storage.Store
	cache  CacheService
	logger logging.Logger
}

func New(store storage.Store, c CacheService) *Handlers {
	return &Handlers{
		store:  store,
		cache:  c,
		logger: logging.Component("http"),
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps AppError types and storage.ErrNotFound to status codes
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errType := apperrors.GetType(err)

	switch {
	case errors.Is(err, storage.ErrNotFound), errType == apperrors.ErrTypeNotFound:
		status = http.StatusNotFound
	case errType == apperrors.ErrTypeValidation:
		status = http.StatusBadRequest
	case errType == apperrors.ErrTypeConnection:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Type: string(errType)})
}
