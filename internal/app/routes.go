package app

import (
	"github.com/gorilla/mux"

	"editorial-cache/internal/handlers"
	"editorial-cache/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers) {
	// Add request id and logging middleware to all routes
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)

	h.Register(router)
}
