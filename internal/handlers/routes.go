package handlers

import "github.com/gorilla/mux"

// Register mounts every endpoint on router.
func (h *Handlers) Register(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/referees/{email}", h.GetReferee).Methods("GET")
	api.HandleFunc("/manuscripts/{journal}/{id}", h.GetManuscript).Methods("GET")
	api.HandleFunc("/journals/{journal}/should-update/{id}", h.ShouldUpdateManuscript).Methods("GET")
	api.HandleFunc("/cache/{namespace}", h.InvalidateCache).Methods("DELETE")
}
