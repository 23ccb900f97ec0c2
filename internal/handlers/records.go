package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"editorial-cache/internal/cache"
	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/storage"
)

// GetReferee returns a referee by email
// @Summary Get referee
// @Tags referees
// @Produce json
// @Param email path string true "Referee email"
// @Success 200 {object} storage.Referee
// @Failure 404 {object} ErrorResponse
// @Router /api/referees/{email} [get]
func (h *Handlers) GetReferee(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	var ref storage.Referee
	ok, err := h.cache.GetJSON(r.Context(), cache.NamespaceReferee, cache.Components{"email": email}, &ref)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeError(w, apperrors.NotFoundError("referee"))
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// GetManuscript returns a cached manuscript. full_data is dropped unless ?full=true.
// @Summary Get manuscript
// @Tags manuscripts
// @Produce json
// @Param journal path string true "Journal code"
// @Param id path string true "Manuscript id"
// @Param full query bool false "Include the raw payload"
// @Success 200 {object} storage.Manuscript
// @Failure 404 {object} ErrorResponse
// @Router /api/manuscripts/{journal}/{id} [get]
func (h *Handlers) GetManuscript(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	components := cache.Components{"manuscript_id": vars["id"], "journal": vars["journal"]}

	var m storage.Manuscript
	ok, err := h.cache.GetJSON(r.Context(), cache.NamespaceManuscript, components, &m)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeError(w, apperrors.NotFoundError("manuscript"))
		return
	}

	if full, _ := strconv.ParseBool(r.URL.Query().Get("full")); !full {
		m.FullData = nil
	}
	writeJSON(w, http.StatusOK, m)
}

// ShouldUpdateResponse is the answer of the should-update endpoint.
type ShouldUpdateResponse struct {
	Journal      string `json:"journal"`
	ManuscriptID string `json:"manuscript_id"`
	ShouldUpdate bool   `json:"should_update"`
}

// ShouldUpdateManuscript tells a scraper whether a manuscript needs re-extraction
// @Summary Should a manuscript be re-extracted
// @Tags manuscripts
// @Produce json
// @Param journal path string true "Journal code"
// @Param id path string true "Manuscript id"
// @Param status query string false "Status currently shown on the site"
// @Param last_updated query string false "Last-updated date currently shown on the site"
// @Success 200 {object} ShouldUpdateResponse
// @Router /api/journals/{journal}/should-update/{id} [get]
func (h *Handlers) ShouldUpdateManuscript(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	query := r.URL.Query()

	should, err := h.store.ShouldUpdateManuscript(r.Context(), vars["id"], vars["journal"],
		query.Get("status"), query.Get("last_updated"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ShouldUpdateResponse{
		Journal:      vars["journal"],
		ManuscriptID: vars["id"],
		ShouldUpdate: should,
	})
}
