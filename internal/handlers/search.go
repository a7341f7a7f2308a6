package handlers

import (
	"net/http"
	"strings"

	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/search"
)

type SearchHandler struct {
	history *search.History
}

func NewSearchHandler(history *search.History) *SearchHandler {
	return &SearchHandler{history: history}
}

// Query searches the caller's role catalog and remembers the query when it
// matched anything.
func (h *SearchHandler) Query(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	results := search.Search(q, sess.User.Role)
	if len(results) > 0 {
		h.history.AddToRecentSearches(r.Context(), sess.User.ID, q)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": results,
	})
}

func (h *SearchHandler) Recent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.GetRecentSearches(r.Context(), middleware.GetUserID(r.Context())))
}

func (h *SearchHandler) ClearRecent(w http.ResponseWriter, r *http.Request) {
	h.history.ClearRecentSearches(r.Context(), middleware.GetUserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *SearchHandler) Popular(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, search.GetPopularSearches())
}
