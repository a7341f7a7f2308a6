package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/middleware"
)

type GamificationHandler struct {
	resolver *datasource.Resolver
}

func NewGamificationHandler(resolver *datasource.Resolver) *GamificationHandler {
	return &GamificationHandler{resolver: resolver}
}

func (h *GamificationHandler) source(w http.ResponseWriter, r *http.Request) (datasource.GamificationSource, datasource.Mode) {
	src, mode := h.resolver.Gamification(r.Context(), middleware.GetSession(r.Context()))
	setSource(w, mode)
	return src, mode
}

func (h *GamificationHandler) Profile(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	profile, err := src.Profile(r.Context())
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *GamificationHandler) Badges(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	badges, err := src.Badges(r.Context())
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *GamificationHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	board, err := src.Leaderboard(r.Context())
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *GamificationHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	rewards, err := src.Rewards(r.Context())
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *GamificationHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	res, err := src.Redeem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Reward not found", r))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// History is the local points history; the remote backend has no equivalent.
func (h *GamificationHandler) History(w http.ResponseWriter, r *http.Request) {
	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	setSource(w, datasource.ModeLocal)
	writeJSON(w, http.StatusOK, ws.Engine.History(r.Context()))
}
