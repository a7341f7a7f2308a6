package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
)

// ProgressHandler serves quizzes and study sessions. Both live only in the
// local workspace.
type ProgressHandler struct {
	resolver *datasource.Resolver
}

func NewProgressHandler(resolver *datasource.Resolver) *ProgressHandler {
	return &ProgressHandler{resolver: resolver}
}

func (h *ProgressHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.QuizSubmission
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	result := ws.Progress.RecordQuiz(r.Context(), req)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"result":  result,
		"profile": ws.Engine.Profile(r.Context()),
	})
}

func (h *ProgressHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	writeJSON(w, http.StatusOK, ws.Progress.ListQuizzes(r.Context()))
}

func (h *ProgressHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject" validate:"required,max=100"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	session := ws.Progress.StartSession(r.Context(), req.Subject)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": session,
	})
}

func (h *ProgressHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	session := ws.Progress.StopSession(r.Context(), chi.URLParam(r, "id"))
	if session == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study session not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"profile": ws.Engine.Profile(r.Context()),
	})
}

func (h *ProgressHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	writeJSON(w, http.StatusOK, ws.Progress.ListSessions(r.Context()))
}
