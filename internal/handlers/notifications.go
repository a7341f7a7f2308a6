package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/notifications"
)

type NotificationHandler struct {
	resolver *datasource.Resolver
}

func NewNotificationHandler(resolver *datasource.Resolver) *NotificationHandler {
	return &NotificationHandler{resolver: resolver}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": ws.Feed.List(r.Context()),
		"unread":        ws.Feed.UnreadCount(r.Context()),
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	if !ws.Feed.MarkRead(r.Context(), chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Notification not found", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ws := h.resolver.Workspace(r.Context(), middleware.GetSession(r.Context()))
	writeJSON(w, http.StatusOK, map[string]int{"updated": ws.Feed.MarkAllRead(r.Context())})
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs := notifications.GetPreferences(r.Context(), h.resolver.Registry().Store(), middleware.GetUserID(r.Context()))
	writeJSON(w, http.StatusOK, prefs)
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePreferencesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	prefs := notifications.UpdatePreferences(r.Context(), h.resolver.Registry().Store(), middleware.GetUserID(r.Context()), req)
	writeJSON(w, http.StatusOK, prefs)
}
