package handlers

import (
	"net/http"

	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/presence"
)

type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// Heartbeat marks the caller active and records the page they are on.
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page string `json:"page" validate:"max=200"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess := middleware.GetSession(r.Context())
	middleware.Touch(h.tracker, sess)
	if req.Page != "" {
		h.tracker.UpdateCurrentPage(sess.User.ID, req.Page)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	online := h.tracker.GetOnlineUsers()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": online,
		"count": len(online),
	})
}
