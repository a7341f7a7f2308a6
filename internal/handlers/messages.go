package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
)

type MessageHandler struct {
	resolver *datasource.Resolver
}

func NewMessageHandler(resolver *datasource.Resolver) *MessageHandler {
	return &MessageHandler{resolver: resolver}
}

func (h *MessageHandler) source(w http.ResponseWriter, r *http.Request) (datasource.MessageSource, datasource.Mode) {
	src, mode := h.resolver.Messages(r.Context(), middleware.GetSession(r.Context()))
	setSource(w, mode)
	return src, mode
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.ReceiverID == middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "You cannot message yourself", r))
		return
	}

	src, mode := h.source(w, r)
	msg, err := src.Send(r.Context(), req)
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Thread returns the conversation with one counterpart and marks the
// received messages as read.
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	msgs, err := src.Thread(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	convs, err := src.Conversations(r.Context())
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	updated, err := src.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	n, err := src.UnreadCount(r.Context())
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
