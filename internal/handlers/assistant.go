package handlers

import (
	"net/http"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/services"
)

const aiUsagePoints = 5

type AssistantHandler struct {
	assistant *services.AssistantService
	resolver  *datasource.Resolver
}

func NewAssistantHandler(assistant *services.AssistantService, resolver *datasource.Resolver) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, resolver: resolver}
}

func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	reply, source, err := h.assistant.Ask(ctx, req.Message, req.Subject, req.History)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	sess := middleware.GetSession(ctx)
	gm, mode := h.resolver.Gamification(ctx, sess)
	setSource(w, mode)

	var profile models.GamificationProfile
	if mode == datasource.ModeLocal {
		// The remote backend tracks AI usage itself.
		ws := h.resolver.Workspace(ctx, sess)
		ws.Engine.RecordAIUsage(ctx)
		profile = ws.Engine.AwardPoints(ctx, aiUsagePoints, "Asked the study assistant")
	} else if profile, err = gm.Profile(ctx); err != nil {
		handleSourceError(w, r, mode, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Reply:   reply,
		Source:  source,
		Profile: profile,
	})
}
