package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/homework"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/presence"
	"studyspot-backend/internal/remote"
	"studyspot-backend/internal/services"
	"studyspot-backend/internal/simulation"
)

type AuthHandler struct {
	authService *services.AuthService
	jwt         *middleware.JWTAuth
	tracker     *presence.Tracker
}

func NewAuthHandler(authService *services.AuthService, jwt *middleware.JWTAuth, tracker *presence.Tracker) *AuthHandler {
	return &AuthHandler{authService: authService, jwt: jwt, tracker: tracker}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := h.authService.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokens)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := h.authService.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

var demoUsers = map[string]models.User{
	models.RoleStudent: simulation.DemoStudent,
	models.RoleParent:  simulation.DemoParent,
	models.RoleTeacher: simulation.DemoTeacher,
}

// Demo signs in as one of the built-in demo users without an account.
func (h *AuthHandler) Demo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role" validate:"required,oneof=student parent teacher"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user := demoUsers[req.Role]
	token, err := h.jwt.GenerateLocalToken(user)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if h.tracker != nil {
		h.tracker.UserLoggedIn(presence.User{ID: user.ID, Name: user.FullName, Email: user.Email, Role: user.Role})
	}

	writeJSON(w, http.StatusOK, models.AuthTokens{
		AccessToken: token,
		ExpiresIn:   int(h.jwt.TTL.Seconds()),
		User:        user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout(r.Context(), middleware.GetUserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	user := sess.User
	if sess.Local {
		if account, err := h.authService.Profile(r.Context(), sess.User.ID); err == nil {
			user = *account
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"local": sess.Local,
	})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func setSource(w http.ResponseWriter, mode datasource.Mode) {
	w.Header().Set(datasource.HeaderDataSource, string(mode))
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var remoteErr *remote.Error
	switch {
	case errors.Is(err, homework.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResp("INVALID_TRANSITION", "Homework status cannot change that way", r))
		return
	case errors.Is(err, datasource.ErrInsufficientPoints):
		writeJSON(w, http.StatusBadRequest, errorResp("INSUFFICIENT_POINTS", "Not enough points for this reward", r))
		return
	case errors.Is(err, datasource.ErrAlreadyRedeemed):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Reward already redeemed", r))
		return
	case errors.As(err, &remoteErr):
		// Client errors from the backend are passed through, everything else is a gateway failure.
		if remoteErr.Status >= 400 && remoteErr.Status < 500 && remoteErr.Code != "" {
			writeJSON(w, remoteErr.Status, errorResp(remoteErr.Code, remoteErr.Message, r))
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "The study backend is not responding correctly", r))
		return
	}

	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", e.Message, r))
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", e.Message, r))
	case *services.RateLimitError:
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", e.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

// handleSourceError reports a failed data-source call. Transport failures on
// the remote side become 502.
func handleSourceError(w http.ResponseWriter, r *http.Request, mode datasource.Mode, err error) {
	var remoteErr *remote.Error
	if mode == datasource.ModeRemote && !errors.As(err, &remoteErr) {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "The study backend is unreachable", r))
		return
	}
	handleServiceError(w, r, err)
}
