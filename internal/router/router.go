package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyspot-backend/internal/handlers"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/presence"
	"studyspot-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	tracker *presence.Tracker,
	authHandler *handlers.AuthHandler,
	homeworkHandler *handlers.HomeworkHandler,
	messageHandler *handlers.MessageHandler,
	gamificationHandler *handlers.GamificationHandler,
	progressHandler *handlers.ProgressHandler,
	notificationHandler *handlers.NotificationHandler,
	presenceHandler *handlers.PresenceHandler,
	searchHandler *handlers.SearchHandler,
	dashboardHandler *handlers.DashboardHandler,
	assistantHandler *handlers.AssistantHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// Assistant rate limiter (20 req/min per user)
	assistantLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Authenticated requests also count as presence activity.
	authed := func(r chi.Router) {
		r.Use(jwtAuth.Middleware)
		r.Use(middleware.Activity(tracker))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/demo", authHandler.Demo)

			r.Group(func(r chi.Router) {
				authed(r)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		// ──── Homework Routes ────
		r.Route("/homework", func(r chi.Router) {
			authed(r)
			r.Get("/", homeworkHandler.List)
			r.Post("/", homeworkHandler.Create)
			r.Get("/{id}", homeworkHandler.Get)
			r.Patch("/{id}", homeworkHandler.Update)
			r.Delete("/{id}", homeworkHandler.Delete)
			r.Post("/{id}/complete", homeworkHandler.Complete)
		})

		// ──── Message Routes ────
		r.Route("/messages", func(r chi.Router) {
			authed(r)
			r.Post("/", messageHandler.Send)
			r.Get("/conversations", messageHandler.Conversations)
			r.Get("/unread-count", messageHandler.UnreadCount)
			r.Get("/with/{userID}", messageHandler.Thread)
			r.Post("/{id}/read", messageHandler.MarkRead)
		})

		// ──── Gamification Routes ────
		r.Route("/gamification", func(r chi.Router) {
			authed(r)
			r.Get("/profile", gamificationHandler.Profile)
			r.Get("/badges", gamificationHandler.Badges)
			r.Get("/leaderboard", gamificationHandler.Leaderboard)
			r.Get("/history", gamificationHandler.History)
			r.Get("/rewards", gamificationHandler.Rewards)
			r.Post("/rewards/{id}/redeem", gamificationHandler.Redeem)
		})

		// ──── Quiz Routes ────
		r.Route("/quizzes", func(r chi.Router) {
			authed(r)
			r.Get("/", progressHandler.ListQuizzes)
			r.Post("/", progressHandler.SubmitQuiz)
		})

		// ──── Study Session Routes ────
		r.Route("/study-sessions", func(r chi.Router) {
			authed(r)
			r.Get("/", progressHandler.ListSessions)
			r.Post("/start", progressHandler.StartSession)
			r.Post("/{id}/stop", progressHandler.StopSession)
		})

		// ──── Notification Routes ────
		r.Route("/notifications", func(r chi.Router) {
			authed(r)
			r.Get("/", notificationHandler.List)
			r.Post("/read-all", notificationHandler.MarkAllRead)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})

		r.Route("/preferences", func(r chi.Router) {
			authed(r)
			r.Get("/", notificationHandler.GetPreferences)
			r.Put("/", notificationHandler.UpdatePreferences)
		})

		// ──── Presence Routes ────
		r.Route("/presence", func(r chi.Router) {
			authed(r)
			r.Post("/heartbeat", presenceHandler.Heartbeat)
			r.With(middleware.RequireRole(models.RoleAdmin)).Get("/online", presenceHandler.Online)
		})

		// ──── Search Routes ────
		r.Route("/search", func(r chi.Router) {
			authed(r)
			r.Get("/", searchHandler.Query)
			r.Get("/recent", searchHandler.Recent)
			r.Delete("/recent", searchHandler.ClearRecent)
			r.Get("/popular", searchHandler.Popular)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			authed(r)
			r.Get("/stats", dashboardHandler.Stats)
		})

		// ──── Assistant Routes ────
		r.Route("/assistant", func(r chi.Router) {
			authed(r)
			r.Use(assistantLimiter.Middleware)
			r.Post("/ask", assistantHandler.Ask)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
