package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"studyspot-backend/internal/config"
	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/handlers"
	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/presence"
	"studyspot-backend/internal/remote"
	"studyspot-backend/internal/router"
	"studyspot-backend/internal/services"
	"studyspot-backend/internal/simulation"
	"studyspot-backend/internal/store"
	"studyspot-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("✗ Logger initialization failed: %v", err)
	}
	defer lg.Sync()
	lg.Info("🚀 Starting StudySpot backend...", "env", cfg.Env)
	lg.Info("✓ Environment variables loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Open Durable Store ────
	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Prefix:      cfg.StorePrefix,
		Path:        cfg.StorePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		Timeout:     cfg.StoreTimeout,
	}, lg)
	if err != nil {
		lg.Fatal("✗ Store initialization failed", "backend", cfg.StoreBackend, "error", err)
	}
	defer st.Close()
	if prev := st.EnsureSchema(ctx); prev != store.SchemaVersion {
		lg.Info("✓ Store schema recorded", "previous", prev, "current", store.SchemaVersion)
	}
	lg.Info("✓ Store opened", "backend", cfg.StoreBackend, "prefix", cfg.StorePrefix)

	if cfg.SeedDemoData {
		written := simulation.Seed(ctx, st, time.Now().UTC(), false)
		lg.Info("✓ Demo data seeded", "keys", written)
	}

	// ──── Step 3: Initialize Redis Pub/Sub (optional) ────
	var pubsub *redis.Client
	if cfg.RedisURL != "" {
		pubsub, err = store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			lg.Warn("✗ Redis pub/sub unavailable, realtime events stay on this instance", "error", err)
			pubsub = nil
		} else {
			defer pubsub.Close()
			lg.Info("✓ Redis pub/sub connected")
		}
	}

	// ──── Step 4: Start Presence Tracker ────
	tracker := presence.Default(
		presence.WithLogger(lg),
		presence.WithSweepInterval(cfg.PresenceSweepInterval),
	)
	defer presence.Destroy()
	lg.Info("✓ Presence tracker started", "sweep", cfg.PresenceSweepInterval.String())

	// ──── Step 5: Configure Remote Backend and Token Verification ────
	var (
		remoteClient *remote.Client
		authOpts     []middleware.AuthOption
	)
	if cfg.RemoteAPIURL != "" {
		remoteClient = remote.New(cfg.RemoteAPIURL, 10*time.Second)
		if cfg.RemoteJWTSecret != "" {
			authOpts = append(authOpts, middleware.WithRemoteSecret(cfg.RemoteJWTSecret))
		} else {
			authOpts = append(authOpts, middleware.WithRemoteVerifier(remoteClient, cfg.RemoteAuthCacheTTL))
		}
		lg.Info("✓ Remote backend configured", "url", cfg.RemoteAPIURL, "shared_key", cfg.RemoteJWTSecret != "")
	} else {
		lg.Info("✓ No remote backend configured, serving everything locally")
	}
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, authOpts...)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(jwtAuth, pubsub, tracker, lg)
	defer wsHub.Close()
	lg.Info("✓ WebSocket hub started")

	// ──── Step 7: Build Local Workspaces and Data-Source Resolver ────
	registry := simulation.NewRegistry(ctx, st,
		simulation.WithLogger(lg),
		simulation.WithPublisher(wsHub),
		simulation.WithDemoSeed(cfg.SeedDemoData),
	)

	resolver := datasource.NewResolver(registry, remoteClient,
		datasource.WithLogger(lg),
		datasource.WithProbeInterval(cfg.RemoteProbeInterval),
	)

	// ──── Step 8: Initialize Services ────
	assistant, err := services.NewAssistantService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, lg)
	if err != nil {
		lg.Fatal("✗ Gemini client initialization failed", "error", err)
	}
	defer assistant.Close()
	if assistant.Online() {
		lg.Info("✓ Gemini assistant initialized")
	} else {
		lg.Info("✓ Assistant running offline (no GEMINI_API_KEY)")
	}

	authService := services.NewAuthService(st, jwtAuth, tracker, lg)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL, lg)

	reminders := services.NewReminderScheduler(registry, emailService, lg)
	reminders.Start()
	defer reminders.Stop()

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, jwtAuth, tracker)
	homeworkHandler := handlers.NewHomeworkHandler(resolver)
	messageHandler := handlers.NewMessageHandler(resolver)
	gamificationHandler := handlers.NewGamificationHandler(resolver)
	progressHandler := handlers.NewProgressHandler(resolver)
	notificationHandler := handlers.NewNotificationHandler(resolver)
	presenceHandler := handlers.NewPresenceHandler(tracker)
	searchHandler := handlers.NewSearchHandler(registry.History())
	dashboardHandler := handlers.NewDashboardHandler(resolver)
	assistantHandler := handlers.NewAssistantHandler(assistant, resolver)

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		tracker,
		authHandler,
		homeworkHandler,
		messageHandler,
		gamificationHandler,
		progressHandler,
		notificationHandler,
		presenceHandler,
		searchHandler,
		dashboardHandler,
		assistantHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lg.Info("✓ StudySpot backend ready", "api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
			"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return registry.RunSync(gctx, cfg.GamificationSyncInterval)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("✗ Server stopped with error", "error", err)
	}
}
