package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "studyspot-dev-secret"

type Config struct {
	// Server
	Port string
	Env  string

	// Store
	StoreBackend string // "memory" | "sqlite" | "redis" | "postgres"
	StorePrefix  string
	StorePath    string
	StoreTimeout time.Duration
	DatabaseURL  string
	RedisURL     string

	// JWT
	JWTSecret string

	// Remote backend (empty means always local)
	RemoteAPIURL        string
	RemoteProbeInterval time.Duration
	RemoteJWTSecret     string        // verifies remote tokens locally when set
	RemoteAuthCacheTTL  time.Duration // reuse of a backend-verified token

	// Gemini AI
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	// Timers
	PresenceSweepInterval    time.Duration
	GamificationSyncInterval time.Duration

	SeedDemoData bool

	// SMTP (empty host means reminder emails are only logged)
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                     getEnvOrDefault("PORT", "8080"),
		Env:                      getEnvOrDefault("ENV", "development"),
		StoreBackend:             getEnvOrDefault("STORE_BACKEND", "sqlite"),
		StorePrefix:              getEnvOrDefault("STORE_PREFIX", "studyspot_"),
		StorePath:                getEnvOrDefault("STORE_PATH", "./data"),
		StoreTimeout:             getEnvAsDurationOrDefault("STORE_TIMEOUT", 3*time.Second),
		JWTSecret:                getEnvOrDefault("JWT_SECRET", devJWTSecret),
		RemoteAPIURL:             getEnvOrDefault("REMOTE_API_URL", ""),
		RemoteProbeInterval:      getEnvAsDurationOrDefault("REMOTE_PROBE_INTERVAL", 30*time.Second),
		RemoteJWTSecret:          getEnvOrDefault("REMOTE_JWT_SECRET", ""),
		RemoteAuthCacheTTL:       getEnvAsDurationOrDefault("REMOTE_AUTH_CACHE_TTL", 5*time.Minute),
		GeminiAPIKey:             getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiConcurrentReqs:     getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		PresenceSweepInterval:    getEnvAsDurationOrDefault("PRESENCE_SWEEP_INTERVAL", 30*time.Second),
		GamificationSyncInterval: getEnvAsDurationOrDefault("GAMIFICATION_SYNC_INTERVAL", 10*time.Second),
		SeedDemoData:             getEnvAsBoolOrDefault("SEED_DEMO_DATA", false),
		SMTPHost:                 getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:                 getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:                 getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:                 getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:                 getEnvOrDefault("SMTP_FROM", "StudySpot <noreply@studyspot.local>"),
		FrontendURL:              getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	switch cfg.StoreBackend {
	case "postgres":
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	case "redis":
		cfg.RedisURL = mustGetEnv("REDIS_URL")
	default:
		cfg.RedisURL = getEnvOrDefault("REDIS_URL", "")
	}

	if cfg.Env == "production" {
		cfg.JWTSecret = mustGetEnv("JWT_SECRET")
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
