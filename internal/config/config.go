package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database (postgres:// or sqlite://path)
	DatabaseURL    string
	MigrateOnStart bool

	// Redis; empty disables the workers and pub/sub relay
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	TickRateHz      int
	MaxFrameDeltaMs int
	WinningScore    int

	// Match lifecycle
	MatchExpiryMinutes     int
	IdleWarningSeconds     int
	IdleForfeitSeconds     int
	DisconnectGraceSeconds int
	IdleWorkerPollSeconds  int
	MatchmakerPollSeconds  int
	QueueTicketTTLMinutes  int

	// Security
	JWTSecret       string
	TokenTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),

		DatabaseURL:    getEnv("DATABASE_URL", "sqlite://carom.db"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		RedisURL: os.Getenv("REDIS_URL"),

		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		TickRateHz:      getEnvInt("TICK_RATE_HZ", 60),
		MaxFrameDeltaMs: getEnvInt("MAX_FRAME_DELTA_MS", 100),
		WinningScore:    getEnvInt("WINNING_SCORE", 100),

		MatchExpiryMinutes:     getEnvInt("MATCH_EXPIRY_MINUTES", 10),
		IdleWarningSeconds:     getEnvInt("IDLE_WARNING_SECONDS", 45),
		IdleForfeitSeconds:     getEnvInt("IDLE_FORFEIT_SECONDS", 90),
		DisconnectGraceSeconds: getEnvInt("DISCONNECT_GRACE_SECONDS", 30),
		IdleWorkerPollSeconds:  getEnvInt("IDLE_WORKER_POLL_SECONDS", 1),
		MatchmakerPollSeconds:  getEnvInt("MATCHMAKER_POLL_SECONDS", 2),
		QueueTicketTTLMinutes:  getEnvInt("QUEUE_TICKET_TTL_MINUTES", 10),

		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLMinutes: getEnvInt("TOKEN_TTL_MINUTES", 120),
	}
}

// IsProduction gates the stricter CORS and websocket origin rules.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
