package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Ai      AIConfig
	Session SessionConfig
	Otel    OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	WsSendBuffer       int
	NatsURL            string // empty disables lifecycle event publication
	RedisURL           string // empty disables cross-instance snapshot fan-out
}

type StorageConfig struct {
	Driver     string // "memory" | "sqlite" | "redis" | "postgres"
	SqlitePath string
	Connection string // postgres DSN
	RedisURL   string
}

type AIConfig struct {
	LLMProvider   string // "gemini" | "ollama"
	GeminiAPIKey  string
	FastModel     string // backend model for the fast tier
	ProModel      string // backend model for the pro tier
	ImageModel    string
	OllamaBaseURL string
}

type SessionConfig struct {
	// EphemeralOnLaunch opens a fresh temporary chat for a returning profile
	// instead of restoring the last active one.
	EphemeralOnLaunch bool
}

type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "ws.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			WsSendBuffer:       getEnvAsInt("WS_SEND_BUFFER", 256),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", "sqlite")),
			SqlitePath: getEnv("SQLITE_PATH", "sam.db"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			RedisURL:   getEnv("STORAGE_REDIS_URL", "redis://localhost:6379"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
			GeminiAPIKey:  getEnv("GOOGLE_GEMINI_API_KEY", ""),
			FastModel:     getEnv("LLM_FAST_MODEL", "gemini-2.5-flash"),
			ProModel:      getEnv("LLM_PRO_MODEL", "gemini-2.5-pro"),
			ImageModel:    getEnv("LLM_IMAGE_MODEL", "gemini-2.5-flash-image"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Session: SessionConfig{
			EphemeralOnLaunch: getEnvAsBool("SESSION_EPHEMERAL_ON_LAUNCH", true),
		},
		Otel: OtelConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "sam-chat-be"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
