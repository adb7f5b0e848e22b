package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "bgem3" or "ollama"
	EmbeddingBaseURL  string
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama", "openai"
	LLMModel          string
	LLMBaseURL        string
	LLMAPIKey         string
	RerankerBaseURL   string
}

// RetrievalConfig surfaces the ranking knobs. Defaults match the tuned
// production values; override only with evaluation data in hand.
type RetrievalConfig struct {
	OverFetch       int
	FinalCount      int
	MMRPoolSize     int
	MMRLambda       float64
	RRFConstant     int
	RecencyWeight   float64
	AuthorityWeight float64
	LaneTimeout     time.Duration
	HistoryTurns    int
	ContextBudget   int
}

type IngestConfig struct {
	Topic         string
	Workers       int
	RatePerSecond float64
	Burst         int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "bgem3"),
			EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", "http://localhost:8080"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
			RerankerBaseURL:   getEnv("RERANKER_BASE_URL", "http://localhost:8081"),
		},
		Retrieval: RetrievalConfig{
			OverFetch:       getEnvAsInt("RETRIEVAL_OVERFETCH", 250),
			FinalCount:      getEnvAsInt("RETRIEVAL_FINAL_COUNT", 10),
			MMRPoolSize:     getEnvAsInt("RETRIEVAL_MMR_POOL", 20),
			MMRLambda:       getEnvAsFloat("RETRIEVAL_MMR_LAMBDA", 0.85),
			RRFConstant:     getEnvAsInt("RETRIEVAL_RRF_K", 60),
			RecencyWeight:   getEnvAsFloat("RETRIEVAL_RECENCY_WEIGHT", 0.10),
			AuthorityWeight: getEnvAsFloat("RETRIEVAL_AUTHORITY_WEIGHT", 0.10),
			LaneTimeout:     getEnvAsDuration("RETRIEVAL_LANE_TIMEOUT", 10*time.Second),
			HistoryTurns:    getEnvAsInt("CONVERSATION_HISTORY_TURNS", 5),
			ContextBudget:   getEnvAsInt("CONVERSATION_CONTEXT_BUDGET", 24000),
		},
		Ingest: IngestConfig{
			Topic:         getEnv("INGEST_TOPIC", "embed_document"),
			Workers:       getEnvAsInt("INGEST_WORKERS", 4),
			RatePerSecond: getEnvAsFloat("INGEST_RATE_PER_SECOND", 8),
			Burst:         getEnvAsInt("INGEST_BURST", 16),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
