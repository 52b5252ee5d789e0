package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string // optional; engagement counters disabled when empty

	// LLM provider (OpenAI-compatible chat completions endpoint)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration
	LLMMaxRPS  int // outbound requests per second to the provider

	// Conversation windows
	HistoryWindow int // turns included in the prompt
	HistoryKeep   int // turns retained per user after trim
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8000"),
		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017/fitcoach"),
		RedisURL: getEnv("REDIS_URL", ""),

		LLMBaseURL: getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gemini-2.5-flash-lite"),
		LLMTimeout: getDurationEnv("LLM_TIMEOUT", 60*time.Second),
		LLMMaxRPS:  getIntEnv("LLM_MAX_RPS", 5),

		HistoryWindow: getIntEnv("HISTORY_WINDOW", 10),
		HistoryKeep:   getIntEnv("HISTORY_KEEP", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
