package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	GoogleApiKey string
	TavilyApiKey string
	DatabaseURL  string
	Port         string

	QueryGeneratorModel string
	ReasoningModel      string

	InitialQueryCount  int
	MaxResearchLoops   int
	QueryTimeout       time.Duration
	MaxSourcesPerQuery int

	ChunkSize      int
	ChunkOverlap   int
	EmbeddingModel string
	CollectionName string
}

func Load() *Config {
	return &Config{
		GoogleApiKey:        getEnv("GOOGLE_API_KEY", ""),
		TavilyApiKey:        getEnv("TAVILY_API_KEY", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		Port:                getEnv("PORT", "3000"),
		QueryGeneratorModel: getEnv("QUERY_GENERATOR_MODEL", "gemini-3-flash-preview"),
		ReasoningModel:      getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		InitialQueryCount:   getEnvAsInt("INITIAL_QUERY_COUNT", 3),
		MaxResearchLoops:    getEnvAsInt("MAX_RESEARCH_LOOPS", 2),
		QueryTimeout:        getEnvAsDuration("QUERY_TIMEOUT", 60*time.Second),
		MaxSourcesPerQuery:  getEnvAsInt("MAX_SOURCES_PER_QUERY", 5),
		ChunkSize:           getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:        getEnvAsInt("CHUNK_OVERLAP", 200),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName:      getEnv("COLLECTION_NAME", "research_findings"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
