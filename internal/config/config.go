/**
 * Configuration for the Nora's Law analysis worker
 *
 * Loads configuration from environment variables. A .env file, if present,
 * is read by main before this runs.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration (intake queue + asynq)
	RedisURL string

	// PostgreSQL configuration
	DatabaseURL string

	// Qdrant vector database configuration
	QdrantURL string

	// OpenAI-compatible model endpoint
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string
	EmbeddingDims  int

	// Worker configuration
	WorkerConcurrency int
	MaxFileSize       int64
	ProcessingTimeout time.Duration

	// Rate limiting for model calls
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	// OCR language
	OCRLanguage string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:             getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		QdrantURL:            getEnvOrDefault("QDRANT_URL", "localhost:6334"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:            getEnvOrDefault("OPENAI_CHAT_MODEL", "gpt-4-turbo-preview"),
		EmbeddingModel:       getEnvOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDims:        getEnvAsIntOrDefault("EMBEDDING_DIMENSIONS", 1536),
		WorkerConcurrency:    getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		MaxFileSize:          getEnvAsInt64OrDefault("MAX_FILE_SIZE", 52428800), // 50MB
		ProcessingTimeout:    time.Duration(getEnvAsIntOrDefault("PROCESSING_TIMEOUT_MS", 300000)) * time.Millisecond,
		RateLimitMaxRequests: getEnvAsIntOrDefault("RATE_LIMIT_MAX_REQUESTS", 50),
		RateLimitWindow:      time.Duration(getEnvAsIntOrDefault("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		OCRLanguage:          getEnvOrDefault("OCR_LANGUAGE", "eng"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 5368709120 { // 1KB to 5GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 5GB, got %d", c.MaxFileSize)
	}

	if c.RateLimitMaxRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive, got %d", c.RateLimitMaxRequests)
	}

	if c.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be at least 1000, got %v", c.RateLimitWindow)
	}

	if c.EmbeddingDims < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDims)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
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

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
