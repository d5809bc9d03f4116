/**
 * Nora's Law Analysis Worker - Main Entry Point
 *
 * Go worker for legal document ingestion and constitutional-violation
 * analysis.
 *
 * Architecture:
 * - Redis list consumer for jobs enqueued by the web application
 * - Asynq consumer for directly enqueued analysis tasks
 * - Document processing pipeline: PDF text layer, Tesseract OCR, or
 *   plain text, then section extraction
 * - Rate-limited model calls for violation analysis
 * - PostgreSQL persistence for analyses and job status
 * - Qdrant semantic search over processed documents
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/noraslaw/analysis-worker/internal/analysis"
	"github.com/noraslaw/analysis-worker/internal/clients"
	"github.com/noraslaw/analysis-worker/internal/config"
	"github.com/noraslaw/analysis-worker/internal/processor"
	"github.com/noraslaw/analysis-worker/internal/queue"
	"github.com/noraslaw/analysis-worker/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Analysis Worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Qdrant=%s, Workers=%d",
		cfg.RedisURL, cfg.QdrantURL, cfg.WorkerConcurrency)

	// Initialize model clients
	llmClient, err := clients.NewLLMClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize model client: %v", err)
	}

	embeddingClient, err := clients.NewEmbeddingClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDims)
	if err != nil {
		log.Fatalf("Failed to initialize embedding client: %v", err)
	}

	// Initialize unified storage manager (PostgreSQL + Qdrant)
	log.Printf("Connecting to storage (PostgreSQL + Qdrant)...")
	storageManager, err := storage.NewStorageManager(
		cfg.DatabaseURL,
		cfg.QdrantURL,
		embeddingClient,
	)
	if err != nil {
		log.Fatalf("Failed to initialize storage manager: %v", err)
	}
	defer storageManager.Close()
	log.Printf("Storage manager initialized (PostgreSQL + Qdrant)")

	// Initialize analysis service with rate limiting
	limiter := analysis.NewRateLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	analysisService, err := analysis.NewService(llmClient, limiter, cfg.ChatModel)
	if err != nil {
		log.Fatalf("Failed to initialize analysis service: %v", err)
	}
	log.Printf("Analysis service initialized (model=%s, rate limit=%d/%v)",
		cfg.ChatModel, cfg.RateLimitMaxRequests, cfg.RateLimitWindow)

	// Initialize document processor
	proc, err := processor.NewDocumentProcessor(&processor.ProcessorConfig{
		OCRLanguage:    cfg.OCRLanguage,
		MaxFileSize:    cfg.MaxFileSize,
		StorageManager: storageManager,
		Analysis:       analysisService,
	})
	if err != nil {
		log.Fatalf("Failed to initialize document processor: %v", err)
	}
	defer proc.Cleanup()
	log.Printf("Document processor initialized (OCR language=%s)", cfg.OCRLanguage)

	// Initialize Redis intake consumer (jobs from the web application)
	log.Printf("Connecting to Redis queue...")
	redisConsumer, err := queue.NewRedisConsumer(&queue.RedisConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         "analysis:jobs",
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		ProcessingTimeout: cfg.ProcessingTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Redis queue consumer: %v", err)
	}

	// Initialize asynq consumer (directly enqueued tasks)
	asynqConsumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         "analysis:jobs",
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		ProcessingTimeout: cfg.ProcessingTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize asynq consumer: %v", err)
	}
	log.Printf("Queue consumers initialized with concurrency=%d", cfg.WorkerConcurrency)

	// Start consumers
	if err := redisConsumer.Start(); err != nil {
		log.Fatalf("Failed to start Redis queue consumer: %v", err)
	}
	if err := asynqConsumer.Start(); err != nil {
		log.Fatalf("Failed to start asynq consumer: %v", err)
	}

	// Print startup summary
	log.Printf("===========================================")
	log.Printf("Nora's Law Analysis Worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: analysis:jobs")
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Processing timeout: %v", cfg.ProcessingTimeout)
	log.Printf("Model rate limit: %d requests / %v", cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	if err := redisConsumer.Stop(); err != nil {
		log.Printf("Error stopping Redis queue consumer: %v", err)
	}
	if err := asynqConsumer.Stop(); err != nil {
		log.Printf("Error stopping asynq consumer: %v", err)
	}

	if err := storageManager.Close(); err != nil {
		log.Printf("Error closing storage manager: %v", err)
	}

	proc.Cleanup()
	log.Printf("Shutdown complete")
}

// healthCheck verifies connectivity to the persistence layer
func healthCheck(sm *storage.StorageManager) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sm.Ping(ctx); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}

	return nil
}
