/**
 * Asynq task consumer for the Nora's Law analysis worker
 *
 * Consumes analysis tasks from the Redis-backed asynq queue. Task-level
 * retries are suppressed: a failed model call or extraction surfaces to the
 * submitting side, which decides whether to resubmit.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	apperrors "github.com/noraslaw/analysis-worker/internal/errors"
	"github.com/noraslaw/analysis-worker/internal/processor"
)

// TaskProcessDocument is the task type the web application enqueues
const TaskProcessDocument = "analysis:process-document"

// JobData is the payload of an analysis task
type JobData struct {
	JobID        string                 `json:"jobId"`
	UserID       string                 `json:"userId"`
	Filename     string                 `json:"filename"`
	MimeType     string                 `json:"mimeType,omitempty"`
	FileSize     int64                  `json:"fileSize,omitempty"`
	FileURL      string                 `json:"fileUrl,omitempty"`
	FileBuffer   []byte                 `json:"fileBuffer,omitempty"`
	AnalysisType string                 `json:"analysisType,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Consumer handles task consumption from the asynq queue
type Consumer struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.DocumentProcessorInterface
	config    *ConsumerConfig
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.DocumentProcessorInterface
	ProcessingTimeout time.Duration
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		cfg.QueueName = "analysis:jobs"
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task processing error: type=%s, error=%v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:    client,
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		config:    cfg,
	}

	mux.HandleFunc(TaskProcessDocument, consumer.handleProcessDocument)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start() error {
	log.Printf("Starting queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			log.Printf("Queue consumer error: %v", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop() error {
	log.Printf("Stopping queue consumer...")
	c.server.Shutdown()
	return c.client.Close()
}

// handleProcessDocument runs one analysis task under the configured
// processing timeout.
func (c *Consumer) handleProcessDocument(ctx context.Context, task *asynq.Task) error {
	var job JobData
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	if job.JobID == "" {
		return fmt.Errorf("task payload missing jobId: %w", asynq.SkipRetry)
	}

	if err := c.processor.UpdateJobStatus(ctx, job.JobID, "processing", map[string]interface{}{
		"filename": job.Filename,
		"mimeType": job.MimeType,
		"fileSize": job.FileSize,
		"userId":   job.UserID,
	}); err != nil {
		log.Printf("[Job %s] Note: could not mark job as processing: %v", job.JobID, err)
	}

	result, err := runWithTimeout(ctx, c.processor, &job, c.config.ProcessingTimeout)
	if err != nil {
		if updateErr := c.processor.UpdateJobStatus(ctx, job.JobID, "failed", map[string]interface{}{
			"error": err.Error(),
		}); updateErr != nil {
			log.Printf("[Job %s] WARNING: failed to record failure: %v", job.JobID, updateErr)
		}
		// No automatic retries: the submitting side decides
		return fmt.Errorf("job %s failed: %v: %w", job.JobID, err, asynq.SkipRetry)
	}

	if err := c.processor.UpdateJobStatus(ctx, job.JobID, "completed", map[string]interface{}{
		"confidence":     result.Confidence,
		"processingTime": result.ProcessingTimeMs,
		"analysisId":     result.AnalysisID,
		"severity":       result.Severity,
		"violationCount": result.ViolationCount,
	}); err != nil {
		log.Printf("[Job %s] WARNING: failed to record completion: %v", job.JobID, err)
	}

	return nil
}

// runWithTimeout executes the pipeline under a deadline and converts a
// deadline overrun into the typed timeout error.
func runWithTimeout(ctx context.Context, proc processor.DocumentProcessorInterface, job *JobData, timeout time.Duration) (*processor.ProcessResult, error) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := proc.ProcessDocument(ctx, &processor.ProcessRequest{
		JobID:        job.JobID,
		UserID:       job.UserID,
		Filename:     job.Filename,
		MimeType:     job.MimeType,
		FileSize:     job.FileSize,
		FileURL:      job.FileURL,
		FileBuffer:   job.FileBuffer,
		AnalysisType: job.AnalysisType,
		Metadata:     job.Metadata,
	})

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewProcessingTimeoutError(job.JobID, timeout, err)
		}
		return nil, err
	}

	return result, nil
}
