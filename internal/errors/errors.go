package errors

import (
	"fmt"
	"time"
)

/**
 * Custom error types for the Nora's Law analysis worker
 *
 * Every component boundary (extraction, analysis, storage, queue) surfaces
 * one of these codes so callers can map failures to user-facing messages
 * without parsing error strings.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Ingestion errors
	ErrorExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// Analysis errors
	ErrorRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrorModelCallFailed   ErrorCode = "MODEL_CALL_FAILED"

	// Timeouts (any blocking call that outlives its deadline)
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"

	// Storage errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// WorkerError represents a structured worker error
type WorkerError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *WorkerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *WorkerError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

// NewExtractionFailedError wraps a PDF/OCR/plain-text read failure.
// The underlying message is preserved through Cause so callers can log it.
func NewExtractionFailedError(jobID string, source string, cause error) *WorkerError {
	return &WorkerError{
		Code:      ErrorExtractionFailed,
		Message:   fmt.Sprintf("failed to process document (%s extraction)", source),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"extraction_source": source,
		},
		Cause: cause,
	}
}

// NewRateLimitExceededError is raised before any external call when the
// request budget is exhausted. Never retried internally.
func NewRateLimitExceededError(limit int, window time.Duration) *WorkerError {
	return &WorkerError{
		Code:      ErrorRateLimitExceeded,
		Message:   fmt.Sprintf("rate limit exceeded (%d requests per %v)", limit, window),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"limit":  limit,
			"window": window.String(),
		},
	}
}

// NewModelCallFailedError carries a generic retryable message; the transport
// detail stays in Cause for logging and is never shown to end users.
func NewModelCallFailedError(operation string, cause error) *WorkerError {
	return &WorkerError{
		Code:      ErrorModelCallFailed,
		Message:   fmt.Sprintf("failed to generate response (%s)", operation),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *WorkerError {
	return &WorkerError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *WorkerError {
	return &WorkerError{
		Code:      ErrorStorageFailed,
		Message:   "failed to store analysis results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// IsCode reports whether err is a WorkerError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	we, ok := err.(*WorkerError)
	return ok && we.Code == code
}

// ToMap converts error to map for database storage
func (e *WorkerError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
