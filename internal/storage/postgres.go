/**
 * PostgreSQL client for the Nora's Law analysis worker
 *
 * Persists job status and structured analysis results. The web application
 * reads these tables to show per-document progress and the analysis view.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	Confidence       float64
	ProcessingTimeMs int64
	AnalysisID       string
	ErrorCode        string
	ErrorMessage     string
	Metadata         map[string]interface{}
}

// sanitizeConfidence rounds confidence to 4 decimal places and clamps to
// [0.0, 1.0]. Float64 representations like 0.9632000000000001 trip
// PostgreSQL's NUMERIC casting otherwise.
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0.0 {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return float64(int(confidence*10000+0.5)) / 10000
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// UpdateJobStatus upserts a job status row. The worker may see a job
// before the web application created its record, so the first status
// update creates it.
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	sanitizedConfidence := sanitizeConfidence(update.Confidence)

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var filename, mimeType, userID string
	var fileSize int64
	if update.Metadata != nil {
		if fn, ok := update.Metadata["filename"].(string); ok {
			filename = fn
		}
		if mt, ok := update.Metadata["mimeType"].(string); ok {
			mimeType = mt
		}
		if fs, ok := update.Metadata["fileSize"].(int64); ok {
			fileSize = fs
		} else if fs, ok := update.Metadata["fileSize"].(float64); ok {
			fileSize = int64(fs)
		}
		if uid, ok := update.Metadata["userId"].(string); ok {
			userID = uid
		}
	}

	query := `
		INSERT INTO noraslaw.analysis_jobs (
			id, user_id, filename, mime_type, file_size,
			status, confidence, processing_time_ms, analysis_id,
			error_code, error_message, metadata,
			created_at, updated_at
		) VALUES (
			$1::uuid, COALESCE(NULLIF($10, ''), 'anonymous'), COALESCE(NULLIF($8, ''), 'unknown.txt'),
			COALESCE(NULLIF($9, ''), 'application/octet-stream'), COALESCE($11, 0),
			$2, NULLIF($3::NUMERIC(5,4), 0), NULLIF($4, 0),
			CASE WHEN $5 = '' THEN NULL ELSE $5::uuid END,
			NULLIF($6, ''), NULLIF($7, ''),
			COALESCE($12::jsonb, '{}'::jsonb),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			confidence = COALESCE(NULLIF(EXCLUDED.confidence::NUMERIC(5,4), 0), noraslaw.analysis_jobs.confidence),
			processing_time_ms = COALESCE(NULLIF(EXCLUDED.processing_time_ms, 0), noraslaw.analysis_jobs.processing_time_ms),
			analysis_id = COALESCE(EXCLUDED.analysis_id, noraslaw.analysis_jobs.analysis_id),
			error_code = NULLIF(EXCLUDED.error_code, ''),
			error_message = NULLIF(EXCLUDED.error_message, ''),
			metadata = COALESCE(EXCLUDED.metadata, noraslaw.analysis_jobs.metadata),
			filename = COALESCE(EXCLUDED.filename, noraslaw.analysis_jobs.filename),
			mime_type = COALESCE(EXCLUDED.mime_type, noraslaw.analysis_jobs.mime_type),
			file_size = COALESCE(NULLIF(EXCLUDED.file_size, 0), noraslaw.analysis_jobs.file_size),
			user_id = COALESCE(EXCLUDED.user_id, noraslaw.analysis_jobs.user_id),
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,            // $1
		update.Status,           // $2
		sanitizedConfidence,     // $3
		update.ProcessingTimeMs, // $4
		update.AnalysisID,       // $5
		update.ErrorCode,        // $6
		update.ErrorMessage,     // $7
		filename,                // $8
		mimeType,                // $9
		userID,                  // $10
		fileSize,                // $11
		metadataJSON,            // $12
	).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("job not found: %s", update.JobID)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// analysisRow is the persisted form of one document analysis
type analysisRow struct {
	ID              string
	JobID           string
	UserID          string
	Filename        string
	AnalysisType    string
	Severity        string
	Confidence      float64
	Violations      []byte
	Authenticity    []byte
	ChainOfCustody  []byte
	Recommendations []byte
	ExtractedText   string
	WordCount       int
	PageCount       int
}

// insertAnalysis stores one analysis row and returns its generated ID
func (p *PostgresClient) insertAnalysis(ctx context.Context, row *analysisRow) (string, error) {
	query := `
		INSERT INTO noraslaw.document_analyses (
			id, job_id, user_id, filename, analysis_type,
			severity, confidence, violations, authenticity,
			chain_of_custody, recommendations, extracted_text,
			word_count, page_count, created_at
		) VALUES (
			$1::uuid, $2::uuid, $3, $4, $5,
			$6, $7::NUMERIC(5,4), $8::jsonb, $9::jsonb,
			$10::jsonb, $11::jsonb, $12,
			$13, $14, NOW()
		)
		RETURNING id
	`

	var id string
	err := p.db.QueryRowContext(
		ctx,
		query,
		row.ID,
		row.JobID,
		row.UserID,
		row.Filename,
		row.AnalysisType,
		row.Severity,
		sanitizeConfidence(row.Confidence),
		row.Violations,
		row.Authenticity,
		row.ChainOfCustody,
		row.Recommendations,
		row.ExtractedText,
		row.WordCount,
		row.PageCount,
	).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert analysis (job=%s, type=%s): %w", row.JobID, row.AnalysisType, err)
	}

	return id, nil
}

// GetJobByID retrieves a job status row
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT status, confidence, processing_time_ms, analysis_id,
			error_code, error_message, created_at, updated_at
		FROM noraslaw.analysis_jobs
		WHERE id = $1
	`

	var (
		status             string
		confidence         sql.NullFloat64
		processingTimeMs   sql.NullInt64
		analysisID         sql.NullString
		errorCode          sql.NullString
		errorMessage       sql.NullString
		createdAt, updated time.Time
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&status, &confidence, &processingTimeMs, &analysisID,
		&errorCode, &errorMessage, &createdAt, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return map[string]interface{}{
		"jobId":            jobID,
		"status":           status,
		"confidence":       confidence.Float64,
		"processingTimeMs": processingTimeMs.Int64,
		"analysisId":       analysisID.String,
		"errorCode":        errorCode.String,
		"errorMessage":     errorMessage.String,
		"createdAt":        createdAt,
		"updatedAt":        updated,
	}, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Stats returns connection pool statistics
func (p *PostgresClient) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	return p.db.Close()
}
