/**
 * Storage manager for the Nora's Law analysis worker
 *
 * Coordinates PostgreSQL (structured analyses, job status) and Qdrant
 * (semantic search over extracted text). The vector side exposes the two
 * verbs the platform needs: add a document to a collection and search a
 * collection by query text; embeddings are computed locally before upsert.
 */

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/noraslaw/analysis-worker/internal/analysis"
	"github.com/noraslaw/analysis-worker/internal/clients"
	apperrors "github.com/noraslaw/analysis-worker/internal/errors"
)

// StorageManager coordinates PostgreSQL and Qdrant operations
type StorageManager struct {
	postgres   *PostgresClient
	qdrant     *QdrantClient
	embeddings *clients.EmbeddingClient
}

// AnalysisInput is everything needed to persist one document analysis
type AnalysisInput struct {
	JobID         string
	UserID        string
	Filename      string
	AnalysisType  string
	ExtractedText string
	WordCount     int
	PageCount     int
	Result        *analysis.AnalysisResult
}

// SearchResult is one nearest-text match from a collection
type SearchResult struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// NewStorageManager creates a storage manager and ensures the platform's
// vector collections exist.
func NewStorageManager(postgresURL, qdrantAddress string, embeddings *clients.EmbeddingClient) (*StorageManager, error) {
	if embeddings == nil {
		return nil, fmt.Errorf("embedding client is required")
	}

	postgres, err := NewPostgresClient(postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}

	qdrant, err := NewQdrantClient(qdrantAddress, embeddings.Dimensions())
	if err != nil {
		postgres.Close()
		return nil, fmt.Errorf("failed to initialize Qdrant client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := qdrant.EnsureCollections(ctx, DefaultCollections); err != nil {
		postgres.Close()
		qdrant.Close()
		return nil, fmt.Errorf("failed to ensure collections: %w", err)
	}

	return &StorageManager{
		postgres:   postgres,
		qdrant:     qdrant,
		embeddings: embeddings,
	}, nil
}

// StoreAnalysis persists one structured analysis result and returns its ID
func (sm *StorageManager) StoreAnalysis(ctx context.Context, input *AnalysisInput) (string, error) {
	if input == nil {
		return "", fmt.Errorf("input is required")
	}

	if input.JobID == "" {
		return "", fmt.Errorf("job ID is required")
	}

	if input.Result == nil {
		return "", fmt.Errorf("analysis result is required")
	}

	violationsJSON, err := json.Marshal(input.Result.Violations)
	if err != nil {
		return "", fmt.Errorf("failed to marshal violations: %w", err)
	}

	authenticityJSON, err := json.Marshal(input.Result.Authenticity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal authenticity report: %w", err)
	}

	custodyJSON, err := json.Marshal(input.Result.ChainOfCustody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal custody report: %w", err)
	}

	recommendationsJSON, err := json.Marshal(input.Result.Recommendations)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	row := &analysisRow{
		ID:              uuid.New().String(),
		JobID:           input.JobID,
		UserID:          input.UserID,
		Filename:        input.Filename,
		AnalysisType:    input.AnalysisType,
		Severity:        string(input.Result.Severity),
		Confidence:      input.Result.Confidence,
		Violations:      sanitizeJSONForPostgres(violationsJSON),
		Authenticity:    sanitizeJSONForPostgres(authenticityJSON),
		ChainOfCustody:  sanitizeJSONForPostgres(custodyJSON),
		Recommendations: sanitizeJSONForPostgres(recommendationsJSON),
		ExtractedText:   input.ExtractedText,
		WordCount:       input.WordCount,
		PageCount:       input.PageCount,
	}

	analysisID, err := sm.postgres.insertAnalysis(ctx, row)
	if err != nil {
		return "", apperrors.NewStorageFailedError(input.JobID, err)
	}

	return analysisID, nil
}

// AddDocument embeds text and upserts it into the named collection
func (sm *StorageManager) AddDocument(ctx context.Context, collection, id, text string, metadata map[string]interface{}) error {
	if text == "" {
		return fmt.Errorf("text is required")
	}

	if id == "" {
		id = uuid.New().String()
	}

	vector, err := sm.embeddings.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["indexed_at"] = time.Now().Unix()

	if err := sm.qdrant.Upsert(ctx, collection, &VectorPoint{
		ID:       id,
		Vector:   vector,
		Metadata: metadata,
	}); err != nil {
		return fmt.Errorf("failed to upsert document vector: %w", err)
	}

	return nil
}

// SearchDocuments embeds the query text and returns the nearest matches
// from the named collection.
func (sm *StorageManager) SearchDocuments(ctx context.Context, collection, queryText string, limit int) ([]*SearchResult, error) {
	if queryText == "" {
		return nil, fmt.Errorf("query text is required")
	}

	vector, err := sm.embeddings.GenerateEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	points, err := sm.qdrant.Search(ctx, collection, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", collection, err)
	}

	results := make([]*SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, &SearchResult{
			ID:       point.ID,
			Score:    point.Score,
			Metadata: point.Metadata,
		})
	}

	return results, nil
}

// RemoveDocument deletes a document from the named collection
func (sm *StorageManager) RemoveDocument(ctx context.Context, collection, id string) error {
	return sm.qdrant.Delete(ctx, collection, id)
}

// UpdateJobStatus updates job status in PostgreSQL
func (sm *StorageManager) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	return sm.postgres.UpdateJobStatus(ctx, update)
}

// GetJobByID retrieves job status by ID
func (sm *StorageManager) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	return sm.postgres.GetJobByID(ctx, jobID)
}

// Ping checks database connectivity
func (sm *StorageManager) Ping(ctx context.Context) error {
	return sm.postgres.Ping(ctx)
}

// GetStats returns statistics from both systems
func (sm *StorageManager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	pgStats := sm.postgres.Stats()

	qdrantStats, err := sm.qdrant.CollectionInfo(ctx, CollectionDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to get Qdrant stats: %w", err)
	}

	return map[string]interface{}{
		"postgres": map[string]interface{}{
			"max_open_connections": pgStats.MaxOpenConnections,
			"open_connections":     pgStats.OpenConnections,
			"in_use":               pgStats.InUse,
			"idle":                 pgStats.Idle,
		},
		"qdrant": qdrantStats,
	}, nil
}

// Close closes all connections
func (sm *StorageManager) Close() error {
	var pgErr, qdErr error

	if sm.postgres != nil {
		pgErr = sm.postgres.Close()
	}

	if sm.qdrant != nil {
		qdErr = sm.qdrant.Close()
	}

	if pgErr != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", pgErr)
	}

	if qdErr != nil {
		return fmt.Errorf("failed to close Qdrant: %w", qdErr)
	}

	return nil
}

var (
	nullEscapePattern    = regexp.MustCompile(`\\u0000`)
	controlEscapePattern = regexp.MustCompile(`\\u00[01][0-9a-fA-F]`)
)

// sanitizeJSONForPostgres strips Unicode escape sequences that PostgreSQL
// JSONB rejects (\u0000 and other control-character escapes). Extracted
// text from OCR and malformed PDFs is the usual source.
func sanitizeJSONForPostgres(jsonBytes []byte) []byte {
	result := nullEscapePattern.ReplaceAll(jsonBytes, []byte{})
	return controlEscapePattern.ReplaceAll(result, []byte(" "))
}
