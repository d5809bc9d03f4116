/**
 * Document processor for the Nora's Law analysis worker
 *
 * Orchestrates the ingestion and analysis pipeline:
 * - Format-specific text extraction (PDF text layer, OCR, plain text)
 * - Heuristic sectioning of extracted text
 * - LLM analysis of the text into structured violation records
 * - Persistence (PostgreSQL) and semantic indexing (Qdrant)
 */

package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/noraslaw/analysis-worker/internal/analysis"
	apperrors "github.com/noraslaw/analysis-worker/internal/errors"
	"github.com/noraslaw/analysis-worker/internal/storage"
)

// DocumentProcessorInterface defines the interface for document processing
type DocumentProcessorInterface interface {
	ProcessDocument(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	OCRLanguage    string
	MaxFileSize    int64
	StorageManager *storage.StorageManager
	Analysis       *analysis.Service
}

// ProcessRequest represents a document processing request
type ProcessRequest struct {
	JobID        string
	UserID       string
	Filename     string
	MimeType     string
	FileSize     int64
	FileURL      string
	FileBuffer   []byte
	AnalysisType string
	Metadata     map[string]interface{}
}

// ProcessResult represents the processing result
type ProcessResult struct {
	AnalysisID       string
	Severity         string
	ViolationCount   int
	WordCount        int
	SectionCount     int
	Confidence       float64
	ProcessingTimeMs int64
}

// DocumentProcessor handles document ingestion and analysis
type DocumentProcessor struct {
	config   *ProcessorConfig
	storage  *storage.StorageManager
	analysis *analysis.Service
	ocr      *ocrEngine
}

// NewDocumentProcessor creates a new document processor
func NewDocumentProcessor(cfg *ProcessorConfig) (*DocumentProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if cfg.StorageManager == nil {
		return nil, fmt.Errorf("storage manager is required")
	}

	if cfg.Analysis == nil {
		return nil, fmt.Errorf("analysis service is required")
	}

	return &DocumentProcessor{
		config:   cfg,
		storage:  cfg.StorageManager,
		analysis: cfg.Analysis,
		ocr:      newOCREngine(cfg.OCRLanguage),
	}, nil
}

// ProcessDocument runs a document through the complete pipeline
func (p *DocumentProcessor) ProcessDocument(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	startTime := time.Now()
	log.Printf("[Job %s] Starting analysis pipeline: %s", req.JobID, req.Filename)

	// Step 1: Load file
	fileData, err := p.loadFile(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}

	// Step 1.5: Correct generic MIME types from magic bytes. Browser uploads
	// relayed through the web app often arrive as application/octet-stream.
	detectedMime := detectMimeTypeFromMagicBytes(fileData)
	if detectedMime != "" && (req.MimeType == "" || req.MimeType == "application/octet-stream") {
		log.Printf("[Job %s] Corrected MIME type from %q to %q (magic byte detection)",
			req.JobID, req.MimeType, detectedMime)
		req.MimeType = detectedMime
	}

	// Step 2: Extract text, metadata, sections
	log.Printf("[Job %s] Step 2: Extracting text (mime: %s, %d bytes)", req.JobID, req.MimeType, len(fileData))
	doc, err := p.ProcessFile(ctx, req.JobID, req.MimeType, fileData)
	if err != nil {
		return nil, err
	}
	log.Printf("[Job %s] Extraction complete: words=%d, sections=%d, confidence=%.2f",
		req.JobID, doc.Metadata.WordCount, len(doc.Sections), doc.Metadata.Confidence)

	// Step 3: Analyze the extracted text
	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = analysis.TypeConstitutional
	}

	log.Printf("[Job %s] Step 3: Analyzing document (type: %s)", req.JobID, analysisType)
	result, err := p.analysis.AnalyzeDocument(ctx, doc.Text, analysisType)
	if err != nil {
		return nil, fmt.Errorf("document analysis failed: %w", err)
	}
	log.Printf("[Job %s] Analysis complete: violations=%d, severity=%s, confidence=%.2f",
		req.JobID, len(result.Violations), result.Severity, result.Confidence)

	// Step 4: Persist the structured result
	analysisID, err := p.storage.StoreAnalysis(ctx, &storage.AnalysisInput{
		JobID:         req.JobID,
		UserID:        req.UserID,
		Filename:      req.Filename,
		AnalysisType:  analysisType,
		ExtractedText: doc.Text,
		WordCount:     doc.Metadata.WordCount,
		PageCount:     doc.Metadata.PageCount,
		Result:        result,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	log.Printf("[Job %s] Analysis stored: id=%s", req.JobID, analysisID)

	// Step 5: Index extracted text for semantic search. Non-fatal: the
	// analysis is already persisted, the document just won't be findable
	// through similarity search.
	if doc.Metadata.WordCount > 0 {
		indexMeta := map[string]interface{}{
			"job_id":        req.JobID,
			"user_id":       req.UserID,
			"filename":      req.Filename,
			"analysis_id":   analysisID,
			"analysis_type": analysisType,
			"severity":      string(result.Severity),
			"word_count":    int64(doc.Metadata.WordCount),
		}
		if err := p.storage.AddDocument(ctx, storage.CollectionDocuments, analysisID, doc.Text, indexMeta); err != nil {
			log.Printf("[Job %s] WARNING: failed to index document for search: %v", req.JobID, err)
		} else {
			log.Printf("[Job %s] Document indexed in collection %q", req.JobID, storage.CollectionDocuments)
		}
	}

	// Overall confidence combines extraction quality and parse confidence
	overallConfidence := doc.Metadata.Confidence*0.4 + result.Confidence*0.6

	processResult := &ProcessResult{
		AnalysisID:       analysisID,
		Severity:         string(result.Severity),
		ViolationCount:   len(result.Violations),
		WordCount:        doc.Metadata.WordCount,
		SectionCount:     len(doc.Sections),
		Confidence:       overallConfidence,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}

	log.Printf("[Job %s] Pipeline complete: analysisId=%s, severity=%s, duration=%dms",
		req.JobID, analysisID, processResult.Severity, processResult.ProcessingTimeMs)

	return processResult, nil
}

// ProcessFile converts a raw file into text + metadata + sections,
// dispatching on MIME type. Extraction failures wrap the underlying error,
// preserving its message.
func (p *DocumentProcessor) ProcessFile(ctx context.Context, jobID, mimeType string, data []byte) (*ProcessedDocument, error) {
	fileType := strings.ToLower(mimeType)

	var text string
	metadata := DocumentMetadata{
		ExtractedDate: time.Now(),
	}

	switch {
	case strings.Contains(fileType, "pdf"):
		result, err := extractPDF(ctx, data)
		if err != nil {
			return nil, apperrors.NewExtractionFailedError(jobID, "pdf", err)
		}
		text = result.Text
		metadata.PageCount = result.PageCount
		metadata.Confidence = 0.95 // text-layer extraction is generally reliable

	case strings.HasPrefix(fileType, "image/"):
		result, err := p.ocr.Recognize(ctx, data)
		if err != nil {
			return nil, apperrors.NewExtractionFailedError(jobID, "ocr", err)
		}
		text = result.Text
		metadata.Confidence = result.Confidence / 100
		log.Printf("[Job %s] OCR complete: confidence=%.2f, duration=%v", jobID, metadata.Confidence, result.Duration)

	default:
		// Anything else is treated as UTF-8 plain text
		text = string(data)
		metadata.Confidence = 1.0
	}

	metadata.WordCount = countWords(text)

	return &ProcessedDocument{
		Text:     text,
		Metadata: metadata,
		Sections: ExtractSections(text),
	}, nil
}

// UpdateJobStatus updates job status in the database
func (p *DocumentProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error {
	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Metadata: metadata,
	}

	if metadata != nil {
		if confidence, ok := metadata["confidence"].(float64); ok {
			update.Confidence = confidence
		}
		if processingTime, ok := metadata["processingTime"].(int64); ok {
			update.ProcessingTimeMs = processingTime
		}
		if analysisID, ok := metadata["analysisId"].(string); ok {
			update.AnalysisID = analysisID
		}
		if errorMsg, ok := metadata["error"].(string); ok {
			update.ErrorCode = "PROCESSING_ERROR"
			update.ErrorMessage = errorMsg
		}
	}

	return p.storage.UpdateJobStatus(ctx, update)
}

// Cleanup releases process-wide resources (the shared OCR engine)
func (p *DocumentProcessor) Cleanup() error {
	return p.ocr.Cleanup()
}

// countWords counts whitespace-delimited non-empty tokens
func countWords(text string) int {
	return len(strings.Fields(text))
}

// loadFile resolves the file bytes from buffer or URL. Downloads are a
// single attempt: a failed fetch fails the job, and the enqueueing side
// decides whether to resubmit.
func (p *DocumentProcessor) loadFile(ctx context.Context, req *ProcessRequest) ([]byte, error) {
	if len(req.FileBuffer) > 0 {
		if p.config.MaxFileSize > 0 && int64(len(req.FileBuffer)) > p.config.MaxFileSize {
			return nil, fmt.Errorf("file size exceeds maximum: %d > %d bytes", len(req.FileBuffer), p.config.MaxFileSize)
		}
		return req.FileBuffer, nil
	}

	if req.FileURL == "" {
		return nil, fmt.Errorf("no file source provided (buffer or URL)")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", req.FileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	maxRead := p.config.MaxFileSize
	if maxRead <= 0 {
		maxRead = 52428800 // 50MB safety limit
	}

	fileData, err := io.ReadAll(io.LimitReader(resp.Body, maxRead+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read downloaded file: %w", err)
	}

	if int64(len(fileData)) > maxRead {
		return nil, fmt.Errorf("file size exceeds maximum: %d bytes", maxRead)
	}

	return fileData, nil
}

// detectMimeTypeFromMagicBytes detects the actual MIME type from file
// content magic bytes for sources that report a generic type.
func detectMimeTypeFromMagicBytes(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return "application/pdf"
	}

	if len(data) >= 8 && bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "image/png"
	}

	if bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
		return "image/jpeg"
	}

	if bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")) {
		return "image/gif"
	}

	if len(data) > 12 && bytes.HasPrefix(data, []byte("RIFF")) && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}

	if bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}) || bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}) {
		return "image/tiff"
	}

	if bytes.HasPrefix(data, []byte("BM")) {
		return "image/bmp"
	}

	return ""
}
