/**
 * Ingestion types - shared data structures for document processing
 */

package processor

import (
	"time"
)

// ProcessedDocument is the output of ingesting one uploaded file
type ProcessedDocument struct {
	Text     string
	Metadata DocumentMetadata
	Sections []DocumentSection
}

// DocumentMetadata carries per-document extraction metadata.
// Confidence is a heuristic per-source constant: 1.0 for plain text,
// 0.95 for PDF text-layer extraction, engine confidence/100 for OCR.
type DocumentMetadata struct {
	PageCount     int
	WordCount     int
	Language      string
	ExtractedDate time.Time
	Confidence    float64
}

// DocumentSection is one titled partition of the extracted text
type DocumentSection struct {
	Title      string
	Content    string
	PageNumber int
	Confidence float64
}
