/**
 * OCR engine for image uploads
 *
 * Wraps a single Tesseract client with an explicit lifecycle: created
 * lazily on the first image job, reused across calls, and released only by
 * Cleanup(). Recognitions are serialized by a mutex because the underlying
 * client handles one image at a time.
 */

package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// ocrResult is the outcome of one recognition.
// Confidence is on the engine's 0-100 scale.
type ocrResult struct {
	Text       string
	Confidence float64
	Duration   time.Duration
}

// ocrEngine owns the shared Tesseract client
type ocrEngine struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
}

// newOCREngine creates an engine handle; the Tesseract client itself is not
// created until the first Recognize call.
func newOCREngine(language string) *ocrEngine {
	if language == "" {
		language = "eng"
	}
	return &ocrEngine{language: language}
}

// Recognize runs OCR on an image blob. Calls are serialized; a caller
// whose context expires while waiting for the engine still fails fast.
func (e *ocrEngine) Recognize(ctx context.Context, imageData []byte) (*ocrResult, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image data is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.client == nil {
		client := gosseract.NewClient()
		if err := client.SetLanguage(e.language); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR language: %w", err)
		}
		e.client = client
	}

	startTime := time.Now()

	if err := e.client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	return &ocrResult{
		Text:       text,
		Confidence: estimateOCRConfidence(text),
		Duration:   time.Since(startTime),
	}, nil
}

// Cleanup releases the Tesseract client. The engine can be reused; the
// next Recognize call creates a fresh client.
func (e *ocrEngine) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil
	}

	err := e.client.Close()
	e.client = nil
	if err != nil {
		return fmt.Errorf("failed to close OCR client: %w", err)
	}
	return nil
}

// estimateOCRConfidence scores recognition quality on a 0-100 scale from
// text-quality indicators. Word-level confidences would need HOCR parsing,
// which Tesseract makes expensive for long documents.
func estimateOCRConfidence(text string) float64 {
	confidence := 50.0

	if len(text) > 1000 {
		confidence += 10
	}
	if len(text) > 5000 {
		confidence += 10
	}

	words := strings.Fields(text)
	if len(words) > 100 {
		confidence += 10
	}

	// A plausible alpha-character ratio suggests coherent prose rather
	// than recognition noise
	alphaCount := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alphaCount++
		}
	}
	if len(text) > 0 {
		alphaRatio := float64(alphaCount) / float64(len(text))
		if alphaRatio > 0.5 && alphaRatio < 0.9 {
			confidence += 10
		}
	}

	if confidence > 85 {
		confidence = 85
	}

	return confidence
}
