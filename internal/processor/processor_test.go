/**
 * Document processor tests
 *
 * Covers word counting, the plain-text extraction path, and magic-byte
 * MIME detection. PDF and OCR paths require external fixtures and the
 * Tesseract runtime, so they are exercised in integration environments.
 */

package processor

import (
	"context"
	"testing"
)

func TestCountWords(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected int
	}{
		{
			name:     "simple sentence",
			text:     "the quick brown fox",
			expected: 4,
		},
		{
			name:     "mixed whitespace",
			text:     "one\ttwo\nthree  four",
			expected: 4,
		},
		{
			name:     "leading and trailing whitespace",
			text:     "  padded  ",
			expected: 1,
		},
		{
			name:     "empty string",
			text:     "",
			expected: 0,
		},
		{
			name:     "whitespace only",
			text:     " \n\t ",
			expected: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := countWords(tc.text); got != tc.expected {
				t.Errorf("countWords(%q) = %d, expected %d", tc.text, got, tc.expected)
			}
		})
	}
}

func TestProcessFilePlainText(t *testing.T) {
	p := &DocumentProcessor{ocr: newOCREngine("eng")}

	text := "INTRODUCTION\nThis petition concerns the January hearing.\nCONCLUSION\nThe order should be vacated."

	doc, err := p.ProcessFile(context.Background(), "test-job", "text/plain", []byte(text))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if doc.Text != text {
		t.Errorf("plain text should pass through unmodified")
	}

	if doc.Metadata.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for plain text, got %v", doc.Metadata.Confidence)
	}

	if doc.Metadata.WordCount != countWords(text) {
		t.Errorf("expected word count %d, got %d", countWords(text), doc.Metadata.WordCount)
	}

	if len(doc.Sections) == 0 {
		t.Errorf("expected sections to be extracted")
	}

	if doc.Metadata.ExtractedDate.IsZero() {
		t.Errorf("expected ExtractedDate to be set")
	}
}

func TestProcessFileUnknownMimeFallsBackToPlainText(t *testing.T) {
	p := &DocumentProcessor{ocr: newOCREngine("eng")}

	doc, err := p.ProcessFile(context.Background(), "test-job", "application/x-unknown", []byte("some content here"))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if doc.Metadata.Confidence != 1.0 {
		t.Errorf("unknown MIME types should fall back to plain text (confidence 1.0), got %v", doc.Metadata.Confidence)
	}
}

func TestDetectMimeTypeFromMagicBytes(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "PDF",
			data:     []byte("%PDF-1.7\n..."),
			expected: "application/pdf",
		},
		{
			name:     "PNG",
			data:     []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
			expected: "image/png",
		},
		{
			name:     "JPEG",
			data:     []byte{0xFF, 0xD8, 0xFF, 0xE0},
			expected: "image/jpeg",
		},
		{
			name:     "GIF89a",
			data:     []byte("GIF89a......"),
			expected: "image/gif",
		},
		{
			name:     "TIFF little-endian",
			data:     []byte{0x49, 0x49, 0x2A, 0x00, 0x01},
			expected: "image/tiff",
		},
		{
			name:     "BMP",
			data:     []byte("BM\x00\x00"),
			expected: "image/bmp",
		},
		{
			name:     "plain text",
			data:     []byte("hello world"),
			expected: "",
		},
		{
			name:     "too short",
			data:     []byte("ab"),
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMimeTypeFromMagicBytes(tc.data); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
