package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// pdfExtraction is the result of reading a PDF's text layer
type pdfExtraction struct {
	Text      string
	PageCount int
}

// extractPDF reads the text layer of a PDF. Scanned PDFs without a text
// layer produce empty text rather than an error; the caller surfaces that
// through the word count.
func extractPDF(ctx context.Context, data []byte) (*pdfExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF document: %w", err)
	}

	plainText, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract PDF text layer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plainText); err != nil {
		return nil, fmt.Errorf("failed to read PDF text: %w", err)
	}

	return &pdfExtraction{
		Text:      buf.String(),
		PageCount: reader.NumPage(),
	}, nil
}
