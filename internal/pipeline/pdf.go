package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"ndcscan/internal"
)

const MimeTypePDF = "application/pdf"

// CountPDFPages returns the page count of a PDF payload.
func CountPDFPages(content []byte) (n int, err error) {
	// The reader panics on some truncated xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// CheckPageLimit rejects PDFs with more than maxPages pages. Other MIME types
// and a non-positive limit pass through.
func CheckPageLimit(content []byte, mimeType string, maxPages int) error {
	if maxPages <= 0 || !strings.EqualFold(strings.TrimSpace(mimeType), MimeTypePDF) {
		return nil
	}
	pages, err := CountPDFPages(content)
	if err != nil {
		return internal.ValidationError("Invalid request: encodedImage is not a readable PDF")
	}
	if pages > maxPages {
		return internal.ValidationError(fmt.Sprintf("Invalid request: document has %d pages, limit is %d", pages, maxPages))
	}
	return nil
}
