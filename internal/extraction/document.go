package extraction

import (
	"bytes"
	"fmt"
	"net/http"
	"path"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Supported document media types.
const (
	MediaPDF  = "application/pdf"
	MediaPNG  = "image/png"
	MediaJPEG = "image/jpeg"
	MediaGIF  = "image/gif"
	MediaWebP = "image/webp"
)

var imageTypes = map[string]bool{
	MediaPNG:  true,
	MediaJPEG: true,
	MediaGIF:  true,
	MediaWebP: true,
}

// Document is fetched content ready for inference.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
	PageCount int
}

// IsPDF reports whether the document is a PDF.
func (d *Document) IsPDF() bool {
	return d.MediaType == MediaPDF
}

// Inspect sniffs the media type of data and validates it. PDFs must parse
// and contain at least one page.
func Inspect(name string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrUnsupportedDocument)
	}

	doc := &Document{
		Name:      path.Base(name),
		MediaType: http.DetectContentType(data),
		Data:      data,
	}

	if doc.IsPDF() {
		count, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pdf: %w", ErrUnsupportedDocument, err)
		}
		if count < 1 {
			return nil, fmt.Errorf("%w: pdf has no pages", ErrUnsupportedDocument)
		}
		doc.PageCount = count
		return doc, nil
	}

	if !imageTypes[doc.MediaType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, doc.MediaType)
	}

	doc.PageCount = 1
	return doc, nil
}
