package extraction

import "errors"

var (
	// ErrExtractionFailed classifies any failure to turn a document into a
	// record: unreachable source, inference error, or unparseable output.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrUnsupportedDocument indicates content that is neither a readable
	// PDF nor a supported image.
	ErrUnsupportedDocument = errors.New("unsupported document")
	// ErrDocumentTooLarge indicates the fetched document exceeds the size cap.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrUnsupportedScheme indicates a document URL no source can fetch.
	ErrUnsupportedScheme = errors.New("unsupported document url scheme")
	// ErrEmptyRecord indicates the model found nothing resembling a receipt.
	ErrEmptyRecord = errors.New("no receipt data found")
)
