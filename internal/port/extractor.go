package port

import "paperrag/internal/domain"

// Extractor reads a document into ordered pages with their embedded images.
type Extractor interface {
	// Extract opens the document at path and returns its pages in order.
	// A document that cannot be opened is a fatal error for the ingestion
	// run; a single unreadable page or image is not.
	Extract(path string) ([]domain.Page, error)
}

// OCR recognizes text in a raster image.
type OCR interface {
	Recognize(image []byte) (string, error)
}
