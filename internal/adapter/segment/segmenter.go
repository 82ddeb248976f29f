package segment

import (
	"log"
	"strings"

	"paperrag/internal/domain"
	"paperrag/internal/port"
)

// Segmenter turns extracted pages into ordered chunk candidates. Page text
// and each figure's OCR text are windowed independently, so no chunk ever
// spans a page or figure boundary. Chunk IDs are positions in the output
// sequence and become index positions unchanged.
type Segmenter struct {
	ocr     port.OCR
	chunker *WindowChunker
}

// NewSegmenter creates a segmenter. ocr may be nil, in which case embedded
// figures are skipped entirely.
func NewSegmenter(ocr port.OCR, chunker *WindowChunker) *Segmenter {
	return &Segmenter{ocr: ocr, chunker: chunker}
}

// Segment produces the chunk candidates for one document. A failing or
// empty OCR pass skips that figure only; it never aborts the page or the
// document. Segment has no side effects beyond the returned slice.
func (s *Segmenter) Segment(pages []domain.Page) []domain.Chunk {
	var chunks []domain.Chunk
	current := domain.SectionUnknown

	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text != "" {
			current = DetectSection(text, current)
			for _, w := range s.chunker.Split(text) {
				chunks = append(chunks, domain.Chunk{
					ID:         len(chunks),
					Text:       w,
					Page:       page.Number,
					Section:    current,
					SourceType: domain.SourceText,
				})
			}
		}

		if s.ocr == nil {
			continue
		}
		for i, img := range page.Images {
			ocrText, err := s.ocr.Recognize(img)
			if err != nil {
				log.Printf("skipping figure %d on page %d: %v", i+1, page.Number, err)
				continue
			}
			ocrText = strings.TrimSpace(ocrText)
			if ocrText == "" {
				continue
			}
			for _, w := range s.chunker.Split(ocrText) {
				chunks = append(chunks, domain.Chunk{
					ID:         len(chunks),
					Text:       w,
					Page:       page.Number,
					Section:    current,
					SourceType: domain.SourceFigure,
				})
			}
		}
	}

	return chunks
}
