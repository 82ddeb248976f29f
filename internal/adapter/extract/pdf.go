package extract

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"paperrag/internal/domain"
)

// PDFExtractor reads page text through MuPDF and pulls embedded images out
// with pdfcpu. A document that cannot be opened at all is fatal; a single
// page or image that fails extraction is skipped with a warning.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the document's pages in order, each with its text and
// the raw bytes of any embedded images.
func (e *PDFExtractor) Extract(path string) ([]domain.Page, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	pages := make([]domain.Page, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Printf("skipping text of page %d: %v", i+1, err)
			text = ""
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}

	images, err := extractImages(path)
	if err != nil {
		// The document itself opened fine; figures are best-effort.
		log.Printf("skipping embedded images: %v", err)
		return pages, nil
	}
	for i := range pages {
		pages[i].Images = images[pages[i].Number]
	}

	return pages, nil
}

// extractImages returns embedded image bytes grouped by 1-based page
// number.
func extractImages(path string) (map[int][][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	images, err := api.ExtractImagesRaw(f, nil, nil)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int][][]byte)
	for _, pageImages := range images {
		for _, img := range pageImages {
			data, err := io.ReadAll(img)
			if err != nil {
				log.Printf("skipping image %s on page %d: %v", img.Name, img.PageNr, err)
				continue
			}
			if len(data) == 0 {
				continue
			}
			byPage[img.PageNr] = append(byPage[img.PageNr], data)
		}
	}
	return byPage, nil
}
