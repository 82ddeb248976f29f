package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractOCR recognizes figure text with a local tesseract install. A
// fresh client per image keeps recognitions independent: one bad image
// cannot poison the next.
type TesseractOCR struct {
	language string
}

func NewTesseractOCR(language string) *TesseractOCR {
	if language == "" {
		language = "eng"
	}
	return &TesseractOCR{language: language}
}

func (o *TesseractOCR) Recognize(image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(o.language); err != nil {
		return "", fmt.Errorf("failed to set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return text, nil
}
