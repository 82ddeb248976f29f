package segment

import (
	"errors"
	"strings"
	"testing"

	"paperrag/internal/domain"
)

// fakeOCR returns canned text keyed by the image payload, or an error for
// payloads starting with "fail".
type fakeOCR struct {
	calls int
}

func (o *fakeOCR) Recognize(image []byte) (string, error) {
	o.calls++
	s := string(image)
	if strings.HasPrefix(s, "fail") {
		return "", errors.New("ocr backend unavailable")
	}
	if strings.HasPrefix(s, "empty") {
		return "   \n", nil
	}
	return s, nil
}

func TestSegmentTagsPagesAndSections(t *testing.T) {
	seg := NewSegmenter(nil, NewWindowChunker(500, 100))

	pages := []domain.Page{
		{Number: 1, Text: "Abstract\nWe study paper-grounded retrieval."},
		{Number: 2, Text: "Continuation of the abstract on the next page."},
		{Number: 3, Text: "Methods\nWe built an index over chunk vectors."},
	}

	chunks := seg.Segment(pages)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantSections := []domain.Section{domain.SectionAbstract, domain.SectionAbstract, domain.SectionMethods}
	for i, ch := range chunks {
		if ch.ID != i {
			t.Errorf("chunk %d has ID %d", i, ch.ID)
		}
		if ch.Page != i+1 {
			t.Errorf("chunk %d has page %d, want %d", i, ch.Page, i+1)
		}
		if ch.Section != wantSections[i] {
			t.Errorf("chunk %d has section %q, want %q", i, ch.Section, wantSections[i])
		}
		if ch.SourceType != domain.SourceText {
			t.Errorf("chunk %d has source type %q", i, ch.SourceType)
		}
	}
}

func TestSegmentChunksNeverSpanPages(t *testing.T) {
	// Two pages whose texts would together exceed one window still produce
	// one chunk per page: each page is windowed independently.
	seg := NewSegmenter(nil, NewWindowChunker(500, 100))
	pages := []domain.Page{
		{Number: 1, Text: strings.Repeat("a", 400)},
		{Number: 2, Text: strings.Repeat("b", 400)},
	}

	chunks := seg.Segment(pages)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if strings.ContainsRune(chunks[0].Text, 'b') || strings.ContainsRune(chunks[1].Text, 'a') {
		t.Error("chunk text crossed a page boundary")
	}
}

func TestSegmentFigures(t *testing.T) {
	ocr := &fakeOCR{}
	seg := NewSegmenter(ocr, NewWindowChunker(500, 100))

	pages := []domain.Page{
		{
			Number: 1,
			Text:   "Results\nFigure 1 summarizes accuracy.",
			Images: [][]byte{
				[]byte("Accuracy by model size, measured on the held-out set."),
				[]byte("fail: corrupt image"),
				[]byte("empty"),
			},
		},
	}

	chunks := seg.Segment(pages)
	if ocr.calls != 3 {
		t.Errorf("expected 3 OCR calls, got %d", ocr.calls)
	}
	// One text chunk plus one figure chunk; the failing and empty images
	// are skipped without aborting the page.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	fig := chunks[1]
	if fig.SourceType != domain.SourceFigure {
		t.Errorf("expected figure source type, got %q", fig.SourceType)
	}
	if fig.Section != domain.SectionResults {
		t.Errorf("figure chunk should inherit the page section, got %q", fig.Section)
	}
	if fig.Page != 1 {
		t.Errorf("figure chunk page = %d", fig.Page)
	}
}

func TestSegmentEmptyDocument(t *testing.T) {
	seg := NewSegmenter(&fakeOCR{}, NewWindowChunker(500, 100))

	if got := seg.Segment(nil); len(got) != 0 {
		t.Errorf("expected no chunks for empty document, got %d", len(got))
	}

	pages := []domain.Page{{Number: 1, Text: "   \n\t  "}}
	if got := seg.Segment(pages); len(got) != 0 {
		t.Errorf("expected no chunks for whitespace-only document, got %d", len(got))
	}
}

func TestSegmentSectionPersistsToFigures(t *testing.T) {
	ocr := &fakeOCR{}
	seg := NewSegmenter(ocr, NewWindowChunker(500, 100))

	// A page with no text but with a figure: the figure inherits the
	// section carried over from the previous page.
	pages := []domain.Page{
		{Number: 1, Text: "Discussion\nWe interpret the findings."},
		{Number: 2, Text: "", Images: [][]byte{[]byte("Flow diagram of the pipeline.")}},
	}

	chunks := seg.Segment(pages)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Section != domain.SectionDiscussion {
		t.Errorf("figure on textless page should keep prior section, got %q", chunks[1].Section)
	}
}
