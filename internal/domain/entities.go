package domain

import "time"

// Section is the paper section a chunk was extracted from.
type Section string

const (
	SectionAbstract     Section = "abstract"
	SectionIntroduction Section = "introduction"
	SectionMethods      Section = "methods"
	SectionResults      Section = "results"
	SectionDiscussion   Section = "discussion"
	SectionConclusion   Section = "conclusion"
	SectionUnknown      Section = "unknown"
)

// SourceType distinguishes chunks cut from page text from chunks cut from
// OCR'd figure content.
type SourceType string

const (
	SourceText   SourceType = "text"
	SourceFigure SourceType = "figure"
)

// Chunk is one retrievable span of the ingested document. ID is the
// position of the chunk's vector in the index and is stable for the
// lifetime of that index.
type Chunk struct {
	ID         int
	Text       string
	Page       int // 1-based
	Section    Section
	SourceType SourceType
}

// Page holds the extracted content of one document page. Images are raw
// encoded bytes of embedded figures, OCR'd independently of the page text.
type Page struct {
	Number int // 1-based
	Text   string
	Images [][]byte
}

// RetrievedChunk pairs a chunk text with its normalized similarity to the
// query, in [0,1]. Produced per query and never persisted.
type RetrievedChunk struct {
	Text       string
	Similarity float64
}

// IngestRun records one completed ingestion in the catalog.
type IngestRun struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	SHA256    string    `json:"sha256"`
	Pages     int       `json:"pages"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}
