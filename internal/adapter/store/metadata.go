package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"paperrag/internal/domain"
)

// Metadata is the chunk table of one ingested document, keyed by the
// string-encoded index position of each chunk's vector. It is persisted
// as a JSON file next to the index; the two files are always written and
// loaded as a pair.
type Metadata struct {
	records map[string]chunkRecord
}

type chunkRecord struct {
	Text       string `json:"text"`
	Page       int    `json:"page"`
	Section    string `json:"section"`
	SourceType string `json:"source_type"`
}

// FromChunks builds metadata from an ordered chunk sequence. Chunk IDs
// must already be index positions.
func FromChunks(chunks []domain.Chunk) *Metadata {
	records := make(map[string]chunkRecord, len(chunks))
	for _, ch := range chunks {
		records[strconv.Itoa(ch.ID)] = chunkRecord{
			Text:       ch.Text,
			Page:       ch.Page,
			Section:    string(ch.Section),
			SourceType: string(ch.SourceType),
		}
	}
	return &Metadata{records: records}
}

// Len returns the number of chunks. It must equal the paired index's
// vector count.
func (m *Metadata) Len() int {
	return len(m.records)
}

// Get returns the chunk stored at the given index position.
func (m *Metadata) Get(id int) (domain.Chunk, bool) {
	rec, ok := m.records[strconv.Itoa(id)]
	if !ok {
		return domain.Chunk{}, false
	}
	return domain.Chunk{
		ID:         id,
		Text:       rec.Text,
		Page:       rec.Page,
		Section:    domain.Section(rec.Section),
		SourceType: domain.SourceType(rec.SourceType),
	}, true
}

// Save writes the metadata to path as JSON.
func (m *Metadata) Save(path string) error {
	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads metadata from path.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	records := make(map[string]chunkRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file: %w", err)
	}
	return &Metadata{records: records}, nil
}
