package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"paperrag/config"
	"paperrag/internal/adapter/catalog"
	"paperrag/internal/adapter/embedding"
	"paperrag/internal/adapter/index"
	"paperrag/internal/adapter/segment"
	"paperrag/internal/adapter/store"
	"paperrag/internal/domain"
)

type fakeExtractor struct {
	pages []domain.Page
	err   error
}

func (e *fakeExtractor) Extract(string) ([]domain.Page, error) {
	return e.pages, e.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Embedding.Dimension = 16
	return cfg
}

func testIngestor(t *testing.T, cfg *config.Config, pages []domain.Page) *Ingestor {
	t.Helper()
	seg := segment.NewSegmenter(nil, segment.NewWindowChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap))
	emb := embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	return NewIngestor(&fakeExtractor{pages: pages}, seg, emb, nil, cfg)
}

func TestIngestWritesPair(t *testing.T) {
	cfg := testConfig(t)
	pages := []domain.Page{
		{Number: 1, Text: "Abstract\nThis paper studies window functions."},
		{Number: 2, Text: "Methods\nWe measure latency under load."},
	}

	g := testIngestor(t, cfg, pages)
	result, err := g.Ingest(context.Background(), "paper.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if result.Pages != 2 {
		t.Errorf("pages = %d, want 2", result.Pages)
	}
	if result.Chunks == 0 {
		t.Error("expected chunks from a document with text")
	}
	if result.RunID == "" {
		t.Error("run id must be set")
	}

	idx, err := index.Open(cfg.IndexPath())
	if err != nil {
		t.Fatal(err)
	}
	meta, err := store.Load(cfg.MetaPath())
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != result.Chunks || meta.Len() != result.Chunks {
		t.Errorf("pair sizes %d/%d, want %d", idx.Len(), meta.Len(), result.Chunks)
	}
}

func TestIngestLeavesNoTemporaries(t *testing.T) {
	cfg := testConfig(t)
	g := testIngestor(t, cfg, []domain.Page{{Number: 1, Text: "some body text"}})

	if _, err := g.Ingest(context.Background(), "paper.pdf"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(cfg.Storage.DataDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover temporary file %s", e.Name())
		}
	}
}

func TestIngestEmptyDocumentWritesEmptyPair(t *testing.T) {
	cfg := testConfig(t)
	g := testIngestor(t, cfg, []domain.Page{{Number: 1, Text: "   "}})

	result, err := g.Ingest(context.Background(), "blank.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if result.Chunks != 0 {
		t.Errorf("chunks = %d, want 0", result.Chunks)
	}

	idx, err := index.Open(cfg.IndexPath())
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 0 {
		t.Errorf("index holds %d vectors, want 0", idx.Len())
	}
	meta, err := store.Load(cfg.MetaPath())
	if err != nil {
		t.Fatal(err)
	}
	if meta.Len() != 0 {
		t.Errorf("metadata holds %d records, want 0", meta.Len())
	}
}

func TestIngestReplacesPreviousDocument(t *testing.T) {
	cfg := testConfig(t)

	g := testIngestor(t, cfg, []domain.Page{{Number: 1, Text: "first document text"}})
	first, err := g.Ingest(context.Background(), "first.pdf")
	if err != nil {
		t.Fatal(err)
	}

	g = testIngestor(t, cfg, []domain.Page{
		{Number: 1, Text: "second document, page one"},
		{Number: 2, Text: "second document, page two"},
	})
	second, err := g.Ingest(context.Background(), "second.pdf")
	if err != nil {
		t.Fatal(err)
	}

	meta, err := store.Load(cfg.MetaPath())
	if err != nil {
		t.Fatal(err)
	}
	if meta.Len() != second.Chunks {
		t.Errorf("metadata holds %d records, want %d from the latest run", meta.Len(), second.Chunks)
	}
	if first.RunID == second.RunID {
		t.Error("runs must get distinct ids")
	}
}

func TestIngestRecordsRun(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.EnsureDataDir(); err != nil {
		t.Fatal(err)
	}

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	doc := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(doc, []byte("%PDF-1.4 stub"), 0644); err != nil {
		t.Fatal(err)
	}

	seg := segment.NewSegmenter(nil, segment.NewWindowChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap))
	emb := embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	extractor := &fakeExtractor{pages: []domain.Page{{Number: 1, Text: "indexed content"}}}
	g := NewIngestor(extractor, seg, emb, cat, cfg)

	result, err := g.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}

	run, ok, err := cat.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a recorded run")
	}
	if run.ID != result.RunID {
		t.Errorf("recorded run %s, want %s", run.ID, result.RunID)
	}
	if run.File != "paper.pdf" {
		t.Errorf("recorded file %q", run.File)
	}
	if run.SHA256 == "" {
		t.Error("expected a checksum for an existing file")
	}
}

func TestIngestReportsProgress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.BatchSize = 2

	// Three windows: 1000 runes at size 500 stride 400 yields [0:500],
	// [400:900] and the short [800:1000] remainder.
	text := ""
	for len(text) < 1000 {
		text += "lorem ipsum "
	}
	g := testIngestor(t, cfg, []domain.Page{{Number: 1, Text: text[:1000]}})

	var calls []int
	g.OnProgress(func(done, total int) { calls = append(calls, done) })

	result, err := g.Ingest(context.Background(), "paper.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) == 0 {
		t.Fatal("expected progress callbacks")
	}
	if calls[len(calls)-1] != result.Chunks {
		t.Errorf("last progress %d, want %d", calls[len(calls)-1], result.Chunks)
	}
}
