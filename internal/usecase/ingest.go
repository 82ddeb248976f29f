package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"paperrag/config"
	"paperrag/internal/adapter/catalog"
	"paperrag/internal/adapter/index"
	"paperrag/internal/adapter/segment"
	"paperrag/internal/adapter/store"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

// IngestResult summarizes one completed ingestion.
type IngestResult struct {
	RunID  string
	Pages  int
	Chunks int
}

// Ingestor builds a fresh index and metadata pair from one document. Each
// run replaces the previous pair wholesale; there is no partial update.
type Ingestor struct {
	extractor port.Extractor
	segmenter *segment.Segmenter
	embedder  port.Embedder
	catalog   *catalog.Catalog // optional
	cfg       *config.Config
	progress  func(done, total int) // optional, reports embedded chunk counts
}

// NewIngestor wires the ingestion pipeline. catalog may be nil when run
// history is not wanted.
func NewIngestor(extractor port.Extractor, segmenter *segment.Segmenter, embedder port.Embedder, cat *catalog.Catalog, cfg *config.Config) *Ingestor {
	return &Ingestor{
		extractor: extractor,
		segmenter: segmenter,
		embedder:  embedder,
		catalog:   cat,
		cfg:       cfg,
	}
}

// OnProgress registers a callback invoked after each embedded batch.
func (g *Ingestor) OnProgress(fn func(done, total int)) {
	g.progress = fn
}

// Ingest extracts, segments, embeds and indexes the document at path,
// then replaces the on-disk index and metadata pair. A document with no
// extractable content still produces a valid empty pair, so later queries
// take the out-of-context path instead of erroring.
func (g *Ingestor) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	pages, err := g.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	chunks := g.segmenter.Segment(pages)

	idx := index.NewFlat(g.embedder.Dimension())
	if len(chunks) > 0 {
		if err := g.embedChunks(ctx, chunks, idx); err != nil {
			return nil, err
		}
	}

	if err := g.writePair(idx, chunks); err != nil {
		return nil, err
	}

	result := &IngestResult{
		RunID:  uuid.NewString(),
		Pages:  len(pages),
		Chunks: len(chunks),
	}

	if g.catalog != nil {
		checksum, err := fileChecksum(path)
		if err != nil {
			checksum = ""
		}
		run := domain.IngestRun{
			ID:        result.RunID,
			File:      filepath.Base(path),
			SHA256:    checksum,
			Pages:     result.Pages,
			Chunks:    result.Chunks,
			CreatedAt: time.Now().UTC(),
		}
		if err := g.catalog.Record(run); err != nil {
			return nil, fmt.Errorf("failed to record ingest run: %w", err)
		}
	}

	return result, nil
}

// embedChunks embeds chunk texts in batches with corpus-side pooling and
// appends the vectors to idx in chunk order.
func (g *Ingestor) embedChunks(ctx context.Context, chunks []domain.Chunk, idx *index.Flat) error {
	pooling := port.Pooling(g.cfg.Embedding.IngestPooling)
	batchSize := g.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 8
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := g.embedder.Embed(ctx, texts[i:end], pooling)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if err := idx.Add(vectors); err != nil {
			return fmt.Errorf("failed to append vectors: %w", err)
		}

		if g.progress != nil {
			g.progress(end, len(texts))
		}
	}
	return nil
}

// writePair persists the index and metadata files together. Both are
// written to temporaries first and renamed into place, so readers either
// see the old pair or the new one, never a half-written mix.
func (g *Ingestor) writePair(idx *index.Flat, chunks []domain.Chunk) error {
	if err := g.cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	indexPath := g.cfg.IndexPath()
	metaPath := g.cfg.MetaPath()
	tmpIndex := indexPath + ".tmp"
	tmpMeta := metaPath + ".tmp"

	if err := idx.Save(tmpIndex); err != nil {
		os.Remove(tmpIndex)
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := store.FromChunks(chunks).Save(tmpMeta); err != nil {
		os.Remove(tmpIndex)
		os.Remove(tmpMeta)
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := os.Rename(tmpIndex, indexPath); err != nil {
		os.Remove(tmpIndex)
		os.Remove(tmpMeta)
		return fmt.Errorf("failed to publish index: %w", err)
	}
	if err := os.Rename(tmpMeta, metaPath); err != nil {
		os.Remove(tmpMeta)
		return fmt.Errorf("failed to publish metadata: %w", err)
	}
	return nil
}

// ClearPair removes the index and metadata files together. Missing files
// are not an error; the pair is simply absent afterwards.
func ClearPair(cfg *config.Config) error {
	for _, path := range []string{cfg.IndexPath(), cfg.MetaPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
