package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"paperrag/config"
	"paperrag/internal/adapter/index"
	"paperrag/internal/adapter/store"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

// OutOfContextAnswer is returned verbatim when no chunk clears the
// similarity threshold.
const OutOfContextAnswer = "OUT OF CONTEXT"

const promptTemplate = `<|im_start|>system
You are a paper-grounded assistant. Use ONLY the context.
<|im_end|>
<|im_start|>user
Context:
%s

Question:
%s
<|im_end|>
<|im_start|>assistant
`

// Engine answers questions against one indexed document. It is immutable
// after construction; a re-ingest builds a new Engine rather than mutating
// a live one, so concurrent queries never observe a half-swapped pair.
type Engine struct {
	embedder      port.Embedder
	generator     port.Generator
	idx           *index.Flat
	meta          *store.Metadata
	topK          int
	finalK        int
	minSimilarity float64
	queryPooling  port.Pooling
	genParams     port.GenParams
}

// NewEngine builds an engine over an in-memory index and metadata pair.
// The two must describe the same chunks.
func NewEngine(embedder port.Embedder, generator port.Generator, idx *index.Flat, meta *store.Metadata, cfg *config.Config) (*Engine, error) {
	if idx.Len() != meta.Len() {
		return nil, fmt.Errorf("index and metadata are out of sync: %d vectors, %d records", idx.Len(), meta.Len())
	}
	if idx.Dimension() != embedder.Dimension() {
		return nil, fmt.Errorf("index dimension %d does not match embedder dimension %d", idx.Dimension(), embedder.Dimension())
	}
	return &Engine{
		embedder:      embedder,
		generator:     generator,
		idx:           idx,
		meta:          meta,
		topK:          cfg.Retrieve.TopK,
		finalK:        cfg.Retrieve.FinalK,
		minSimilarity: cfg.Retrieve.MinSimilarity,
		queryPooling:  port.Pooling(cfg.Embedding.QueryPooling),
		genParams: port.GenParams{
			MaxTokens:   cfg.Generate.MaxTokens,
			Temperature: cfg.Generate.Temperature,
		},
	}, nil
}

// OpenEngine loads the persisted pair from cfg's storage paths and builds
// an engine over it.
func OpenEngine(embedder port.Embedder, generator port.Generator, cfg *config.Config) (*Engine, error) {
	idx, err := index.Open(cfg.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	meta, err := store.Load(cfg.MetaPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	return NewEngine(embedder, generator, idx, meta, cfg)
}

// Retrieve embeds the query and returns the passages that clear the
// similarity threshold, best first, capped at the configured final count.
// An empty result means the document has nothing relevant to say.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]domain.RetrievedChunk, error) {
	vectors, err := e.embedder.Embed(ctx, []string{query}, e.queryPooling)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}

	ids, scores, err := e.idx.Search(vectors[0], e.topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var results []domain.RetrievedChunk
	for i, id := range ids {
		if id < 0 {
			continue
		}

		// Inner product of unit vectors lands in [-1, 1]; fold it into a
		// [0, 1] confidence before thresholding.
		sim := float64(scores[i]) / 2
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		if sim < e.minSimilarity {
			continue
		}

		chunk, ok := e.meta.Get(id)
		if !ok {
			return nil, fmt.Errorf("no metadata for chunk %d", id)
		}
		results = append(results, domain.RetrievedChunk{Text: chunk.Text, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > e.finalK {
		results = results[:e.finalK]
	}
	return results, nil
}

// BuildPrompt assembles the generation prompt from the question and the
// retrieved passages.
func BuildPrompt(question string, chunks []domain.RetrievedChunk) string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), question)
}

// Answer streams a grounded answer for the question using the given
// passages. The caller owns the stream and must close it on every exit
// path.
func (e *Engine) Answer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (port.AnswerStream, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot answer without context")
	}
	stream, err := e.generator.Stream(ctx, BuildPrompt(question, chunks), e.genParams)
	if err != nil {
		return nil, fmt.Errorf("failed to start generation: %w", err)
	}
	return stream, nil
}

// Ask runs retrieval and generation in one step. When nothing relevant is
// found it returns a nil stream and false; the caller renders the fixed
// out-of-context answer instead.
func (e *Engine) Ask(ctx context.Context, question string) (port.AnswerStream, bool, error) {
	chunks, err := e.Retrieve(ctx, question)
	if err != nil {
		return nil, false, err
	}
	if len(chunks) == 0 {
		return nil, false, nil
	}
	stream, err := e.Answer(ctx, question, chunks)
	if err != nil {
		return nil, false, err
	}
	return stream, true, nil
}
