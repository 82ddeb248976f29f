package port

import "context"

// Pooling selects how the inference service collapses per-token states
// into a single vector.
type Pooling string

const (
	// PoolingCLS keeps the first (classification) token's state.
	PoolingCLS Pooling = "cls"
	// PoolingMean averages the states of all tokens.
	PoolingMean Pooling = "mean"
)

// Embedder converts texts into fixed-width L2-normalized vectors.
type Embedder interface {
	// Embed generates one vector per input text. Callers must guard
	// against empty input texts; a degenerate text yields a zero vector.
	Embed(ctx context.Context, texts []string, pooling Pooling) ([][]float32, error)

	// Dimension returns the vector width after truncation.
	Dimension() int
}
