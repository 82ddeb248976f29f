package port

import "context"

// GenParams are the generation parameters for one completion.
type GenParams struct {
	MaxTokens   int
	Temperature float32
}

// AnswerStream is a pull-based, finite, non-restartable sequence of
// generated text fragments. Recv returns io.EOF when generation finishes.
// Close releases the underlying generation resources and must be called
// on every exit path, including early termination.
type AnswerStream interface {
	Recv() (string, error)
	Close() error
}

// Generator produces a streaming completion for a fully formed prompt.
// Cancelling ctx stops generation promptly.
type Generator interface {
	Stream(ctx context.Context, prompt string, params GenParams) (AnswerStream, error)
}
