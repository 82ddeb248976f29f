package generation

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"paperrag/internal/port"
)

// CompletionClient streams raw text completions from an OpenAI-compatible
// server (llama.cpp server, vLLM, or the hosted API). The prompt carries
// its own role delimiters, so the plain completion endpoint is used rather
// than the chat one.
type CompletionClient struct {
	client *openai.Client
	model  string
}

// NewCompletionClient creates a client for the server at baseURL. The API
// key is read from apiKeyEnv; local servers ignore authentication, so a
// missing key falls back to a placeholder instead of failing.
func NewCompletionClient(baseURL, apiKeyEnv, model string) *CompletionClient {
	apiKey := ""
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if apiKey == "" {
		apiKey = "unused"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &CompletionClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Stream starts a streaming completion. The returned stream yields
// fragments in generation order and must be closed by the caller on every
// exit path; cancelling ctx aborts generation server-side.
func (c *CompletionClient) Stream(ctx context.Context, prompt string, params port.GenParams) (port.AnswerStream, error) {
	stream, err := c.client.CreateCompletionStream(ctx, openai.CompletionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start completion stream: %w", err)
	}
	return &completionStream{stream: stream}, nil
}

type completionStream struct {
	stream *openai.CompletionStream
}

// Recv returns the next fragment, or io.EOF when generation finishes.
func (s *completionStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Text, nil
}

func (s *completionStream) Close() error {
	return s.stream.Close()
}
