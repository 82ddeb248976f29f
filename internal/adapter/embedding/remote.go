package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"paperrag/internal/port"
)

// RemoteEmbedder calls an embedding inference service over HTTP. The
// service tokenizes with truncation and padding, runs the model, and pools
// token states as requested; this adapter keeps only the leading Dimension
// components of each returned vector and L2-normalizes them, so inner
// product over the results approximates cosine similarity.
//
// The embedding model front-loads salient information in its early
// dimensions, which is what makes the prefix usable as a standalone
// vector at a fraction of the native width.
type RemoteEmbedder struct {
	baseURL   string
	apiKey    string
	dimension int
	maxTokens int
	batchSize int
	client    *http.Client
}

type embedRequest struct {
	Texts     []string `json:"texts"`
	Pooling   string   `json:"pooling"`
	MaxLength int      `json:"max_length"`
	Padding   bool     `json:"padding"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewRemoteEmbedder creates an embedder for the service at baseURL. The
// API key is read from apiKeyEnv and may be absent for local inference
// servers that run without authentication.
func NewRemoteEmbedder(baseURL, apiKeyEnv string, dimension, maxTokens, batchSize int) (*RemoteEmbedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if batchSize <= 0 {
		batchSize = 8
	}

	var apiKey string
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}

	return &RemoteEmbedder{
		baseURL:   baseURL,
		apiKey:    apiKey,
		dimension: dimension,
		maxTokens: maxTokens,
		batchSize: batchSize,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Embed generates one truncated, normalized vector per input text.
func (e *RemoteEmbedder) Embed(ctx context.Context, texts []string, pooling port.Pooling) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[i:end], pooling)
		if err != nil {
			return nil, err
		}
		for j, v := range batch {
			kept, err := e.truncate(v)
			if err != nil {
				return nil, fmt.Errorf("vector %d: %w", i+j, err)
			}
			vectors = append(vectors, kept)
		}
	}

	return vectors, nil
}

func (e *RemoteEmbedder) embedBatch(ctx context.Context, texts []string, pooling port.Pooling) ([][]float32, error) {
	reqBody := embedRequest{
		Texts:     texts,
		Pooling:   string(pooling),
		MaxLength: e.maxTokens,
		Padding:   true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if embResp.Error != "" {
		return nil, fmt.Errorf("embedding service error: %s", embResp.Error)
	}
	if len(embResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(embResp.Embeddings))
	}

	return embResp.Embeddings, nil
}

// truncate keeps the leading dimension components and L2-normalizes them.
// A zero vector (degenerate input text) stays zero rather than dividing
// by a zero norm.
func (e *RemoteEmbedder) truncate(v []float32) ([]float32, error) {
	if len(v) < e.dimension {
		return nil, fmt.Errorf("native width %d is smaller than configured dimension %d", len(v), e.dimension)
	}

	kept := make([]float32, e.dimension)
	copy(kept, v[:e.dimension])

	var norm float64
	for _, x := range kept {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return kept, nil
	}
	for i := range kept {
		kept[i] = float32(float64(kept[i]) / norm)
	}
	return kept, nil
}

// Dimension returns the vector width after truncation.
func (e *RemoteEmbedder) Dimension() int {
	return e.dimension
}

// MockEmbedder produces deterministic normalized vectors from character
// codes. It is only useful in tests.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string, pooling port.Pooling) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dimension)
		for j, r := range text {
			v[j%e.dimension] += float32(r) / 1000.0
		}

		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range v {
				v[j] = float32(float64(v[j]) / norm)
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}
