package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"paperrag/config"
	"paperrag/internal/adapter/embedding"
	"paperrag/internal/adapter/index"
	"paperrag/internal/adapter/store"
	"paperrag/internal/port"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding the config and index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding service connectivity and vector width")
		fmt.Println("  2. Raw inner-product scores against the indexed chunks")
		fmt.Println("  3. Which chunks clear the similarity threshold")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	idx, err := index.Open(cfg.IndexPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	meta, err := store.Load(cfg.MetaPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening metadata: %v\n", err)
		os.Exit(1)
	}

	embedder, err := embedding.NewRemoteEmbedder(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKeyEnv,
		cfg.Embedding.Dimension,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.BatchSize,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding service not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d\n", idx.Len())
	fmt.Printf("Dimension: %d\n", idx.Dimension())
	fmt.Printf("Threshold: %.2f\n", cfg.Retrieve.MinSimilarity)
	fmt.Println()

	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	vectors, err := embedder.Embed(ctx, []string{*query}, port.Pooling(cfg.Embedding.QueryPooling))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding failed: %v\n", err)
		os.Exit(1)
	}
	embedTime := time.Since(start)

	start = time.Now()
	ids, scores, err := idx.Search(vectors[0], *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	searchTime := time.Since(start)

	passed := 0
	for i, id := range ids {
		if id < 0 {
			continue
		}
		sim := float64(scores[i]) / 2
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}

		mark := " "
		if sim >= cfg.Retrieve.MinSimilarity {
			mark = "*"
			passed++
		}

		chunk, _ := meta.Get(id)
		text := chunk.Text
		if len(text) > 80 {
			text = text[:80] + "..."
		}
		fmt.Printf("%s [%2d] raw=%+.4f sim=%.3f p%d/%s: %s\n",
			mark, i+1, scores[i], sim, chunk.Page, chunk.Section, text)
	}

	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Above threshold: %d\n", passed)
	fmt.Printf("Embed: %s  Search: %s\n", embedTime.Round(time.Millisecond), searchTime.Round(time.Microsecond))
}
