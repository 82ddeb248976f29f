package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"paperrag/internal/adapter/catalog"
	"paperrag/internal/adapter/extract"
	"paperrag/internal/adapter/segment"
	"paperrag/internal/server"
	"paperrag/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the pipeline over HTTP: POST /upload to index a document,
POST /ask to stream an answer, GET /status and POST /clear to manage the
index. An index left by an earlier run is picked up at startup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	generator := newGenerator()

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	chunker := segment.NewWindowChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	segmenter := segment.NewSegmenter(extract.NewTesseractOCR(cfg.Ingest.OCRLanguage), chunker)
	ingestor := usecase.NewIngestor(extract.NewPDFExtractor(), segmenter, embedder, cat, cfg)

	srv := server.New(cfg, ingestor, embedder, generator, cat)
	if err := srv.TryLoad(); err != nil {
		fmt.Printf("Warning: could not load existing index: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	fmt.Printf("Listening on %s\n", cfg.Server.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
