package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"paperrag/internal/adapter/catalog"
	"paperrag/internal/adapter/docs"
	"paperrag/internal/adapter/extract"
	"paperrag/internal/adapter/segment"
	"paperrag/internal/port"
	"paperrag/internal/usecase"
)

var ingestNoOCR bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <document>",
	Short: "Index one PDF document",
	Long: `Extract, chunk and embed a PDF into the local index, replacing
whatever was indexed before. Figure text is recognized with tesseract and
indexed alongside body text.

Examples:
  paperrag ingest paper.pdf
  paperrag ingest 'papers/*.pdf'   # pattern must match exactly one file`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestNoOCR, "no-ocr", false, "skip figure text recognition")
}

func runIngest(cmd *cobra.Command, args []string) error {
	finder := docs.NewFinder(cfg.Ingest.Includes)
	path, err := finder.ResolveOne(args[0])
	if err != nil {
		return err
	}

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	chunker := segment.NewWindowChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	segmenter := segment.NewSegmenter(newOCR(), chunker)

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	ingestor := usecase.NewIngestor(extract.NewPDFExtractor(), segmenter, embedder, cat, cfg)

	fmt.Printf("Ingesting %s...\n", path)

	var bar *progressbar.ProgressBar
	ingestor.OnProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	})

	result, err := ingestor.Ingest(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Run:    %s\n", result.RunID)
	fmt.Printf("  Pages:  %d\n", result.Pages)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	fmt.Printf("\nIndex stored at: %s\n", cfg.IndexPath())
	return nil
}

func newOCR() port.OCR {
	if ingestNoOCR {
		return nil
	}
	return extract.NewTesseractOCR(cfg.Ingest.OCRLanguage)
}
