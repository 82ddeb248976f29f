package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"paperrag/config"
	"paperrag/internal/adapter/embedding"
	"paperrag/internal/adapter/generation"
	"paperrag/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "paperrag",
	Short: "Ask questions against a single indexed paper",
	Long: `paperrag ingests one PDF into a local vector index and answers
questions grounded in its text and figures. Answers come only from the
indexed document; questions it cannot support get a fixed out-of-context
reply.

Example usage:
  paperrag ingest paper.pdf        # Build the index for one document
  paperrag ask "what is measured?" # Stream a grounded answer
  paperrag chat                    # Interactive session
  paperrag serve                   # HTTP API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; keys can come from the environment.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./paperrag.yaml)")
}

func newEmbedder() (port.Embedder, error) {
	return embedding.NewRemoteEmbedder(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKeyEnv,
		cfg.Embedding.Dimension,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.BatchSize,
	)
}

func newGenerator() port.Generator {
	return generation.NewCompletionClient(cfg.Generate.BaseURL, cfg.Generate.APIKeyEnv, cfg.Generate.Model)
}
