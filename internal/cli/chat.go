package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paperrag/internal/tui"
	"paperrag/internal/usecase"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question session",
	Long: `Open a terminal chat over the indexed document. Answers stream in
as they are generated; Ctrl-C quits and aborts any answer in flight.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	engine, err := usecase.OpenEngine(embedder, newGenerator(), cfg)
	if err != nil {
		return fmt.Errorf("no usable index; run 'paperrag ingest' first: %w", err)
	}

	return tui.Run(engine)
}
