package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"paperrag/internal/usecase"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the indexed document",
	Long: `Retrieve the most relevant passages for the question and stream a
grounded answer. Prints OUT OF CONTEXT when the document has nothing
relevant to say.

Examples:
  paperrag ask "what dataset was used?"
  paperrag ask --sources "how were outliers handled?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print retrieved passages before the answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	engine, err := usecase.OpenEngine(embedder, newGenerator(), cfg)
	if err != nil {
		return fmt.Errorf("no usable index; run 'paperrag ingest' first: %w", err)
	}

	// Ctrl-C aborts generation server-side through context cancellation.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chunks, err := engine.Retrieve(ctx, question)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if len(chunks) == 0 {
		fmt.Println(usecase.OutOfContextAnswer)
		return nil
	}

	if askShowSources {
		fmt.Printf("Passages (%d):\n", len(chunks))
		for i, c := range chunks {
			fmt.Printf("--- [%d] similarity %.2f ---\n%s\n\n", i+1, c.Similarity, c.Text)
		}
		fmt.Println("Answer:")
	}

	stream, err := engine.Answer(ctx, question, chunks)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	defer stream.Close()

	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("stream failed: %w", err)
		}
		fmt.Print(frag)
	}
	fmt.Println()
	return nil
}
