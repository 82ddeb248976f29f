package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paperrag/internal/adapter/catalog"
)

var statusAll bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is indexed",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "list every recorded ingest run")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfg.IndexPath()); os.IsNotExist(err) {
		fmt.Println("No document indexed.")
		return nil
	}

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	if statusAll {
		runs, err := cat.List()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("Index present, but no runs recorded.")
			return nil
		}
		for _, run := range runs {
			fmt.Printf("%s  %-30s  %4d pages  %5d chunks  %s\n",
				run.CreatedAt.Local().Format("2006-01-02 15:04"),
				run.File, run.Pages, run.Chunks, run.ID)
		}
		return nil
	}

	run, ok, err := cat.Latest()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	if !ok {
		fmt.Println("Index present, but no runs recorded.")
		return nil
	}

	fmt.Printf("Document: %s\n", run.File)
	fmt.Printf("Pages:    %d\n", run.Pages)
	fmt.Printf("Chunks:   %d\n", run.Chunks)
	fmt.Printf("Indexed:  %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if run.SHA256 != "" {
		fmt.Printf("SHA256:   %s\n", run.SHA256)
	}
	return nil
}
