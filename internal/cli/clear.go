package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paperrag/internal/usecase"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the index and its metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := usecase.ClearPair(cfg); err != nil {
			return err
		}
		fmt.Println("Index cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
