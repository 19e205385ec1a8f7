package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mcollect",
	Short: "Test harness for debt-collection voice agents",
	Long: `mcollect exercises a debt-collection agent prompt against synthetic customer
personas.

Simulate conversations, score them against a weighted rubric, and run the
self-improvement loop that rewrites the prompt until it reaches a target score.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
