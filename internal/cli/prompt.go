package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Show or replace the main agent prompt",
}

var promptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current main prompt",
	RunE:  runPromptShow,
}

var promptSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the main prompt",
	Long: `Replace the main prompt with the contents of a file.

Examples:
  mcollect prompt set --file best.txt
  mcollect prompt set --file best.txt --name "Sarah v2"`,
	RunE: runPromptSet,
}

var (
	promptFile string
	promptName string
)

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.AddCommand(promptShowCmd)
	promptCmd.AddCommand(promptSetCmd)

	promptSetCmd.Flags().StringVarP(&promptFile, "file", "f", "", "File holding the new prompt (required)")
	promptSetCmd.Flags().StringVarP(&promptName, "name", "n", "", "Display name for the prompt")
	_ = promptSetCmd.MarkFlagRequired("file")
}

func runPromptShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	mp, err := app.Prompt.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get main prompt: %w", err)
	}
	if mp == nil {
		fmt.Println("No main prompt stored, using default:")
		fmt.Println(domain.DefaultAgentPrompt)
		return nil
	}

	fmt.Printf("Name:    %s\n", mp.Name)
	fmt.Printf("Updated: %s\n\n", util.FormatDateTime(mp.UpdatedAt))
	fmt.Println(mp.Prompt)
	return nil
}

func runPromptSet(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(promptFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", promptFile, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return &domain.ValidationError{Field: "prompt", Reason: "is empty"}
	}

	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	name := promptName
	if name == "" {
		existing, err := app.Prompt.Get(ctx)
		if err != nil {
			return fmt.Errorf("failed to get main prompt: %w", err)
		}
		if existing != nil {
			name = existing.Name
		}
	}

	if err := app.Prompt.Save(ctx, &domain.MainPrompt{Name: name, Prompt: text}); err != nil {
		return fmt.Errorf("failed to save main prompt: %w", err)
	}
	fmt.Printf("Main prompt updated (%d chars)\n", len(text))
	return nil
}
