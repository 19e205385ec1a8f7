package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mcollect/internal/seed"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

var personaCmd = &cobra.Command{
	Use:     "persona",
	Aliases: []string{"personas"},
	Short:   "Manage customer personas",
}

var personaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personas",
	RunE:  runPersonaList,
}

var personaShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaShow,
}

var personaImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import personas from a YAML file",
	Long: `Import personas from a YAML file in the seed format.

Every persona in the file is created as a new record. A main_prompt entry,
if present, replaces the stored main prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: runPersonaImport,
}

var personaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export personas and the main prompt as YAML",
	RunE:  runPersonaExport,
}

var personaDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaDelete,
}

var personaExportOutput string

func init() {
	rootCmd.AddCommand(personaCmd)
	personaCmd.AddCommand(personaListCmd)
	personaCmd.AddCommand(personaShowCmd)
	personaCmd.AddCommand(personaImportCmd)
	personaCmd.AddCommand(personaExportCmd)
	personaCmd.AddCommand(personaDeleteCmd)

	personaExportCmd.Flags().StringVarP(&personaExportOutput, "output", "o", "", "Write to file instead of stdout")
}

func runPersonaList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	personas, err := app.Personas.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}
	if len(personas) == 0 {
		fmt.Println("No personas found. Run 'mcollect serve' or 'mcollect persona import' to add some.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCOOPERATION\tBACKGROUND")
	fmt.Fprintln(w, "--\t----\t----\t-----------\t----------")
	for _, p := range personas {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Archetype, p.CooperationLevel, util.Truncate(p.Background, 40))
	}
	w.Flush()

	fmt.Printf("\nShowing %d personas\n", len(personas))
	return nil
}

func runPersonaShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := loadPersona(ctx, app.Personas, id)
	if err != nil {
		return err
	}

	fmt.Printf("Persona %d: %s\n", p.ID, p.Name)
	fmt.Printf("  Type:          %s\n", p.Archetype)
	fmt.Printf("  Background:    %s\n", p.Background)
	fmt.Printf("  Finances:      %s\n", p.FinancialSituation)
	fmt.Printf("  Communication: %s\n", p.CommunicationStyle)
	fmt.Printf("  Cooperation:   %s\n", p.CooperationLevel)
	printList(os.Stdout, "Personality traits", p.PersonalityTraits)
	printList(os.Stdout, "Likely responses", p.ExampleUtterances)
	printList(os.Stdout, "Speech patterns", p.SpeechPatterns)
	printList(os.Stdout, "Behaviors", p.Behaviors)
	return nil
}

func runPersonaImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	file, err := seed.Decode(f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	for i := range file.Personas {
		p := file.Personas[i]
		p.ID = 0
		if err := app.Personas.Create(ctx, &p); err != nil {
			return fmt.Errorf("failed to create persona %q: %w", p.Name, err)
		}
		fmt.Printf("Created persona %d: %s\n", p.ID, p.Name)
	}

	if file.MainPrompt != nil {
		if err := app.Prompt.Save(ctx, file.MainPrompt); err != nil {
			return fmt.Errorf("failed to save main prompt: %w", err)
		}
		fmt.Printf("Updated main prompt: %s\n", file.MainPrompt.Name)
	}
	return nil
}

func runPersonaExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	personas, err := app.Personas.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}
	prompt, err := app.Prompt.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get main prompt: %w", err)
	}

	file := &seed.File{MainPrompt: prompt}
	for _, p := range personas {
		file.Personas = append(file.Personas, *p)
	}

	out := os.Stdout
	if personaExportOutput != "" {
		f, err := os.Create(personaExportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := seed.Encode(out, file); err != nil {
		return err
	}
	if personaExportOutput != "" {
		fmt.Fprintf(os.Stderr, "Exported %d personas to %s\n", len(personas), personaExportOutput)
	}
	return nil
}

func runPersonaDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := loadPersona(ctx, app.Personas, id); err != nil {
		return err
	}
	if err := app.Personas.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	fmt.Printf("Deleted persona %d\n", id)
	return nil
}
