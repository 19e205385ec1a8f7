package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate one conversation with a persona",
	Long: `Simulate one conversation between the main prompt and a persona, printing
turns as they are generated.

Examples:
  mcollect simulate --persona 1
  mcollect simulate --persona 3 --phone          # phone-call style with pacing
  mcollect simulate --persona 3 --score --save   # score and keep the analysis`,
	RunE: runSimulate,
}

var (
	simulatePersona int64
	simulatePhone   bool
	simulateScore   bool
	simulateSave    bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Int64Var(&simulatePersona, "persona", 0, "Persona ID (required)")
	simulateCmd.Flags().BoolVar(&simulatePhone, "phone", false, "Use the paced phone-call style")
	simulateCmd.Flags().BoolVar(&simulateScore, "score", false, "Score the finished conversation")
	simulateCmd.Flags().BoolVar(&simulateSave, "save", false, "Store the analysis in the conversation history (implies --score)")
	_ = simulateCmd.MarkFlagRequired("persona")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	persona, err := loadPersona(ctx, app.Personas, simulatePersona)
	if err != nil {
		return err
	}
	prompt, err := currentPrompt(ctx, app.Prompt)
	if err != nil {
		return err
	}

	engine, err := app.NewEngine(ctx)
	if err != nil {
		return err
	}
	sim := engine.Loop
	if simulatePhone {
		sim = engine.Interactive
	}

	fmt.Printf("Simulating conversation with %s (%s)\n\n", persona.Name, persona.Archetype)
	transcript, err := sim.Stream(ctx, prompt, *persona, func(turn domain.Turn) {
		printTranscript(os.Stdout, domain.Transcript{turn})
	})
	if err != nil {
		return fmt.Errorf("simulation interrupted after %d turns: %w", len(transcript), err)
	}
	fmt.Printf("\nConversation ended after %d turns", len(transcript))
	if n := len(transcript); n > 0 && simulator.EndsConversation(transcript[n-1].Text) {
		fmt.Print(" (closed by end phrase)")
	}
	fmt.Println()

	if !simulateScore && !simulateSave {
		return nil
	}

	report, err := engine.Scorer.Score(ctx, transcript, *persona)
	if err != nil {
		return err
	}
	fmt.Println()
	printReport(os.Stdout, report)

	if simulateSave {
		analysis := &domain.ConversationAnalysis{
			ID:           uuid.NewString(),
			PersonaID:    persona.ID,
			PersonaName:  persona.Name,
			Conversation: transcript,
			Report:       report,
		}
		if err := app.Analyses.Create(ctx, analysis); err != nil {
			return fmt.Errorf("failed to save analysis: %w", err)
		}
		fmt.Printf("\nSaved analysis %s\n", analysis.ID)
	}
	return nil
}
