package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

var improveCmd = &cobra.Command{
	Use:   "improve",
	Short: "Run the self-improvement loop",
	Long: `Run the self-improvement loop against one persona in the foreground.

Each iteration simulates a conversation with the current prompt, scores it,
and asks the oracle to rewrite the prompt. The loop stops when the target
score is reached, after the maximum number of iterations, or on Ctrl-C.

Examples:
  mcollect improve --persona 2
  mcollect improve --persona 2 --target 8.5 --max-iterations 5
  mcollect improve --persona 2 --save   # store the best prompt as the main prompt`,
	RunE: runImprove,
}

var (
	improvePersona       int64
	improveTarget        float64
	improveMaxIterations int
	improveSave          bool
	improvePoll          time.Duration
)

func init() {
	rootCmd.AddCommand(improveCmd)
	improveCmd.Flags().Int64Var(&improvePersona, "persona", 0, "Persona ID (required)")
	improveCmd.Flags().Float64Var(&improveTarget, "target", 8.0, "Target overall score")
	improveCmd.Flags().IntVar(&improveMaxIterations, "max-iterations", 10, "Maximum iterations")
	improveCmd.Flags().BoolVar(&improveSave, "save", false, "Save the best prompt as the main prompt when finished")
	improveCmd.Flags().DurationVar(&improvePoll, "poll", 2*time.Second, "Progress polling interval")
	_ = improveCmd.MarkFlagRequired("persona")
}

func runImprove(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	engine, err := app.NewEngine(ctx)
	if err != nil {
		return err
	}

	id, err := engine.Registry.Create(ctx, improvePersona, improveTarget, improveMaxIterations)
	if err != nil {
		return err
	}
	session, ok := engine.Registry.Get(id)
	if !ok {
		return fmt.Errorf("session %s vanished", id)
	}
	fmt.Printf("Started session %s (target %.1f, max %d iterations)\n", id, improveTarget, improveMaxIterations)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(improvePoll)
	defer ticker.Stop()

	printed := 0
wait:
	for {
		select {
		case <-session.Done():
			break wait
		case <-sigChan:
			fmt.Println("\nStopping after the current iteration...")
			session.Stop()
		case <-ticker.C:
			printed = printNewIterations(session.Snapshot(), printed)
		}
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelClose()
	if err := engine.Registry.Close(closeCtx); err != nil {
		return err
	}

	snap := session.Snapshot()
	printNewIterations(snap, printed)
	printImprovementSummary(snap)

	if improveSave && snap.BestPrompt != snap.OriginalPrompt {
		name := fmt.Sprintf("Improved for %s", snap.Persona.Name)
		if err := app.Prompt.Save(ctx, &domain.MainPrompt{Name: name, Prompt: snap.BestPrompt}); err != nil {
			return fmt.Errorf("failed to save main prompt: %w", err)
		}
		fmt.Println("\nBest prompt saved as the main prompt")
	}
	return nil
}

func printNewIterations(s domain.ImprovementSession, from int) int {
	for _, rec := range s.History[min(from, len(s.History)):] {
		fmt.Printf("  iteration %-3d score %s\n", rec.Iteration, util.FormatScore(rec.Score))
	}
	return max(from, len(s.History))
}

func printImprovementSummary(s domain.ImprovementSession) {
	fmt.Printf("\nSession %s %s\n", s.ID, s.State)
	fmt.Printf("  Persona:    %s\n", s.Persona.Name)
	fmt.Printf("  Iterations: %d/%d\n", s.CurrentIteration, s.MaxIterations)
	fmt.Printf("  Best score: %s (target %.1f)\n", util.FormatScore(s.BestScore), s.TargetScore)
	if s.EndedAt != nil {
		fmt.Printf("  Duration:   %s\n", util.FormatDuration(s.EndedAt.Sub(s.StartedAt)))
	}
	if s.LatestChange != "" {
		fmt.Printf("  Latest:     %s\n", s.LatestChange)
	}
	if s.State.Terminal() && s.BestPrompt != s.OriginalPrompt {
		fmt.Printf("\nBest prompt:\n%s\n", s.BestPrompt)
	}
}
