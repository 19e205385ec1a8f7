package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/improve"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past improvement sessions and analyses",
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions <persona-id>",
	Short: "List finished improvement sessions for a persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySessions,
}

var historySessionCmd = &cobra.Command{
	Use:   "session <session-id>",
	Short: "Show one improvement session with its iterations",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySession,
}

var historyAnalysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "List stored conversation analyses",
	RunE:  runHistoryAnalyses,
}

var (
	historyLimit      int
	historyTranscript int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historySessionsCmd)
	historyCmd.AddCommand(historySessionCmd)
	historyCmd.AddCommand(historyAnalysesCmd)

	historyAnalysesCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of analyses to show")
	historySessionCmd.Flags().IntVar(&historyTranscript, "transcript", 0, "Print the archived transcript of this iteration")
}

func runHistorySessions(cmd *cobra.Command, args []string) error {
	personaID, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sessions, err := app.Sessions.ListByPersona(ctx, personaID)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tSTATE\tITERATIONS\tBEST\tTARGET\tSTARTED\tDURATION")
	fmt.Fprintln(w, "--\t-----\t----------\t----\t------\t-------\t--------")
	for _, s := range sessions {
		duration := "-"
		if s.EndedAt != nil {
			duration = util.FormatDuration(s.EndedAt.Sub(s.StartedAt))
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.1f\t%.1f\t%s\t%s\n",
			s.ID, s.State, s.CurrentIteration, s.MaxIterations, s.BestScore, s.TargetScore,
			util.FormatDateTime(s.StartedAt), duration)
	}
	w.Flush()

	fmt.Printf("\nShowing %d sessions\n", len(sessions))
	return nil
}

func runHistorySession(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := app.Sessions.GetByID(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if s == nil {
		return &domain.NotFoundError{Entity: "improvement session", ID: args[0]}
	}

	printImprovementSummary(*s)

	if len(s.History) > 0 {
		fmt.Println()
		w := newTable()
		fmt.Fprintln(w, "ITERATION\tSCORE\tCOMMITMENT\tTIME")
		fmt.Fprintln(w, "---------\t-----\t----------\t----")
		for _, rec := range s.History {
			fmt.Fprintf(w, "%d\t%.1f\t%t\t%s\n",
				rec.Iteration, rec.Score, rec.Report.Metrics.PaymentCommitment, util.FormatDateTime(rec.Timestamp))
		}
		w.Flush()
	}

	if historyTranscript > 0 {
		transcript, err := app.TranscriptStorage.Get(ctx, improve.TranscriptKey(s.ID, historyTranscript))
		if err != nil {
			return fmt.Errorf("failed to load transcript: %w", err)
		}
		fmt.Printf("\nTranscript of iteration %d:\n", historyTranscript)
		printTranscript(os.Stdout, transcript)
	}
	return nil
}

func runHistoryAnalyses(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	analyses, err := app.Analyses.List(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}
	if len(analyses) == 0 {
		fmt.Println("No analyses found.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tPERSONA\tTURNS\tSCORE\tCOMMITMENT\tCREATED")
	fmt.Fprintln(w, "--\t-------\t-----\t-----\t----------\t-------")
	for _, a := range analyses {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%t\t%s\n",
			util.Truncate(a.ID, 8), a.PersonaName, len(a.Conversation), a.Report.OverallScore,
			a.Report.Metrics.PaymentCommitment, util.FormatDateTime(a.CreatedAt))
	}
	w.Flush()

	fmt.Printf("\nShowing %d analyses\n", len(analyses))
	return nil
}
