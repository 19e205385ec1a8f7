package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a positive integer", s)}
	}
	return id, nil
}

func loadPersona(ctx context.Context, repo ports.PersonaRepository, id int64) (*domain.Persona, error) {
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	if p == nil {
		return nil, &domain.NotFoundError{Entity: "persona", ID: strconv.FormatInt(id, 10)}
	}
	return p, nil
}

// currentPrompt returns the stored main prompt or the built-in default.
func currentPrompt(ctx context.Context, repo ports.MainPromptRepository) (string, error) {
	mp, err := repo.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get main prompt: %w", err)
	}
	if mp == nil || strings.TrimSpace(mp.Prompt) == "" {
		return domain.DefaultAgentPrompt, nil
	}
	return mp.Prompt, nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printTranscript(w io.Writer, t domain.Transcript) {
	for _, turn := range t {
		label := "Customer"
		if turn.Speaker == domain.SpeakerAgent {
			label = "Agent"
		}
		fmt.Fprintf(w, "%-9s %s\n", label+":", turn.Text)
	}
}

func printReport(w io.Writer, r domain.ScoreReport) {
	m := r.Metrics
	fmt.Fprintf(w, "Overall score:        %s\n", util.FormatScore(r.OverallScore))
	if r.Fallback {
		fmt.Fprintln(w, "  (scoring failed, neutral fallback)")
	}
	fmt.Fprintf(w, "  Repetition:         %.1f\n", m.Repetition)
	fmt.Fprintf(w, "  Negotiation:        %.1f\n", m.NegotiationEffectiveness)
	fmt.Fprintf(w, "  Relevance:          %.1f\n", m.ResponseRelevance)
	fmt.Fprintf(w, "  Commitment:         %t\n", m.PaymentCommitment)
	fmt.Fprintf(w, "  Tone:               %.1f\n", m.ProfessionalTone)
	fmt.Fprintf(w, "  Satisfaction:       %.1f\n", m.CustomerSatisfaction)
	printList(w, "Strengths", r.Strengths)
	printList(w, "Improvements", r.Improvements)
	printList(w, "Recommendations", r.Recommendations)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
