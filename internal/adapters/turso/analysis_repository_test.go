package turso_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/emiliopalmerini/mcollect/internal/adapters/turso"
	"github.com/emiliopalmerini/mcollect/internal/domain"
)

func TestConversationAnalysisRepository_CreateAndList(t *testing.T) {
	repo := turso.NewConversationAnalysisRepository(testDB(t))
	ctx := context.Background()

	a := &domain.ConversationAnalysis{
		ID:          "analysis-1",
		PersonaID:   2,
		PersonaName: "David Chen",
		Conversation: domain.Transcript{
			{Speaker: domain.SpeakerAgent, Text: "Hello"},
			{Speaker: domain.SpeakerPersona, Text: "Who is this?"},
		},
		Report: domain.NewScoreReport(domain.Metrics{Repetition: 2, NegotiationEffectiveness: 6}, nil, nil, nil),
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(list))
	}
	got := list[0]
	if got.PersonaName != "David Chen" || len(got.Conversation) != 2 {
		t.Errorf("got %+v", got)
	}
	if got.Report.OverallScore != a.Report.OverallScore {
		t.Errorf("OverallScore = %v, want %v", got.Report.OverallScore, a.Report.OverallScore)
	}
}

func TestConversationAnalysisRepository_TrimsToNewest(t *testing.T) {
	repo := turso.NewConversationAnalysisRepository(testDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	total := turso.MaxStoredAnalyses + 5
	for i := 0; i < total; i++ {
		a := &domain.ConversationAnalysis{
			ID:        fmt.Sprintf("a-%03d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			Report:    domain.NeutralScoreReport(),
		}
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	list, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != turso.MaxStoredAnalyses {
		t.Fatalf("kept %d analyses, want %d", len(list), turso.MaxStoredAnalyses)
	}
	if list[0].ID != fmt.Sprintf("a-%03d", total-1) {
		t.Errorf("newest = %s", list[0].ID)
	}
	if list[len(list)-1].ID != "a-005" {
		t.Errorf("oldest kept = %s, want a-005", list[len(list)-1].ID)
	}
}
