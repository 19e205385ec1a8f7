package scorer

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

type mockOracle struct {
	generateFn  func(ctx context.Context, instruction string, sampling ports.Sampling) (string, error)
	instruction string
	sampling    ports.Sampling
}

func (m *mockOracle) Generate(ctx context.Context, instruction string, sampling ports.Sampling) (string, error) {
	m.instruction = instruction
	m.sampling = sampling
	return m.generateFn(ctx, instruction, sampling)
}

func respond(text string) *mockOracle {
	return &mockOracle{generateFn: func(context.Context, string, ports.Sampling) (string, error) {
		return text, nil
	}}
}

var transcript = domain.Transcript{
	{Speaker: domain.SpeakerAgent, Text: "Hello, this is Sarah from SecureBank."},
	{Speaker: domain.SpeakerPersona, Text: "Oh, hi. Is this about my card?"},
}

var persona = domain.Persona{Name: "Maria Rodriguez", Archetype: "Cooperative", CooperationLevel: "High"}

const wellFormed = `Here is my evaluation.
{
  "metrics": {
    "repetition_score": 2,
    "negotiation_effectiveness": 8,
    "response_relevance": 9,
    "payment_commitment_achieved": true,
    "professional_tone": 9,
    "customer_satisfaction": 7
  },
  "overallScore": 8.75,
  "strengths": ["Empathetic opening"],
  "improvements": ["Offer a plan earlier"],
  "recommendations": ["Confirm the payment date"]
}
Let me know if you need more.`

func TestScore_ParsesWeightedReport(t *testing.T) {
	oracle := respond(wellFormed)
	s := New(oracle, zap.NewNop())

	report, err := s.Score(context.Background(), transcript, persona)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if math.Abs(report.OverallScore-8.75) > 1e-6 {
		t.Errorf("OverallScore = %v, want 8.75", report.OverallScore)
	}
	if !report.Metrics.PaymentCommitment {
		t.Error("expected payment commitment")
	}
	if report.Fallback {
		t.Error("expected a parsed report, got fallback")
	}
	if len(report.Improvements) != 1 || report.Improvements[0] != "Offer a plan earlier" {
		t.Errorf("Improvements = %v", report.Improvements)
	}

	if oracle.sampling.Temperature != 0.1 || oracle.sampling.MaxTokens != 1500 {
		t.Errorf("unexpected sampling %+v", oracle.sampling)
	}
	if !strings.Contains(oracle.instruction, "CUSTOMER: Oh, hi. Is this about my card?") {
		t.Error("rubric prompt does not include the rendered transcript")
	}
	if !strings.Contains(oracle.instruction, "Maria Rodriguez") {
		t.Error("rubric prompt does not include the persona")
	}
}

func TestParse_RecomputesOverallScore(t *testing.T) {
	s := New(nil, zap.NewNop())
	text := strings.Replace(wellFormed, `"overallScore": 8.75`, `"overallScore": 9.9`, 1)

	report := s.Parse(text)
	if math.Abs(report.OverallScore-8.75) > 1e-6 {
		t.Errorf("OverallScore = %v, want recomputed 8.75", report.OverallScore)
	}
}

func TestParse_ClampsOutOfRangeMetrics(t *testing.T) {
	s := New(nil, zap.NewNop())
	text := `{"metrics":{"repetition_score":-4,"negotiation_effectiveness":12,"response_relevance":10,"payment_commitment_achieved":false,"professional_tone":10,"customer_satisfaction":10}}`

	report := s.Parse(text)
	if report.Metrics.Repetition != 0 || report.Metrics.NegotiationEffectiveness != 10 {
		t.Errorf("metrics not clamped: %+v", report.Metrics)
	}
	want := 10*0.15 + 10*0.25 + 10*0.20 + 0 + 10*0.10 + 10*0.05
	if math.Abs(report.OverallScore-want) > 1e-6 {
		t.Errorf("OverallScore = %v, want %v", report.OverallScore, want)
	}
}

func TestParse_FallsBackToNeutral(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "prose only", text: "The agent did a reasonable job overall."},
		{name: "missing metric", text: `{"metrics":{"repetition_score":2},"overallScore":7}`},
		{name: "wrong types", text: `{"metrics":{"repetition_score":"low"}}`},
		{name: "empty", text: ""},
	}

	s := New(nil, zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := s.Parse(tt.text)
			if !report.Fallback {
				t.Error("expected fallback report")
			}
			if report.OverallScore != 5.0 {
				t.Errorf("OverallScore = %v, want 5.0", report.OverallScore)
			}
		})
	}
}

func TestScore_OracleErrorIsScoringFailure(t *testing.T) {
	oracle := &mockOracle{generateFn: func(context.Context, string, ports.Sampling) (string, error) {
		return "", &domain.OracleError{Op: "generate", Err: errors.New("401 unauthorized")}
	}}
	s := New(oracle, zap.NewNop())

	_, err := s.Score(context.Background(), transcript, persona)
	var scoringErr *domain.ScoringError
	if !errors.As(err, &scoringErr) {
		t.Fatalf("expected ScoringError, got %v", err)
	}
	var oracleErr *domain.OracleError
	if !errors.As(err, &oracleErr) {
		t.Error("expected the oracle error to be wrapped")
	}
}
