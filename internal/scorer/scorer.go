// Package scorer grades a transcript against the collection rubric.
package scorer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
	"github.com/emiliopalmerini/mcollect/internal/structured"
)

var sampling = ports.Sampling{Temperature: 0.1, MaxTokens: 1500}

// wireReport mirrors the JSON the rubric asks for. Metric fields are pointers
// so a missing metric fails validation instead of silently scoring zero.
type wireReport struct {
	Metrics struct {
		Repetition           *float64 `json:"repetition_score"`
		Negotiation          *float64 `json:"negotiation_effectiveness"`
		Relevance            *float64 `json:"response_relevance"`
		PaymentCommitment    *bool    `json:"payment_commitment_achieved"`
		ProfessionalTone     *float64 `json:"professional_tone"`
		CustomerSatisfaction *float64 `json:"customer_satisfaction"`
	} `json:"metrics"`
	OverallScore    *float64 `json:"overallScore"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

var errIncompleteMetrics = errors.New("score report is missing metrics")

func validate(r *wireReport) error {
	m := r.Metrics
	if m.Repetition == nil || m.Negotiation == nil || m.Relevance == nil ||
		m.PaymentCommitment == nil || m.ProfessionalTone == nil || m.CustomerSatisfaction == nil {
		return errIncompleteMetrics
	}
	return nil
}

func (r *wireReport) toDomain() domain.ScoreReport {
	m := domain.Metrics{
		Repetition:               *r.Metrics.Repetition,
		NegotiationEffectiveness: *r.Metrics.Negotiation,
		ResponseRelevance:        *r.Metrics.Relevance,
		PaymentCommitment:        *r.Metrics.PaymentCommitment,
		ProfessionalTone:         *r.Metrics.ProfessionalTone,
		CustomerSatisfaction:     *r.Metrics.CustomerSatisfaction,
	}
	return domain.NewScoreReport(m, r.Strengths, r.Improvements, r.Recommendations)
}

type Scorer struct {
	oracle ports.Oracle
	logger *zap.Logger
}

func New(oracle ports.Oracle, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{oracle: oracle, logger: logger}
}

// Score asks the oracle to grade transcript. Only an oracle failure is
// returned as an error; an unparseable response yields the neutral report.
func (s *Scorer) Score(ctx context.Context, transcript domain.Transcript, persona domain.Persona) (domain.ScoreReport, error) {
	text, err := s.oracle.Generate(ctx, rubricPrompt(transcript, persona), sampling)
	if err != nil {
		return domain.ScoreReport{}, &domain.ScoringError{Err: err}
	}
	return s.Parse(text), nil
}

// Parse extracts a report from raw oracle output. The overall score is always
// recomputed from the metrics so every stored report uses the same weights.
func (s *Scorer) Parse(text string) domain.ScoreReport {
	wire, err := structured.Decode(text, validate)
	if err != nil {
		s.logger.Warn("score report unparseable, using neutral report", zap.Error(err))
		return domain.NeutralScoreReport()
	}
	report := wire.toDomain()
	if wire.OverallScore != nil && !closeTo(*wire.OverallScore, report.OverallScore) {
		s.logger.Debug("oracle overall score differs from weighted metrics",
			zap.Float64("oracle", *wire.OverallScore),
			zap.Float64("computed", report.OverallScore),
		)
	}
	return report
}

func closeTo(a, b float64) bool {
	d := a - b
	return d < 0.01 && d > -0.01
}
