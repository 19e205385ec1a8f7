package domain

import "math"

// Weights of the overall score. Changing any of them breaks comparability between stored reports.
const (
	WeightRepetition   = 0.15
	WeightNegotiation  = 0.25
	WeightRelevance    = 0.20
	WeightCommitment   = 0.25
	WeightTone         = 0.10
	WeightSatisfaction = 0.05

	MinMetric = 0.0
	MaxMetric = 10.0

	NeutralScore = 5.0
)

// Metrics are the six rubric dimensions. Repetition is inverted: lower is better.
type Metrics struct {
	Repetition               float64 `json:"repetition_score"`
	NegotiationEffectiveness float64 `json:"negotiation_effectiveness"`
	ResponseRelevance        float64 `json:"response_relevance"`
	PaymentCommitment        bool    `json:"payment_commitment_achieved"`
	ProfessionalTone         float64 `json:"professional_tone"`
	CustomerSatisfaction     float64 `json:"customer_satisfaction"`
}

// Overall computes the weighted overall score.
func (m Metrics) Overall() float64 {
	commitment := 0.0
	if m.PaymentCommitment {
		commitment = MaxMetric
	}
	return (MaxMetric-m.Repetition)*WeightRepetition +
		m.NegotiationEffectiveness*WeightNegotiation +
		m.ResponseRelevance*WeightRelevance +
		commitment*WeightCommitment +
		m.ProfessionalTone*WeightTone +
		m.CustomerSatisfaction*WeightSatisfaction
}

// Clamp forces every numeric metric into the rubric range.
func (m Metrics) Clamp() Metrics {
	m.Repetition = clampMetric(m.Repetition)
	m.NegotiationEffectiveness = clampMetric(m.NegotiationEffectiveness)
	m.ResponseRelevance = clampMetric(m.ResponseRelevance)
	m.ProfessionalTone = clampMetric(m.ProfessionalTone)
	m.CustomerSatisfaction = clampMetric(m.CustomerSatisfaction)
	return m
}

func clampMetric(v float64) float64 {
	if math.IsNaN(v) {
		return MinMetric
	}
	return math.Max(MinMetric, math.Min(MaxMetric, v))
}

type ScoreReport struct {
	Metrics         Metrics  `json:"metrics"`
	OverallScore    float64  `json:"overallScore"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
	// Fallback marks the neutral report substituted for an unparseable response.
	Fallback bool `json:"fallback,omitempty"`
}

// NewScoreReport builds a report whose overall score is derived from the metrics.
func NewScoreReport(m Metrics, strengths, improvements, recommendations []string) ScoreReport {
	m = m.Clamp()
	return ScoreReport{
		Metrics:         m,
		OverallScore:    m.Overall(),
		Strengths:       nonNil(strengths),
		Improvements:    nonNil(improvements),
		Recommendations: nonNil(recommendations),
	}
}

// NeutralScoreReport is substituted when the scorer response cannot be parsed.
// Its overall score is fixed at NeutralScore rather than derived from the metrics.
func NeutralScoreReport() ScoreReport {
	return ScoreReport{
		Metrics: Metrics{
			Repetition:               NeutralScore,
			NegotiationEffectiveness: NeutralScore,
			ResponseRelevance:        NeutralScore,
			PaymentCommitment:        false,
			ProfessionalTone:         NeutralScore,
			CustomerSatisfaction:     NeutralScore,
		},
		OverallScore:    NeutralScore,
		Strengths:       []string{"Professional tone maintained", "Clear communication"},
		Improvements:    []string{"Analysis parsing failed", "Manual review needed"},
		Recommendations: []string{"Review conversation manually", "Check analysis system"},
		Fallback:        true,
	}
}

// Clone deep-copies the qualitative lists.
func (r ScoreReport) Clone() ScoreReport {
	r.Strengths = cloneStrings(r.Strengths)
	r.Improvements = cloneStrings(r.Improvements)
	r.Recommendations = cloneStrings(r.Recommendations)
	return r
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
