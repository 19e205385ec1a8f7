package scorer

import (
	"fmt"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

func rubricPrompt(transcript domain.Transcript, persona domain.Persona) string {
	return fmt.Sprintf(`You are an expert conversation analyst evaluating a debt collection call. Analyze this conversation between a debt collector and a customer with extreme attention to detail.

CUSTOMER PROFILE:
- Name: %s
- Cooperation Level: %s
- Communication Style: %s
- Background: %s

CONVERSATION:
%s

ANALYSIS REQUIREMENTS:
Evaluate the debt collector's performance on these specific metrics (score 0-10):

1. REPETITION SCORE (0=no repetition, 10=very repetitive):
   - Count exact phrase repetitions, similar concepts restated
   - Assess if bot uses varied language and fresh approaches
   - Lower scores are better (less repetition = better)

2. NEGOTIATION EFFECTIVENESS (0=poor, 10=excellent):
   - Evaluate persuasion tactics and payment plan offerings
   - Assess ability to handle objections and find compromises
   - Rate persistence without being aggressive
   - Judge how well bot moves toward payment commitment

3. RESPONSE RELEVANCE (0=irrelevant, 10=perfectly relevant):
   - How well bot addresses customer's specific concerns
   - Contextual awareness and appropriate responses
   - Staying on topic while being helpful

4. PAYMENT COMMITMENT ACHIEVED (true/false):
   - Did customer make any payment promise or agree to plan?
   - Look for explicit commitments, not just general cooperation

5. PROFESSIONAL TONE MAINTENANCE (0=unprofessional, 10=very professional):
   - Respectful language despite customer behavior
   - Compliance with debt collection standards
   - Professional even under pressure

6. CUSTOMER SATISFACTION ESTIMATION (0=very unsatisfied, 10=very satisfied):
   - Predict how customer felt about the interaction
   - Consider their cooperation level and responses
   - Estimate relationship preservation

CRITICAL: Return ONLY valid JSON in this exact format:
{
  "metrics": {
    "repetition_score": <number>,
    "negotiation_effectiveness": <number>,
    "response_relevance": <number>,
    "payment_commitment_achieved": <boolean>,
    "professional_tone": <number>,
    "customer_satisfaction": <number>
  },
  "overallScore": <number>,
  "strengths": [<array of 2-3 specific strengths>],
  "improvements": [<array of 2-3 specific improvement areas>],
  "recommendations": [<array of 2-3 actionable recommendations>]
}

Calculate overallScore as weighted average:
- (10 - repetition_score) * %.2f + negotiation_effectiveness * %.2f + response_relevance * %.2f + (payment_commitment_achieved ? 10 : 0) * %.2f + professional_tone * %.2f + customer_satisfaction * %.2f`,
		persona.Name,
		persona.CooperationLevel,
		persona.CommunicationStyle,
		persona.Background,
		transcript.Render("AGENT", "CUSTOMER"),
		domain.WeightRepetition,
		domain.WeightNegotiation,
		domain.WeightRelevance,
		domain.WeightCommitment,
		domain.WeightTone,
		domain.WeightSatisfaction,
	)
}
