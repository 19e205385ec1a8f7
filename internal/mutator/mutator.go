// Package mutator rewrites the agent prompt from the latest score report.
package mutator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
	"github.com/emiliopalmerini/mcollect/internal/structured"
)

const (
	MaxDescriptionLength = 100

	parseFallbackAddendum    = "\n\nBe more empathetic and understanding in your approach."
	parseFallbackDescription = "Added empathy instructions"

	oracleFallbackAddendum    = "\n\nBe more professional and courteous."
	oracleFallbackDescription = "Added professionalism instructions"
)

var sampling = ports.Sampling{Temperature: 0.3, MaxTokens: 1000}

// Mutation is a proposed replacement prompt.
type Mutation struct {
	ImprovedPrompt    string `json:"improvedPrompt"`
	ChangeDescription string `json:"changeDescription"`
	Rationale         string `json:"rationale"`
	// Fallback marks a fixed addendum applied instead of an oracle rewrite.
	Fallback bool `json:"-"`
}

var errEmptyPrompt = errors.New("improved prompt is empty")

func validate(m *Mutation) error {
	if strings.TrimSpace(m.ImprovedPrompt) == "" {
		return errEmptyPrompt
	}
	return nil
}

type Mutator struct {
	oracle ports.Oracle
	logger *zap.Logger
}

func New(oracle ports.Oracle, logger *zap.Logger) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{oracle: oracle, logger: logger}
}

// Mutate never fails: an oracle error or unusable response falls back to
// appending a fixed instruction to current.
func (m *Mutator) Mutate(ctx context.Context, current string, report domain.ScoreReport, persona domain.Persona) Mutation {
	text, err := m.oracle.Generate(ctx, improvementPrompt(current, report, persona), sampling)
	if err != nil {
		m.logger.Warn("prompt mutation failed, appending professionalism addendum", zap.Error(err))
		return Mutation{
			ImprovedPrompt:    current + oracleFallbackAddendum,
			ChangeDescription: oracleFallbackDescription,
			Rationale:         "Fallback improvement due to API error",
			Fallback:          true,
		}
	}

	mutation, err := structured.Decode(text, validate)
	if err != nil {
		m.logger.Warn("prompt mutation unparseable, appending empathy addendum", zap.Error(err))
		return Mutation{
			ImprovedPrompt:    current + parseFallbackAddendum,
			ChangeDescription: parseFallbackDescription,
			Rationale:         "Fallback improvement due to parsing error",
			Fallback:          true,
		}
	}

	mutation.ImprovedPrompt = strings.TrimSpace(mutation.ImprovedPrompt)
	mutation.ChangeDescription = truncate(strings.TrimSpace(mutation.ChangeDescription), MaxDescriptionLength)
	if mutation.ChangeDescription == "" {
		mutation.ChangeDescription = "Prompt rewritten"
	}
	return mutation
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func improvementPrompt(current string, report domain.ScoreReport, persona domain.Persona) string {
	issues := "No specific issues identified"
	if len(report.Improvements) > 0 {
		lines := make([]string, len(report.Improvements))
		for i, issue := range report.Improvements {
			lines[i] = "- " + issue
		}
		issues = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`You are an expert prompt engineer specializing in debt collection conversation optimization.

Analyze this debt collection agent prompt and its performance, then provide an improved version.

CURRENT PROMPT:
"%s"

PERFORMANCE ANALYSIS:
- Overall Score: %.1f/10
- Issues Found: %s
- Strengths to Preserve: %s

TARGET CUSTOMER TYPE: %s
CUSTOMER PROFILE:
- Name: %s
- Communication Style: %s
- Cooperation Level: %s
- Background: %s

SPECIFIC FAILURE PATTERNS TO ADDRESS:
%s

TASK:
Rewrite the prompt to be more effective for this specific customer type. Focus on:
1. Addressing the specific failure patterns mentioned above
2. Adapting to the customer's communication style and cooperation level
3. Preserving successful elements from the original prompt
4. Being more specific about tone, approach, and conversation flow

Return your response in this JSON format:
{
  "improvedPrompt": "The complete improved prompt here",
  "changeDescription": "Brief description of key changes made (max %d chars)",
  "rationale": "Explanation of why these changes will improve performance"
}`,
		current,
		report.OverallScore,
		jsonList(report.Improvements),
		jsonList(report.Strengths),
		persona.Archetype,
		persona.Name,
		persona.CommunicationStyle,
		persona.CooperationLevel,
		persona.Background,
		issues,
		MaxDescriptionLength,
	)
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
