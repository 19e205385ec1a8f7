package oracle

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates text with the Gemini API.
type Gemini struct {
	models geminiModels
	model  string
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return newGemini(client.Models, cfg.Model), nil
}

func newGemini(models geminiModels, model string) *Gemini {
	if model == "" {
		model = defaultModel(ProviderGemini)
	}
	return &Gemini{models: models, model: model}
}

func (g *Gemini) Generate(ctx context.Context, instruction string, sampling ports.Sampling) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(sampling.Temperature)),
	}
	if sampling.MaxTokens > 0 {
		config.MaxOutputTokens = int32(sampling.MaxTokens)
	}

	res, err := g.models.GenerateContent(ctx, g.model, genai.Text(instruction), config)
	if err != nil {
		return "", err
	}

	// Blocked prompts come back without candidates.
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
