package oracle

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

type openaiCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI generates text with the chat completions API.
type OpenAI struct {
	completions openaiCompletions
	model       string
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return newOpenAI(&client.Chat.Completions, cfg.Model), nil
}

func newOpenAI(completions openaiCompletions, model string) *OpenAI {
	if model == "" {
		model = defaultModel(ProviderOpenAI)
	}
	return &OpenAI{completions: completions, model: model}
}

func (o *OpenAI) Generate(ctx context.Context, instruction string, sampling ports.Sampling) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(instruction),
		},
		Temperature: openai.Float(sampling.Temperature),
	}
	if sampling.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(sampling.MaxTokens))
	}

	resp, err := o.completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
