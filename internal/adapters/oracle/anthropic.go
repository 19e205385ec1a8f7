package oracle

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

const defaultAnthropicMaxTokens = 1024

type anthropicMessages interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic generates text with the messages API.
type Anthropic struct {
	msgs  anthropicMessages
	model string
}

func NewAnthropic(cfg Config) (*Anthropic, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: api key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)
	return newAnthropic(&client.Messages, cfg.Model), nil
}

func newAnthropic(msgs anthropicMessages, model string) *Anthropic {
	if model == "" {
		model = defaultModel(ProviderAnthropic)
	}
	return &Anthropic{msgs: msgs, model: model}
}

func (a *Anthropic) Generate(ctx context.Context, instruction string, sampling ports.Sampling) (string, error) {
	maxTokens := sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	msg, err := a.msgs.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(instruction)),
		},
		Temperature: param.NewOpt(sampling.Temperature),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
