package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

type fakeCompletions struct {
	NewFunc func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

func (f *fakeCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	return f.NewFunc(ctx, params)
}

type fakeMessages struct {
	NewFunc func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

func (f *fakeMessages) New(ctx context.Context, params anthropic.MessageNewParams, _ ...anthropicoption.RequestOption) (*anthropic.Message, error) {
	return f.NewFunc(ctx, params)
}

type fakeModels struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f.GenerateContentFunc(ctx, model, contents, config)
}

type fakeOracle struct {
	GenerateFunc func(ctx context.Context, instruction string, sampling ports.Sampling) (string, error)
}

func (f *fakeOracle) Generate(ctx context.Context, instruction string, sampling ports.Sampling) (string, error) {
	return f.GenerateFunc(ctx, instruction, sampling)
}

func TestOpenAI_Generate(t *testing.T) {
	var got openai.ChatCompletionNewParams
	fake := &fakeCompletions{
		NewFunc: func(_ context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
			got = params
			return &openai.ChatCompletion{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Content: "  Hello there.  "}},
				},
			}, nil
		},
	}

	o := newOpenAI(fake, "")
	text, err := o.Generate(context.Background(), "say hi", ports.Sampling{Temperature: 0.7, MaxTokens: 150})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Hello there." {
		t.Errorf("text = %q", text)
	}
	if string(got.Model) != defaultModel(ProviderOpenAI) {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxCompletionTokens.Value != 150 {
		t.Errorf("max tokens = %d", got.MaxCompletionTokens.Value)
	}
	if got.Temperature.Value != 0.7 {
		t.Errorf("temperature = %v", got.Temperature.Value)
	}
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	fake := &fakeCompletions{
		NewFunc: func(context.Context, openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
			return &openai.ChatCompletion{}, nil
		},
	}
	if _, err := newOpenAI(fake, "gpt-4o").Generate(context.Background(), "x", ports.Sampling{}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestAnthropic_Generate(t *testing.T) {
	var got anthropic.MessageNewParams
	fake := &fakeMessages{
		NewFunc: func(_ context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
			got = params
			return &anthropic.Message{
				Content: []anthropic.ContentBlockUnion{
					{Type: "text", Text: "I can offer "},
					{Type: "text", Text: "a payment plan."},
				},
			}, nil
		},
	}

	a := newAnthropic(fake, "claude-test")
	text, err := a.Generate(context.Background(), "negotiate", ports.Sampling{Temperature: 0.3})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "I can offer a payment plan." {
		t.Errorf("text = %q", text)
	}
	if got.Model != "claude-test" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != defaultAnthropicMaxTokens {
		t.Errorf("max tokens = %d, want default", got.MaxTokens)
	}
}

func TestGemini_Generate(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{
			name: "joins parts",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{{Text: "Look, "}, {Text: "I already paid."}}},
				}},
			},
			want: "Look, I already paid.",
		},
		{
			name: "blocked",
			resp: &genai.GenerateContentResponse{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var maxTokens int32
			fake := &fakeModels{
				GenerateContentFunc: func(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					maxTokens = config.MaxOutputTokens
					return tt.resp, nil
				},
			}
			text, err := newGemini(fake, "").Generate(context.Background(), "reply", ports.Sampling{MaxTokens: 40})
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if text != tt.want {
				t.Errorf("text = %q, want %q", text, tt.want)
			}
			if maxTokens != 40 {
				t.Errorf("MaxOutputTokens = %d", maxTokens)
			}
		})
	}
}

func TestLimited_WrapsErrors(t *testing.T) {
	inner := &fakeOracle{
		GenerateFunc: func(context.Context, string, ports.Sampling) (string, error) {
			return "", errors.New("401 unauthorized")
		},
	}
	l := NewLimited(inner, ProviderOpenAI, 0, 1, time.Second, zap.NewNop())

	_, err := l.Generate(context.Background(), "x", ports.Sampling{})
	var oerr *domain.OracleError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OracleError, got %v", err)
	}
	if oerr.Op != ProviderOpenAI || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v", err)
	}
}

func TestLimited_AppliesTimeout(t *testing.T) {
	inner := &fakeOracle{
		GenerateFunc: func(ctx context.Context, _ string, _ ports.Sampling) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	l := NewLimited(inner, ProviderGemini, 0, 1, 20*time.Millisecond, zap.NewNop())

	_, err := l.Generate(context.Background(), "x", ports.Sampling{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestLimited_PassesThrough(t *testing.T) {
	inner := &fakeOracle{
		GenerateFunc: func(_ context.Context, instruction string, sampling ports.Sampling) (string, error) {
			return instruction + "!", nil
		},
	}
	l := NewLimited(inner, ProviderAnthropic, 1000, 5, 0, zap.NewNop())

	for i := 0; i < 3; i++ {
		text, err := l.Generate(context.Background(), "ok", ports.Sampling{})
		if err != nil || text != "ok!" {
			t.Fatalf("call %d = %q, %v", i, text, err)
		}
	}
}

func TestLimited_CancelledWhileWaiting(t *testing.T) {
	inner := &fakeOracle{
		GenerateFunc: func(context.Context, string, ports.Sampling) (string, error) {
			return "done", nil
		},
	}
	l := NewLimited(inner, ProviderOpenAI, 0.001, 1, 0, zap.NewNop())

	if _, err := l.Generate(context.Background(), "first", ports.Sampling{}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Generate(ctx, "second", ports.Sampling{}); err == nil {
		t.Error("expected error when context is cancelled while rate limited")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown provider", Config{Provider: "llama", APIKey: "k"}},
		{"openai without key", Config{Provider: ProviderOpenAI}},
		{"anthropic without key", Config{Provider: ProviderAnthropic}},
		{"gemini without key", Config{Provider: ProviderGemini}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.cfg, zap.NewNop()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_OpenAI(t *testing.T) {
	o, err := New(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "sk-test", Timeout: time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := o.(*Limited); !ok {
		t.Errorf("expected *Limited, got %T", o)
	}
}
