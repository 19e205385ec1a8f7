package oracle

import "time"

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config selects and tunes the language model backing every generation call.
type Config struct {
	Provider  string        `envconfig:"PROVIDER" default:"openai"`
	APIKey    string        `envconfig:"API_KEY"`
	Model     string        `envconfig:"MODEL"`
	BaseURL   string        `envconfig:"BASE_URL"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"60s"`
	RateLimit float64       `envconfig:"RATE_LIMIT" default:"2"`
	Burst     int           `envconfig:"BURST" default:"4"`
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "gpt-4o-mini"
	}
}
