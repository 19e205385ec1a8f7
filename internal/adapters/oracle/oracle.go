// Package oracle adapts hosted language models to ports.Oracle.
package oracle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

// New builds the configured provider client wrapped in a Limited oracle.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ports.Oracle, error) {
	var (
		base ports.Oracle
		err  error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		base, err = NewOpenAI(cfg)
	case ProviderAnthropic:
		base, err = NewAnthropic(cfg)
	case ProviderGemini:
		base, err = NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s oracle: %w", cfg.Provider, err)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}
	return NewLimited(base, provider, cfg.RateLimit, cfg.Burst, cfg.Timeout, logger), nil
}
