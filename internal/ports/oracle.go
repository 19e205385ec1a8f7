package ports

import "context"

// Sampling controls a single generation call.
type Sampling struct {
	Temperature float64
	MaxTokens   int
}

// Oracle generates text from a single instruction. Implementations return a
// *domain.OracleError on network, auth or timeout failures.
type Oracle interface {
	Generate(ctx context.Context, instruction string, sampling Sampling) (string, error)
}
