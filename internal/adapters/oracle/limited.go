package oracle

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

// Limited bounds every call to the wrapped oracle with a rate limit and a
// per-call timeout, and reports failures as *domain.OracleError.
type Limited struct {
	next    ports.Oracle
	limiter *rate.Limiter
	timeout time.Duration
	op      string
	logger  *zap.Logger
}

// NewLimited wraps next. A non-positive perSecond disables rate limiting and a
// non-positive timeout leaves the caller's deadline untouched.
func NewLimited(next ports.Oracle, op string, perSecond float64, burst int, timeout time.Duration, logger *zap.Logger) *Limited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		op:      op,
		logger:  logger,
	}
}

func (l *Limited) Generate(ctx context.Context, instruction string, sampling ports.Sampling) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", &domain.OracleError{Op: l.op, Err: err}
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := l.next.Generate(ctx, instruction, sampling)
	if err != nil {
		l.logger.Warn("oracle call failed",
			zap.String("provider", l.op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", &domain.OracleError{Op: l.op, Err: err}
	}

	l.logger.Debug("oracle call",
		zap.String("provider", l.op),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)))
	return text, nil
}
