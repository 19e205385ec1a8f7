package ports

import (
	"context"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

type TranscriptStorage interface {
	Store(ctx context.Context, key string, transcript domain.Transcript) (storedPath string, err error)
	Get(ctx context.Context, key string) (domain.Transcript, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
