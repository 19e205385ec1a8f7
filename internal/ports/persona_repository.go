package ports

import (
	"context"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

type PersonaRepository interface {
	Create(ctx context.Context, persona *domain.Persona) error
	GetByID(ctx context.Context, id int64) (*domain.Persona, error)
	List(ctx context.Context) ([]*domain.Persona, error)
	Update(ctx context.Context, persona *domain.Persona) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

type MainPromptRepository interface {
	Get(ctx context.Context) (*domain.MainPrompt, error)
	Save(ctx context.Context, prompt *domain.MainPrompt) error
}
