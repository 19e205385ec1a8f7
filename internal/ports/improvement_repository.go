package ports

import (
	"context"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

// ImprovementSessionRepository stores terminal snapshots of self-improvement sessions.
type ImprovementSessionRepository interface {
	Save(ctx context.Context, session *domain.ImprovementSession) error
	GetByID(ctx context.Context, id string) (*domain.ImprovementSession, error)
	ListByPersona(ctx context.Context, personaID int64) ([]*domain.ImprovementSession, error)
}

type ConversationAnalysisRepository interface {
	Create(ctx context.Context, analysis *domain.ConversationAnalysis) error
	List(ctx context.Context, limit int) ([]*domain.ConversationAnalysis, error)
}
