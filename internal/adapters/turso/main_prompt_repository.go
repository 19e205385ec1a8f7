package turso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

// MainPromptRepository stores the singleton agent prompt in a one-row table.
type MainPromptRepository struct {
	db *sql.DB
}

func NewMainPromptRepository(db *sql.DB) *MainPromptRepository {
	return &MainPromptRepository{db: db}
}

func (r *MainPromptRepository) Get(ctx context.Context) (*domain.MainPrompt, error) {
	query, args, err := sq.Select("name", "prompt", "updated_at").
		From("main_prompt").
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt query: %w", err)
	}

	var p domain.MainPrompt
	var updatedAt string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&p.Name, &p.Prompt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get main prompt: %w", err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (r *MainPromptRepository) Save(ctx context.Context, p *domain.MainPrompt) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	query, args, err := sq.Insert("main_prompt").
		Columns("id", "name", "prompt", "updated_at").
		Values(1, p.Name, p.Prompt, formatTime(p.UpdatedAt)).
		Suffix("ON CONFLICT(id) DO UPDATE SET name = excluded.name, prompt = excluded.prompt, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build prompt upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save main prompt: %w", err)
	}
	return nil
}
