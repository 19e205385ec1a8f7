package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/emiliopalmerini/mcollect/internal/database"
	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

const snapshotWriteRetries = 3

// ImprovementSessionRepository keeps one row per finished session. The full
// snapshot is stored as JSON next to the columns used for filtering.
type ImprovementSessionRepository struct {
	db *sql.DB
}

func NewImprovementSessionRepository(db *sql.DB) *ImprovementSessionRepository {
	return &ImprovementSessionRepository{db: db}
}

func (r *ImprovementSessionRepository) Save(ctx context.Context, s *domain.ImprovementSession) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	var endedAt sql.NullString
	if s.EndedAt != nil {
		endedAt = util.NullString(formatTime(*s.EndedAt))
	}

	query, args, err := sq.Insert("improvement_sessions").
		Columns("id", "persona_id", "persona_name", "state", "success", "best_score", "target_score",
			"max_iterations", "iterations", "started_at", "ended_at", "snapshot").
		Values(s.ID, s.PersonaID, s.Persona.Name, string(s.State), util.BoolToInt64(s.Success), s.BestScore,
			s.TargetScore, s.MaxIterations, len(s.History), formatTime(s.StartedAt), endedAt, string(payload)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			success = excluded.success,
			best_score = excluded.best_score,
			iterations = excluded.iterations,
			ended_at = excluded.ended_at,
			snapshot = excluded.snapshot`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build session insert: %w", err)
	}

	_, err = database.WithRetry(ctx, snapshotWriteRetries, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

func (r *ImprovementSessionRepository) GetByID(ctx context.Context, id string) (*domain.ImprovementSession, error) {
	query, args, err := sq.Select("snapshot").
		From("improvement_sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}

	var payload string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session snapshot: %w", err)
	}
	return decodeSnapshot(payload)
}

func (r *ImprovementSessionRepository) ListByPersona(ctx context.Context, personaID int64) ([]*domain.ImprovementSession, error) {
	query, args, err := sq.Select("snapshot").
		From("improvement_sessions").
		Where(sq.Eq{"persona_id": personaID}).
		OrderBy("started_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*domain.ImprovementSession{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s, err := decodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func decodeSnapshot(payload string) (*domain.ImprovementSession, error) {
	var s domain.ImprovementSession
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &s, nil
}
