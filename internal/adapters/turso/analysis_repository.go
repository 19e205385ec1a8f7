package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

// MaxStoredAnalyses bounds the conversation_analyses table; older rows are trimmed on insert.
const MaxStoredAnalyses = 100

type ConversationAnalysisRepository struct {
	db *sql.DB
}

func NewConversationAnalysisRepository(db *sql.DB) *ConversationAnalysisRepository {
	return &ConversationAnalysisRepository{db: db}
}

func (r *ConversationAnalysisRepository) Create(ctx context.Context, a *domain.ConversationAnalysis) error {
	conversation, err := json.Marshal(a.Conversation)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	report, err := json.Marshal(a.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	insert, args, err := sq.Insert("conversation_analyses").
		Columns("id", "persona_id", "persona_name", "conversation", "report", "overall_score", "created_at").
		Values(a.ID, a.PersonaID, a.PersonaName, string(conversation), string(report), a.Report.OverallScore,
			formatTime(a.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build analysis insert: %w", err)
	}

	keep := sq.Select("id").
		From("conversation_analyses").
		OrderBy("created_at DESC").
		Limit(MaxStoredAnalyses)
	keepSQL, keepArgs, err := keep.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build analysis trim: %w", err)
	}
	trim, trimArgs, err := sq.Delete("conversation_analyses").
		Where("id NOT IN ("+keepSQL+")", keepArgs...).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build analysis trim: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	if _, err := tx.ExecContext(ctx, trim, trimArgs...); err != nil {
		return fmt.Errorf("failed to trim analyses: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

func (r *ConversationAnalysisRepository) List(ctx context.Context, limit int) ([]*domain.ConversationAnalysis, error) {
	if limit <= 0 || limit > MaxStoredAnalyses {
		limit = MaxStoredAnalyses
	}
	query, args, err := sq.Select("id", "persona_id", "persona_name", "conversation", "report", "created_at").
		From("conversation_analyses").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []*domain.ConversationAnalysis{}
	for rows.Next() {
		var a domain.ConversationAnalysis
		var conversation, report, createdAt string
		if err := rows.Scan(&a.ID, &a.PersonaID, &a.PersonaName, &conversation, &report, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(conversation), &a.Conversation); err != nil {
			return nil, fmt.Errorf("failed to decode conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(report), &a.Report); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		analyses = append(analyses, &a)
	}
	return analyses, rows.Err()
}
