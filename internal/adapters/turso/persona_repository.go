package turso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

var personaColumns = []string{
	"id",
	"name",
	"archetype",
	"background",
	"financial_situation",
	"communication_style",
	"cooperation_level",
	"personality_traits",
	"likely_responses",
	"speech_patterns",
	"human_behaviors",
}

type PersonaRepository struct {
	db *sql.DB
}

func NewPersonaRepository(db *sql.DB) *PersonaRepository {
	return &PersonaRepository{db: db}
}

type personaRow struct {
	traits    string
	responses string
	patterns  sql.NullString
	behaviors sql.NullString
}

func encodePersona(p *domain.Persona) (personaRow, error) {
	var row personaRow
	var err error
	if row.traits, err = util.EncodeList(p.PersonalityTraits); err != nil {
		return row, err
	}
	if row.responses, err = util.EncodeList(p.ExampleUtterances); err != nil {
		return row, err
	}
	if row.patterns, err = util.EncodeOptionalList(p.SpeechPatterns); err != nil {
		return row, err
	}
	if row.behaviors, err = util.EncodeOptionalList(p.Behaviors); err != nil {
		return row, err
	}
	return row, nil
}

func (r *PersonaRepository) Create(ctx context.Context, p *domain.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	row, err := encodePersona(p)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert("personas").
		Columns(personaColumns[1:]...).
		Values(p.Name, p.Archetype, p.Background, p.FinancialSituation, p.CommunicationStyle,
			p.CooperationLevel, row.traits, row.responses, row.patterns, row.behaviors).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build persona insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to create persona: %w", err)
	}
	return nil
}

func (r *PersonaRepository) GetByID(ctx context.Context, id int64) (*domain.Persona, error) {
	query, args, err := sq.Select(personaColumns...).
		From("personas").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build persona query: %w", err)
	}

	p, err := scanPersona(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	return p, nil
}

func (r *PersonaRepository) List(ctx context.Context) ([]*domain.Persona, error) {
	query, args, err := sq.Select(personaColumns...).
		From("personas").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build persona query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	personas := []*domain.Persona{}
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

func (r *PersonaRepository) Update(ctx context.Context, p *domain.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	row, err := encodePersona(p)
	if err != nil {
		return err
	}

	query, args, err := sq.Update("personas").
		SetMap(map[string]any{
			"name":                p.Name,
			"archetype":           p.Archetype,
			"background":          p.Background,
			"financial_situation": p.FinancialSituation,
			"communication_style": p.CommunicationStyle,
			"cooperation_level":   p.CooperationLevel,
			"personality_traits":  row.traits,
			"likely_responses":    row.responses,
			"speech_patterns":     row.patterns,
			"human_behaviors":     row.behaviors,
			"updated_at":          formatTime(time.Now()),
		}).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build persona update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update persona: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Entity: "persona", ID: fmt.Sprint(p.ID)}
	}
	return nil
}

func (r *PersonaRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete("personas").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build persona delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	return nil
}

func (r *PersonaRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := sq.Select("COUNT(*)").From("personas").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build persona count: %w", err)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count personas: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPersona(s scanner) (*domain.Persona, error) {
	var p domain.Persona
	var traits, responses, patterns, behaviors sql.NullString

	if err := s.Scan(&p.ID, &p.Name, &p.Archetype, &p.Background, &p.FinancialSituation,
		&p.CommunicationStyle, &p.CooperationLevel, &traits, &responses, &patterns, &behaviors); err != nil {
		return nil, err
	}

	var err error
	if p.PersonalityTraits, err = util.DecodeList(traits); err != nil {
		return nil, err
	}
	if p.ExampleUtterances, err = util.DecodeList(responses); err != nil {
		return nil, err
	}
	if p.SpeechPatterns, err = util.DecodeList(patterns); err != nil {
		return nil, err
	}
	if p.Behaviors, err = util.DecodeList(behaviors); err != nil {
		return nil, err
	}
	return &p, nil
}
