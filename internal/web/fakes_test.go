package web

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/improve"
	"github.com/emiliopalmerini/mcollect/internal/simulator"
)

type mockPersonas struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Persona
}

func newMockPersonas(personas ...domain.Persona) *mockPersonas {
	m := &mockPersonas{items: make(map[int64]*domain.Persona)}
	for _, p := range personas {
		p := p
		_ = m.Create(context.Background(), &p)
	}
	return m
}

func (m *mockPersonas) Create(_ context.Context, p *domain.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	stored := p.Clone()
	m.items[p.ID] = &stored
	return nil
}

func (m *mockPersonas) GetByID(_ context.Context, id int64) (*domain.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (m *mockPersonas) List(context.Context) ([]*domain.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Persona{}
	for _, p := range m.items {
		c := p.Clone()
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPersonas) Update(_ context.Context, p *domain.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return &domain.NotFoundError{Entity: "persona", ID: "x"}
	}
	c := p.Clone()
	m.items[p.ID] = &c
	return nil
}

func (m *mockPersonas) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *mockPersonas) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

type mockPrompt struct {
	prompt *domain.MainPrompt
}

func (m *mockPrompt) Get(context.Context) (*domain.MainPrompt, error) { return m.prompt, nil }

func (m *mockPrompt) Save(_ context.Context, p *domain.MainPrompt) error {
	m.prompt = p
	return nil
}

type mockAnalyses struct {
	items []*domain.ConversationAnalysis
}

func (m *mockAnalyses) Create(_ context.Context, a *domain.ConversationAnalysis) error {
	m.items = append([]*domain.ConversationAnalysis{a}, m.items...)
	return nil
}

func (m *mockAnalyses) List(_ context.Context, limit int) ([]*domain.ConversationAnalysis, error) {
	if limit > 0 && limit < len(m.items) {
		return m.items[:limit], nil
	}
	return m.items, nil
}

type mockConversations struct {
	AgentTurnFunc func(ctx context.Context, prompt string, persona domain.Persona, history domain.Transcript) (domain.Turn, error)
	StreamFunc    func(ctx context.Context, prompt string, persona domain.Persona, onTurn simulator.TurnFunc) (domain.Transcript, error)
}

func (m *mockConversations) AgentTurn(ctx context.Context, prompt string, persona domain.Persona, history domain.Transcript) (domain.Turn, error) {
	return m.AgentTurnFunc(ctx, prompt, persona, history)
}

func (m *mockConversations) Stream(ctx context.Context, prompt string, persona domain.Persona, onTurn simulator.TurnFunc) (domain.Transcript, error) {
	return m.StreamFunc(ctx, prompt, persona, onTurn)
}

type mockScorer struct {
	ScoreFunc func(ctx context.Context, transcript domain.Transcript, persona domain.Persona) (domain.ScoreReport, error)
}

func (m *mockScorer) Score(ctx context.Context, transcript domain.Transcript, persona domain.Persona) (domain.ScoreReport, error) {
	return m.ScoreFunc(ctx, transcript, persona)
}

type mockImprovements struct {
	CreateFunc                  func(ctx context.Context, personaID int64, targetScore float64, maxIterations int) (string, error)
	StatusFunc                  func(ctx context.Context, id string) (*improve.Status, error)
	StopFunc                    func(id string) error
	ListCompletedForPersonaFunc func(ctx context.Context, personaID int64) ([]*domain.ImprovementSession, error)
}

func (m *mockImprovements) Create(ctx context.Context, personaID int64, targetScore float64, maxIterations int) (string, error) {
	return m.CreateFunc(ctx, personaID, targetScore, maxIterations)
}

func (m *mockImprovements) Status(ctx context.Context, id string) (*improve.Status, error) {
	return m.StatusFunc(ctx, id)
}

func (m *mockImprovements) Stop(id string) error {
	return m.StopFunc(id)
}

func (m *mockImprovements) ListCompletedForPersona(ctx context.Context, personaID int64) ([]*domain.ImprovementSession, error) {
	return m.ListCompletedForPersonaFunc(ctx, personaID)
}

func testPersona() domain.Persona {
	return domain.Persona{
		Name:              "David Chen",
		Archetype:         "Neutral",
		PersonalityTraits: []string{"Analytical"},
		ExampleUtterances: []string{"What are my options here?"},
	}
}

func newTestServer(deps Deps) *Server {
	if deps.Personas == nil {
		deps.Personas = newMockPersonas(testPersona())
	}
	if deps.Prompt == nil {
		deps.Prompt = &mockPrompt{}
	}
	if deps.Analyses == nil {
		deps.Analyses = &mockAnalyses{}
	}
	s := NewServer(0, deps, zap.NewNop())
	s.newID = func() string { return "fixed-id" }
	return s
}
