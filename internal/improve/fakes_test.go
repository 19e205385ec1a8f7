package improve

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/mutator"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

type mockSimulator struct {
	mu         sync.Mutex
	prompts    []string
	personas   []domain.Persona
	simulateFn func(ctx context.Context, call int) (domain.Transcript, error)
}

func (m *mockSimulator) Simulate(ctx context.Context, prompt string, persona domain.Persona) (domain.Transcript, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.personas = append(m.personas, persona)
	call := len(m.prompts)
	m.mu.Unlock()
	if m.simulateFn != nil {
		return m.simulateFn(ctx, call)
	}
	return domain.Transcript{{Speaker: domain.SpeakerAgent, Text: fmt.Sprintf("turn for call %d", call)}}, nil
}

type mockScorer struct {
	mu     sync.Mutex
	scores []float64
	errAt  int
	calls  int
}

func (m *mockScorer) Score(context.Context, domain.Transcript, domain.Persona) (domain.ScoreReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.errAt > 0 && m.calls == m.errAt {
		return domain.ScoreReport{}, &domain.ScoringError{Err: fmt.Errorf("oracle unreachable")}
	}
	score := m.scores[len(m.scores)-1]
	if m.calls <= len(m.scores) {
		score = m.scores[m.calls-1]
	}
	return domain.ScoreReport{OverallScore: score, Improvements: []string{"be clearer"}}, nil
}

type mockMutator struct {
	mu       sync.Mutex
	calls    int
	mutateFn func(call int, current string) mutator.Mutation
}

func (m *mockMutator) Mutate(_ context.Context, current string, _ domain.ScoreReport, _ domain.Persona) mutator.Mutation {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	if m.mutateFn != nil {
		return m.mutateFn(call, current)
	}
	return mutator.Mutation{
		ImprovedPrompt:    fmt.Sprintf("%s [v%d]", current, call),
		ChangeDescription: fmt.Sprintf("revision %d", call),
	}
}

func (m *mockMutator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSnapshots struct {
	mu      sync.Mutex
	saved   map[string]*domain.ImprovementSession
	saveErr error
}

func newMockSnapshots() *mockSnapshots {
	return &mockSnapshots{saved: make(map[string]*domain.ImprovementSession)}
}

func (m *mockSnapshots) Save(_ context.Context, s *domain.ImprovementSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	c := s.Clone()
	m.saved[s.ID] = &c
	return nil
}

func (m *mockSnapshots) GetByID(_ context.Context, id string) (*domain.ImprovementSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[id]
	if !ok {
		return nil, nil
	}
	c := s.Clone()
	return &c, nil
}

func (m *mockSnapshots) ListByPersona(_ context.Context, personaID int64) ([]*domain.ImprovementSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ImprovementSession
	for _, s := range m.saved {
		if s.PersonaID == personaID {
			c := s.Clone()
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

type mockTranscripts struct {
	mu   sync.Mutex
	keys []string
}

func (m *mockTranscripts) Store(_ context.Context, key string, _ domain.Transcript) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "/tmp/" + key, nil
}

func (m *mockTranscripts) Get(context.Context, string) (domain.Transcript, error) { return nil, nil }
func (m *mockTranscripts) Delete(context.Context, string) error                   { return nil }
func (m *mockTranscripts) Exists(context.Context, string) (bool, error)           { return false, nil }

type mockMetrics struct {
	mu       sync.Mutex
	exported []*ports.SessionMetrics
}

func (m *mockMetrics) ExportSessionMetrics(_ context.Context, sm *ports.SessionMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exported = append(m.exported, sm)
	return nil
}

func (m *mockMetrics) Close(context.Context) error { return nil }

type mockPersonas struct {
	mu       sync.Mutex
	personas map[int64]*domain.Persona
}

func newMockPersonas(ps ...*domain.Persona) *mockPersonas {
	m := &mockPersonas{personas: make(map[int64]*domain.Persona)}
	for _, p := range ps {
		m.personas[p.ID] = p
	}
	return m
}

func (m *mockPersonas) Create(_ context.Context, p *domain.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = int64(len(m.personas) + 1)
	m.personas[p.ID] = p
	return nil
}

// GetByID returns the stored pointer so tests can mutate the record after a session started.
func (m *mockPersonas) GetByID(_ context.Context, id int64) (*domain.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.personas[id], nil
}

func (m *mockPersonas) List(context.Context) ([]*domain.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Persona
	for _, p := range m.personas {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPersonas) Update(_ context.Context, p *domain.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personas[p.ID] = p
	return nil
}

func (m *mockPersonas) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.personas, id)
	return nil
}

func (m *mockPersonas) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.personas)), nil
}

type mockPrompts struct {
	prompt *domain.MainPrompt
}

func (m *mockPrompts) Get(context.Context) (*domain.MainPrompt, error) { return m.prompt, nil }

func (m *mockPrompts) Save(_ context.Context, p *domain.MainPrompt) error {
	m.prompt = p
	return nil
}
