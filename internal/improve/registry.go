package improve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

var ErrRegistryClosed = errors.New("registry is closed")

type RegistryConfig struct {
	// MaxIterationsCap bounds the iterations a caller may request.
	MaxIterationsCap int
	// MaxCompleted is the number of finished sessions kept in memory.
	MaxCompleted int
	// TTL is how long a finished session stays in memory.
	TTL time.Duration
	// SweepSchedule is a cron spec for the eviction sweep, e.g. "@every 1m".
	SweepSchedule string
}

func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxIterationsCap: 50,
		MaxCompleted:     100,
		TTL:              time.Hour,
		SweepSchedule:    "@every 1m",
	}
}

// Registry maps session ids to running or recently finished sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	personas   ports.PersonaRepository
	prompts    ports.MainPromptRepository
	components Components
	sinks      Sinks
	cfg        RegistryConfig
	logger     *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	cron    *rcron.Cron

	newID func() string
	now   func() time.Time
}

func NewRegistry(
	cfg RegistryConfig,
	personas ports.PersonaRepository,
	prompts ports.MainPromptRepository,
	components Components,
	sinks Sinks,
	logger *zap.Logger,
) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		sessions:   make(map[string]*Session),
		personas:   personas,
		prompts:    prompts,
		components: components,
		sinks:      sinks,
		cfg:        cfg,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// StartSweeper schedules periodic eviction of finished sessions.
func (r *Registry) StartSweeper() error {
	if r.cfg.SweepSchedule == "" {
		return nil
	}
	c := rcron.New()
	if _, err := c.AddFunc(r.cfg.SweepSchedule, func() {
		if n := r.Sweep(); n > 0 {
			r.logger.Debug("evicted finished sessions", zap.Int("count", n))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Create validates the request, copies the persona and launches the loop.
// It returns as soon as the session is registered.
func (r *Registry) Create(ctx context.Context, personaID int64, targetScore float64, maxIterations int) (string, error) {
	if personaID <= 0 {
		return "", &domain.ValidationError{Field: "personaId", Reason: "is required"}
	}
	if targetScore <= 0 || targetScore > domain.MaxMetric {
		return "", &domain.ValidationError{Field: "targetScore", Reason: fmt.Sprintf("must be in (0, %.0f]", domain.MaxMetric)}
	}
	if maxIterations <= 0 {
		return "", &domain.ValidationError{Field: "maxIterations", Reason: "must be positive"}
	}
	if r.cfg.MaxIterationsCap > 0 && maxIterations > r.cfg.MaxIterationsCap {
		return "", &domain.ValidationError{Field: "maxIterations", Reason: fmt.Sprintf("must not exceed %d", r.cfg.MaxIterationsCap)}
	}

	persona, err := r.personas.GetByID(ctx, personaID)
	if err != nil {
		return "", fmt.Errorf("failed to load persona: %w", err)
	}
	if persona == nil {
		return "", &domain.NotFoundError{Entity: "persona", ID: strconv.FormatInt(personaID, 10)}
	}

	prompt := domain.DefaultAgentPrompt
	if r.prompts != nil {
		mp, err := r.prompts.Get(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load main prompt: %w", err)
		}
		if mp != nil && strings.TrimSpace(mp.Prompt) != "" {
			prompt = mp.Prompt
		}
	}

	session := NewSession(Params{
		ID:            r.newID(),
		Persona:       *persona,
		Prompt:        prompt,
		TargetScore:   targetScore,
		MaxIterations: maxIterations,
	}, r.components, r.sinks, r.logger)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRegistryClosed
	}
	r.sessions[session.ID()] = session
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		session.Run(r.baseCtx)
	}()

	return session.ID(), nil
}

// Get returns the in-memory session, if still retained.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Status projects the session for polling. Evicted sessions are served from
// their durable snapshot.
func (r *Registry) Status(ctx context.Context, id string) (*Status, error) {
	if s, ok := r.Get(id); ok {
		status := NewStatus(s.Snapshot())
		return &status, nil
	}
	if r.sinks.Snapshots != nil {
		snapshot, err := r.sinks.Snapshots.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load session snapshot: %w", err)
		}
		if snapshot != nil {
			status := NewStatus(*snapshot)
			return &status, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "session", ID: id}
}

// Stop requests cooperative cancellation of a session.
func (r *Registry) Stop(id string) error {
	s, ok := r.Get(id)
	if !ok {
		return &domain.NotFoundError{Entity: "session", ID: id}
	}
	s.Stop()
	return nil
}

// ListCompletedForPersona returns finished sessions for personaID, newest first.
func (r *Registry) ListCompletedForPersona(ctx context.Context, personaID int64) ([]*domain.ImprovementSession, error) {
	if r.sinks.Snapshots != nil {
		return r.sinks.Snapshots.ListByPersona(ctx, personaID)
	}

	r.mu.Lock()
	var out []*domain.ImprovementSession
	for _, s := range r.sessions {
		snap := s.Snapshot()
		if snap.PersonaID == personaID && snap.State.Terminal() {
			out = append(out, &snap)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// Sweep evicts finished sessions past the TTL, then the oldest finished
// sessions beyond MaxCompleted. Running sessions are never evicted.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	type finished struct {
		id  string
		end time.Time
	}
	var done []finished
	now := r.now()
	evicted := 0

	for id, s := range r.sessions {
		snap := s.Snapshot()
		if !snap.State.Terminal() || snap.EndedAt == nil {
			continue
		}
		if r.cfg.TTL > 0 && now.Sub(*snap.EndedAt) > r.cfg.TTL {
			delete(r.sessions, id)
			evicted++
			continue
		}
		done = append(done, finished{id: id, end: *snap.EndedAt})
	}

	if r.cfg.MaxCompleted > 0 && len(done) > r.cfg.MaxCompleted {
		sort.Slice(done, func(i, j int) bool { return done[i].end.Before(done[j].end) })
		for _, f := range done[:len(done)-r.cfg.MaxCompleted] {
			delete(r.sessions, f.id)
			evicted++
		}
	}

	return evicted
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the sweeper, asks every running loop to stop and waits for them
// until ctx is done. In-flight oracle calls are then cancelled.
func (r *Registry) Close(ctx context.Context) error {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}

	r.mu.Lock()
	r.closed = true
	for _, s := range r.sessions {
		s.Stop()
	}
	r.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()

	var err error
	select {
	case <-waited:
	case <-ctx.Done():
		err = ctx.Err()
	}
	r.cancel()
	<-waited
	return err
}

// Status is the polling view of a session. Prompts and the final score are
// only revealed once the session completed.
type Status struct {
	SessionID        string                   `json:"sessionId"`
	PersonaID        int64                    `json:"personaId"`
	State            domain.SessionState      `json:"state"`
	Status           string                   `json:"status"`
	CurrentIteration int                      `json:"currentIteration"`
	MaxIterations    int                      `json:"maxIterations"`
	CurrentScore     float64                  `json:"currentScore"`
	TargetScore      float64                  `json:"targetScore"`
	Completed        bool                     `json:"completed"`
	TargetReached    bool                     `json:"targetReached"`
	LatestChange     string                   `json:"latestChange"`
	IterationHistory []domain.IterationRecord `json:"iterationHistory"`
	OriginalPrompt   *string                  `json:"originalPrompt,omitempty"`
	BestPrompt       *string                  `json:"bestPrompt,omitempty"`
	FinalScore       *float64                 `json:"finalScore,omitempty"`
	StartedAt        time.Time                `json:"startTime"`
	EndedAt          *time.Time               `json:"endTime,omitempty"`
}

func NewStatus(s domain.ImprovementSession) Status {
	completed := s.State.Terminal()
	status := Status{
		SessionID:        s.ID,
		PersonaID:        s.PersonaID,
		State:            s.State,
		Status:           s.State.Status(),
		CurrentIteration: s.CurrentIteration,
		MaxIterations:    s.MaxIterations,
		CurrentScore:     s.BestScore,
		TargetScore:      s.TargetScore,
		Completed:        completed,
		TargetReached:    completed && s.Success,
		LatestChange:     s.LatestChange,
		IterationHistory: s.History,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
	}
	if status.IterationHistory == nil {
		status.IterationHistory = []domain.IterationRecord{}
	}
	if completed {
		original, best, final := s.OriginalPrompt, s.BestPrompt, s.BestScore
		status.OriginalPrompt = &original
		status.BestPrompt = &best
		status.FinalScore = &final
	}
	return status
}
