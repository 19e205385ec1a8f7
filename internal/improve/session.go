// Package improve runs the simulate, score and mutate loop that hill-climbs a prompt toward a target score.
package improve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/mutator"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

type Simulator interface {
	Simulate(ctx context.Context, prompt string, persona domain.Persona) (domain.Transcript, error)
}

type Scorer interface {
	Score(ctx context.Context, transcript domain.Transcript, persona domain.Persona) (domain.ScoreReport, error)
}

type Mutator interface {
	Mutate(ctx context.Context, current string, report domain.ScoreReport, persona domain.Persona) mutator.Mutation
}

// Components are the collaborators a session loop drives.
type Components struct {
	Simulator Simulator
	Scorer    Scorer
	Mutator   Mutator
}

// Sinks receive a session once it reaches a terminal state. Nil sinks are skipped.
type Sinks struct {
	Snapshots   ports.ImprovementSessionRepository
	Transcripts ports.TranscriptStorage
	Metrics     ports.MetricsExporter
}

// Session owns the mutable state of one improvement run. Only the goroutine
// executing Run writes to it; readers go through Snapshot.
type Session struct {
	mu    sync.RWMutex
	state domain.ImprovementSession

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	components Components
	sinks      Sinks
	logger     *zap.Logger
	now        func() time.Time
}

// Params describe a new session.
type Params struct {
	ID            string
	Persona       domain.Persona
	Prompt        string
	TargetScore   float64
	MaxIterations int
}

func NewSession(p Params, components Components, sinks Sinks, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		components: components,
		sinks:      sinks,
		logger:     logger.With(zap.String("session_id", p.ID)),
		now:        time.Now,
	}
	s.state = domain.ImprovementSession{
		ID:             p.ID,
		PersonaID:      p.Persona.ID,
		Persona:        p.Persona.Clone(),
		OriginalPrompt: p.Prompt,
		CurrentPrompt:  p.Prompt,
		BestPrompt:     p.Prompt,
		TargetScore:    p.TargetScore,
		MaxIterations:  p.MaxIterations,
		State:          domain.StatePending,
		LatestChange:   "Starting self-improvement process...",
		History:        []domain.IterationRecord{},
		StartedAt:      s.now(),
	}
	return s
}

func (s *Session) ID() string {
	return s.state.ID
}

// Snapshot returns a consistent deep copy of the session.
func (s *Session) Snapshot() domain.ImprovementSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Stop requests cooperative cancellation. It takes effect before the next iteration starts.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Done is closed after the session reached a terminal state and its sinks ran.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Session) update(fn func(st *domain.ImprovementSession)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Run drives the loop to completion. It must be called at most once.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	s.update(func(st *domain.ImprovementSession) { st.State = domain.StateRunning })
	s.logger.Info("improvement session started",
		zap.Int64("persona_id", s.state.PersonaID),
		zap.Float64("target_score", s.state.TargetScore),
		zap.Int("max_iterations", s.state.MaxIterations),
	)

	final := s.loop(ctx)
	s.finish(final)

	snapshot := s.Snapshot()
	s.logger.Info("improvement session finished",
		zap.String("state", string(snapshot.State)),
		zap.Int("iterations", snapshot.CurrentIteration),
		zap.Float64("best_score", snapshot.BestScore),
		zap.Bool("success", snapshot.Success),
	)

	// Sinks run detached from the loop context so a shutdown still records the outcome.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	s.persist(sinkCtx, snapshot)
}

func (s *Session) loop(ctx context.Context) domain.SessionState {
	persona := s.state.Persona
	target := s.state.TargetScore
	maxIterations := s.state.MaxIterations

	for {
		if s.stopRequested() {
			return domain.StateStopped
		}

		s.mu.RLock()
		iteration := s.state.CurrentIteration + 1
		prompt := s.state.CurrentPrompt
		s.mu.RUnlock()

		if iteration > maxIterations {
			return domain.StateExhausted
		}
		s.update(func(st *domain.ImprovementSession) { st.CurrentIteration = iteration })
		s.logger.Debug("iteration started", zap.Int("iteration", iteration))

		transcript, err := s.components.Simulator.Simulate(ctx, prompt, persona)
		if err != nil {
			s.fail(iteration, err)
			return domain.StateFailed
		}

		report, err := s.components.Scorer.Score(ctx, transcript, persona)
		if err != nil {
			s.fail(iteration, err)
			return domain.StateFailed
		}

		score := report.OverallScore
		s.update(func(st *domain.ImprovementSession) {
			st.History = append(st.History, domain.IterationRecord{
				Iteration: iteration,
				Prompt:    prompt,
				Score:     score,
				Report:    report,
				Timestamp: s.now(),
			})
			st.Transcripts = append(st.Transcripts, transcript)
			if score > st.BestScore {
				st.BestScore = score
				st.BestPrompt = prompt
			}
		})
		s.logger.Info("iteration scored",
			zap.Int("iteration", iteration),
			zap.Float64("score", score),
			zap.Bool("fallback_report", report.Fallback),
		)

		if score >= target {
			s.update(func(st *domain.ImprovementSession) {
				st.LatestChange = fmt.Sprintf("Target score achieved! Final score: %.1f/10", score)
			})
			return domain.StateSucceeded
		}

		if iteration < maxIterations {
			s.update(func(st *domain.ImprovementSession) {
				st.LatestChange = fmt.Sprintf("Iteration %d completed (%.1f/10). Analyzing failures and improving prompt...", iteration, score)
			})
			mutation := s.components.Mutator.Mutate(ctx, prompt, report, persona)
			s.update(func(st *domain.ImprovementSession) {
				st.CurrentPrompt = mutation.ImprovedPrompt
				st.LatestChange = mutation.ChangeDescription
			})
		}
	}
}

func (s *Session) fail(iteration int, err error) {
	s.logger.Error("iteration failed", zap.Int("iteration", iteration), zap.Error(err))
	s.update(func(st *domain.ImprovementSession) {
		st.LatestChange = fmt.Sprintf("Error in iteration %d: %s", iteration, failureReason(err))
	})
}

// failureReason describes err for status readers. The raw error is only logged.
func failureReason(err error) string {
	var scoring *domain.ScoringError
	var oracle *domain.OracleError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "the session was interrupted"
	case errors.As(err, &scoring), errors.As(err, &oracle):
		return "the scoring service could not be reached"
	default:
		return "an internal error occurred"
	}
}

func (s *Session) finish(final domain.SessionState) {
	end := s.now()
	s.update(func(st *domain.ImprovementSession) {
		st.State = final
		st.Success = st.BestScore >= st.TargetScore
		st.EndedAt = &end

		switch final {
		case domain.StateExhausted:
			if st.Success {
				st.LatestChange = fmt.Sprintf("Self-improvement completed successfully! Final score: %.1f/10", st.BestScore)
			} else {
				st.LatestChange = fmt.Sprintf("Self-improvement completed after %d iterations. Best score: %.1f/10", st.MaxIterations, st.BestScore)
			}
		case domain.StateStopped:
			st.LatestChange = fmt.Sprintf("Stopped after %d iterations. Best score: %.1f/10", len(st.History), st.BestScore)
		}
	})
}

func (s *Session) persist(ctx context.Context, snapshot domain.ImprovementSession) {
	if s.sinks.Snapshots != nil {
		if err := s.sinks.Snapshots.Save(ctx, &snapshot); err != nil {
			s.logger.Error("failed to persist session snapshot", zap.Error(err))
		}
	}

	if s.sinks.Transcripts != nil {
		for i, transcript := range snapshot.Transcripts {
			key := TranscriptKey(snapshot.ID, i+1)
			if _, err := s.sinks.Transcripts.Store(ctx, key, transcript); err != nil {
				s.logger.Warn("failed to archive transcript", zap.String("key", key), zap.Error(err))
			}
		}
	}

	if s.sinks.Metrics != nil {
		m := &ports.SessionMetrics{
			SessionID:   snapshot.ID,
			PersonaID:   snapshot.PersonaID,
			PersonaName: snapshot.Persona.Name,
			Archetype:   snapshot.Persona.Archetype,
			Outcome:     string(snapshot.State),
			Iterations:  int64(len(snapshot.History)),
			BestScore:   snapshot.BestScore,
			TargetScore: snapshot.TargetScore,
			Success:     snapshot.Success,
			StartedAt:   snapshot.StartedAt,
			EndedAt:     *snapshot.EndedAt,
		}
		if err := s.sinks.Metrics.ExportSessionMetrics(ctx, m); err != nil {
			s.logger.Warn("failed to export session metrics", zap.Error(err))
		}
	}
}

// TranscriptKey names the archived transcript of one iteration.
func TranscriptKey(sessionID string, iteration int) string {
	return fmt.Sprintf("%s-%d", sessionID, iteration)
}
