package templates

import (
	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/improve"
)

// ImprovementView is the data rendered on a session status page.
type ImprovementView struct {
	SessionID        string
	PersonaID        int64
	Status           string
	State            string
	CurrentIteration int
	MaxIterations    int
	CurrentScore     float64
	TargetScore      float64
	Completed        bool
	TargetReached    bool
	LatestChange     string
	Iterations       []IterationRow
	OriginalPrompt   string
	BestPrompt       string
	StartedAt        string
	EndedAt          string
}

type IterationRow struct {
	Iteration       int
	Score           float64
	Strengths       []string
	Improvements    []string
	Recommendations []string
	Fallback        bool
}

func NewImprovementView(s *improve.Status) ImprovementView {
	v := ImprovementView{
		SessionID:        s.SessionID,
		PersonaID:        s.PersonaID,
		Status:           s.Status,
		State:            string(s.State),
		CurrentIteration: s.CurrentIteration,
		MaxIterations:    s.MaxIterations,
		CurrentScore:     s.CurrentScore,
		TargetScore:      s.TargetScore,
		Completed:        s.Completed,
		TargetReached:    s.TargetReached,
		LatestChange:     s.LatestChange,
		StartedAt:        formatTime(s.StartedAt),
	}
	if s.EndedAt != nil {
		v.EndedAt = formatTime(*s.EndedAt)
	}
	if s.OriginalPrompt != nil {
		v.OriginalPrompt = *s.OriginalPrompt
	}
	if s.BestPrompt != nil {
		v.BestPrompt = *s.BestPrompt
	}
	for _, rec := range s.IterationHistory {
		v.Iterations = append(v.Iterations, newIterationRow(rec))
	}
	return v
}

func newIterationRow(rec domain.IterationRecord) IterationRow {
	return IterationRow{
		Iteration:       rec.Iteration,
		Score:           rec.Score,
		Strengths:       rec.Report.Strengths,
		Improvements:    rec.Report.Improvements,
		Recommendations: rec.Report.Recommendations,
		Fallback:        rec.Report.Fallback,
	}
}
