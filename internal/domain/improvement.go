package domain

import "time"

type SessionState string

const (
	StatePending   SessionState = "pending"
	StateRunning   SessionState = "running"
	StateSucceeded SessionState = "succeeded"
	StateExhausted SessionState = "exhausted"
	StateStopped   SessionState = "stopped"
	StateFailed    SessionState = "failed"
)

// Terminal reports whether the state ends a session.
func (s SessionState) Terminal() bool {
	switch s {
	case StateSucceeded, StateExhausted, StateStopped, StateFailed:
		return true
	}
	return false
}

// Status maps a state onto the coarse value exposed to clients.
func (s SessionState) Status() string {
	switch s {
	case StatePending, StateRunning:
		return "running"
	case StateFailed:
		return "error"
	default:
		return "completed"
	}
}

type IterationRecord struct {
	Iteration int         `json:"iteration"`
	Prompt    string      `json:"prompt"`
	Score     float64     `json:"score"`
	Report    ScoreReport `json:"analysis"`
	Timestamp time.Time   `json:"timestamp"`
}

// ImprovementSession is a point-in-time view of one self-improvement run.
type ImprovementSession struct {
	ID               string            `json:"id"`
	PersonaID        int64             `json:"personaId"`
	Persona          Persona           `json:"persona"`
	OriginalPrompt   string            `json:"originalPrompt"`
	CurrentPrompt    string            `json:"currentPrompt"`
	BestPrompt       string            `json:"bestPrompt"`
	BestScore        float64           `json:"bestScore"`
	TargetScore      float64           `json:"targetScore"`
	MaxIterations    int               `json:"maxIterations"`
	CurrentIteration int               `json:"currentIteration"`
	State            SessionState      `json:"state"`
	Success          bool              `json:"success"`
	LatestChange     string            `json:"latestChange,omitempty"`
	History          []IterationRecord `json:"history"`
	// Transcripts holds the conversation simulated in each iteration, aligned with History.
	Transcripts []Transcript `json:"-"`
	StartedAt   time.Time    `json:"startedAt"`
	EndedAt     *time.Time   `json:"endedAt,omitempty"`
}

// Clone returns a copy that shares no mutable state with s.
func (s ImprovementSession) Clone() ImprovementSession {
	s.Persona = s.Persona.Clone()
	if s.History != nil {
		h := make([]IterationRecord, len(s.History))
		for i, rec := range s.History {
			rec.Report = rec.Report.Clone()
			h[i] = rec
		}
		s.History = h
	}
	if s.Transcripts != nil {
		ts := make([]Transcript, len(s.Transcripts))
		for i, t := range s.Transcripts {
			ts[i] = t.Clone()
		}
		s.Transcripts = ts
	}
	if s.EndedAt != nil {
		end := *s.EndedAt
		s.EndedAt = &end
	}
	return s
}

// ConversationAnalysis is a stored ad-hoc scoring of a pasted transcript.
type ConversationAnalysis struct {
	ID           string      `json:"id"`
	PersonaID    int64       `json:"personaId"`
	PersonaName  string      `json:"personaName"`
	Conversation Transcript  `json:"conversation"`
	Report       ScoreReport `json:"analysis"`
	CreatedAt    time.Time   `json:"timestamp"`
}
