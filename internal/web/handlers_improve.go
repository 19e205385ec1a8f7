package web

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/improve"
	"github.com/emiliopalmerini/mcollect/internal/web/templates"
)

type startImprovementRequest struct {
	PersonaID     int64   `json:"personaId"`
	PersonalityID int64   `json:"personalityId"`
	TargetScore   float64 `json:"targetScore"`
	MaxIterations int     `json:"maxIterations"`
}

type statusResponse struct {
	Success bool `json:"success"`
	*improve.Status
}

type stopImprovementRequest struct {
	SessionID string `json:"sessionId"`
}

// sessionSummary is one finished session in a persona's history.
type sessionSummary struct {
	ID               string                   `json:"id"`
	AgentName        string                   `json:"agentName"`
	State            domain.SessionState      `json:"state"`
	BestScore        float64                  `json:"bestScore"`
	FinalScore       float64                  `json:"finalScore"`
	OriginalPrompt   string                   `json:"originalPrompt"`
	BestPrompt       string                   `json:"bestPrompt"`
	IterationHistory []domain.IterationRecord `json:"iterationHistory"`
	StartTime        time.Time                `json:"startTime"`
	EndTime          *time.Time               `json:"endTime,omitempty"`
	Success          bool                     `json:"success"`
	MaxIterations    int                      `json:"maxIterations"`
	TargetScore      float64                  `json:"targetScore"`
}

type historyResponse struct {
	Success  bool             `json:"success"`
	Sessions []sessionSummary `json:"sessions"`
}

func (s *Server) handleAPIStartImprovement(w http.ResponseWriter, r *http.Request) {
	var req startImprovementRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	personaID := req.PersonaID
	if personaID == 0 {
		personaID = req.PersonalityID
	}

	id, err := s.deps.Improvements.Create(r.Context(), personaID, req.TargetScore, req.MaxIterations)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessionId": id})
}

func (s *Server) handleAPIImprovementStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Improvements.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Status: status})
}

func (s *Server) handleAPIStopImprovement(w http.ResponseWriter, r *http.Request) {
	var req stopImprovementRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		s.writeError(w, r, &domain.ValidationError{Field: "sessionId", Reason: "is required"})
		return
	}

	if err := s.deps.Improvements.Stop(req.SessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAPIImprovementHistory(w http.ResponseWriter, r *http.Request) {
	personaID, err := pathID(r, "personaId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sessions, err := s.deps.Improvements.ListCompletedForPersona(r.Context(), personaID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := historyResponse{Success: true, Sessions: make([]sessionSummary, 0, len(sessions))}
	for _, sess := range sessions {
		history := sess.History
		if history == nil {
			history = []domain.IterationRecord{}
		}
		resp.Sessions = append(resp.Sessions, sessionSummary{
			ID:               sess.ID,
			AgentName:        sess.Persona.Name,
			State:            sess.State,
			BestScore:        sess.BestScore,
			FinalScore:       sess.BestScore,
			OriginalPrompt:   sess.OriginalPrompt,
			BestPrompt:       sess.BestPrompt,
			IterationHistory: history,
			StartTime:        sess.StartedAt,
			EndTime:          sess.EndedAt,
			Success:          sess.Success,
			MaxIterations:    sess.MaxIterations,
			TargetScore:      sess.TargetScore,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImprovementPage(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Improvements.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		code := statusFor(err)
		http.Error(w, http.StatusText(code), code)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ImprovementPage(templates.NewImprovementView(status)).Render(r.Context(), w); err != nil {
		s.logger.Warn("failed to render improvement page", zap.String("session_id", status.SessionID), zap.Error(err))
	}
}
