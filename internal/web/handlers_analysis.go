package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

type analyzeRequest struct {
	Conversation domain.Transcript `json:"conversation"`
	TestAgentID  int64             `json:"testAgentId"`
	// TestAgent allows scoring against an unsaved persona.
	TestAgent *domain.Persona `json:"testAgent"`
}

type analyzeResponse struct {
	Success  bool                         `json:"success"`
	Analysis *domain.ConversationAnalysis `json:"analysis"`
}

func (s *Server) handleAPIAnalyzeConversation(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Conversation) == 0 {
		s.writeError(w, r, &domain.ValidationError{Field: "conversation", Reason: "is required"})
		return
	}

	ctx := r.Context()
	var persona domain.Persona
	switch {
	case req.TestAgentID > 0:
		p, err := s.loadPersona(ctx, req.TestAgentID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		persona = *p
	case req.TestAgent != nil:
		if err := req.TestAgent.Validate(); err != nil {
			s.writeError(w, r, err)
			return
		}
		persona = req.TestAgent.Clone()
	default:
		s.writeError(w, r, &domain.ValidationError{Field: "testAgentId", Reason: "is required"})
		return
	}

	report, err := s.deps.Scorer.Score(ctx, req.Conversation, persona)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	analysis := &domain.ConversationAnalysis{
		ID:           s.newID(),
		PersonaID:    persona.ID,
		PersonaName:  persona.Name,
		Conversation: req.Conversation,
		Report:       report,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.deps.Analyses.Create(ctx, analysis); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Analysis: analysis})
}

func (s *Server) handleAPIConversationHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, &domain.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		limit = n
	}

	analyses, err := s.deps.Analyses.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}
