package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

// currentPrompt returns the stored main prompt or the built-in default.
func (s *Server) currentPrompt(ctx context.Context) (string, error) {
	p, err := s.deps.Prompt.Get(ctx)
	if err != nil {
		return "", err
	}
	if p == nil || strings.TrimSpace(p.Prompt) == "" {
		return domain.DefaultAgentPrompt, nil
	}
	return p.Prompt, nil
}

func (s *Server) handleAPIGetMainPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Prompt.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p == nil {
		p = &domain.MainPrompt{Prompt: domain.DefaultAgentPrompt}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAPISaveMainPrompt(w http.ResponseWriter, r *http.Request) {
	var p domain.MainPrompt
	if err := decodeBody(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(p.Prompt) == "" {
		s.writeError(w, r, &domain.ValidationError{Field: "prompt", Reason: "is required"})
		return
	}

	if err := s.deps.Prompt.Save(r.Context(), &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
