package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

type personaResponse struct {
	Success bool            `json:"success"`
	Agent   *domain.Persona `json:"agent"`
}

func (s *Server) loadPersona(ctx context.Context, id int64) (*domain.Persona, error) {
	p, err := s.deps.Personas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.NotFoundError{Entity: "persona", ID: fmt.Sprint(id)}
	}
	return p, nil
}

func (s *Server) handleAPIListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := s.deps.Personas.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personas)
}

func (s *Server) handleAPICreatePersona(w http.ResponseWriter, r *http.Request) {
	var p domain.Persona
	if err := decodeBody(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID = 0
	p.Name = strings.TrimSpace(p.Name)
	p.Archetype = strings.TrimSpace(p.Archetype)

	if err := s.deps.Personas.Create(r.Context(), &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, personaResponse{Success: true, Agent: &p})
}

func (s *Server) handleAPIUpdatePersona(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var patch domain.PersonaPatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.loadPersona(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p.Apply(patch)

	if err := s.deps.Personas.Update(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personaResponse{Success: true, Agent: p})
}

func (s *Server) handleAPIDeletePersona(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Personas.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
