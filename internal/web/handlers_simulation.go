package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

type simulateRequest struct {
	TestAgentID         int64             `json:"testAgentId"`
	Message             string            `json:"message"`
	ConversationHistory domain.Transcript `json:"conversationHistory"`
}

type simulateResponse struct {
	BotResponse         string            `json:"botResponse"`
	ConversationHistory domain.Transcript `json:"conversationHistory"`
}

// streamEvent is one frame of an auto-simulation, sent over SSE or WebSocket.
type streamEvent struct {
	Type       string            `json:"type"`
	Turn       *domain.Turn      `json:"turn,omitempty"`
	Transcript domain.Transcript `json:"transcript,omitempty"`
	Message    string            `json:"message,omitempty"`
}

func (s *Server) handleAPISimulateConversation(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	persona, err := s.loadPersona(ctx, req.TestAgentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	prompt, err := s.currentPrompt(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	history := req.ConversationHistory.Clone()
	if strings.TrimSpace(req.Message) == "" {
		history = nil
	} else {
		history = append(history, domain.Turn{
			Speaker:   domain.SpeakerPersona,
			Text:      strings.TrimSpace(req.Message),
			Timestamp: time.Now().UTC(),
		})
	}

	turn, err := s.deps.Conversations.AgentTurn(ctx, prompt, *persona, history)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history = append(history, turn)

	writeJSON(w, http.StatusOK, simulateResponse{
		BotResponse:         turn.Text,
		ConversationHistory: history,
	})
}

// prepareStream resolves the persona and prompt before any stream bytes are written.
func (s *Server) prepareStream(r *http.Request) (domain.Persona, string, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return domain.Persona{}, "", err
	}
	persona, err := s.loadPersona(r.Context(), id)
	if err != nil {
		return domain.Persona{}, "", err
	}
	prompt, err := s.currentPrompt(r.Context())
	if err != nil {
		return domain.Persona{}, "", err
	}
	return *persona, prompt, nil
}

func (s *Server) handleAPIAutoSimulateSSE(w http.ResponseWriter, r *http.Request) {
	persona, prompt, err := s.prepareStream(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// Paced streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(ev streamEvent) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
		_ = rc.Flush()
	}

	transcript, err := s.deps.Conversations.Stream(r.Context(), prompt, persona, func(turn domain.Turn) {
		send(streamEvent{Type: "message", Turn: &turn})
	})
	if err != nil {
		if r.Context().Err() == nil {
			s.logger.Warn("auto simulation failed", zap.Int64("persona_id", persona.ID), zap.Error(err))
			send(streamEvent{Type: "error", Message: publicError(err)})
		}
		return
	}
	send(streamEvent{Type: "end", Transcript: transcript})
}

func (s *Server) handleAPIAutoSimulateWS(w http.ResponseWriter, r *http.Request) {
	persona, prompt, err := s.prepareStream(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client only ever closes; any read error ends the stream.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev streamEvent) {
		if err := conn.WriteJSON(ev); err != nil {
			cancel()
		}
	}

	transcript, err := s.deps.Conversations.Stream(ctx, prompt, persona, func(turn domain.Turn) {
		send(streamEvent{Type: "message", Turn: &turn})
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("auto simulation failed", zap.Int64("persona_id", persona.ID), zap.Error(err))
			send(streamEvent{Type: "error", Message: publicError(err)})
		}
		return
	}
	send(streamEvent{Type: "end", Transcript: transcript})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation ended"),
		time.Now().Add(time.Second))
}
