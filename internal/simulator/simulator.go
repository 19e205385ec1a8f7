// Package simulator drives a bounded conversation between the collection agent and a persona.
package simulator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/ports"
)

// Style selects the instruction templates used for each turn.
type Style int

const (
	// StyleScripted gives both sides full persona context. Used by the improvement loop.
	StyleScripted Style = iota
	// StylePhone asks for short phone-call utterances. Used for interactive simulations.
	StylePhone
)

var endPhrases = []string{
	"goodbye",
	"hang up",
	"call back",
	"thank you for calling",
	"have a good day",
	"talk soon",
}

// EndsConversation reports whether text contains a phrase that closes the call.
func EndsConversation(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range endPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

type Options struct {
	Style         Style
	MaxTurns      int
	AgentWindow   int
	PersonaWindow int
	// Pacing is waited before every turn after the first.
	Pacing time.Duration
	// CannedOpening replaces the first agent turn with a fixed line instead of an oracle call.
	CannedOpening bool
}

func DefaultOptions() Options {
	return Options{
		Style:         StyleScripted,
		MaxTurns:      14,
		AgentWindow:   6,
		PersonaWindow: 4,
	}
}

type sampling struct {
	agent   ports.Sampling
	persona ports.Sampling
}

var samplingByStyle = map[Style]sampling{
	StyleScripted: {
		agent:   ports.Sampling{Temperature: 0.7, MaxTokens: 150},
		persona: ports.Sampling{Temperature: 0.8, MaxTokens: 150},
	},
	StylePhone: {
		agent:   ports.Sampling{Temperature: 0.4, MaxTokens: 60},
		persona: ports.Sampling{Temperature: 0.8, MaxTokens: 40},
	},
}

// TurnFunc observes each turn as soon as it is appended.
type TurnFunc func(turn domain.Turn)

type Simulator struct {
	oracle ports.Oracle
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func New(oracle ports.Oracle, opts Options, logger *zap.Logger) *Simulator {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultOptions().MaxTurns
	}
	if opts.AgentWindow <= 0 {
		opts.AgentWindow = DefaultOptions().AgentWindow
	}
	if opts.PersonaWindow <= 0 {
		opts.PersonaWindow = DefaultOptions().PersonaWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		oracle: oracle,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Options returns the effective options after defaults were applied.
func (s *Simulator) Options() Options {
	return s.opts
}

// Simulate produces a full transcript for prompt against persona.
func (s *Simulator) Simulate(ctx context.Context, prompt string, persona domain.Persona) (domain.Transcript, error) {
	return s.Stream(ctx, prompt, persona, nil)
}

// Stream is Simulate with onTurn called after every appended turn. It stops at
// MaxTurns, on an end phrase, or when ctx is done.
func (s *Simulator) Stream(ctx context.Context, prompt string, persona domain.Persona, onTurn TurnFunc) (domain.Transcript, error) {
	transcript := make(domain.Transcript, 0, s.opts.MaxTurns)

	appendTurn := func(turn domain.Turn) bool {
		transcript = append(transcript, turn)
		if onTurn != nil {
			onTurn(turn)
		}
		return EndsConversation(turn.Text)
	}

	opening, err := s.AgentTurn(ctx, prompt, persona, nil)
	if err != nil {
		return transcript, err
	}
	if appendTurn(opening) {
		return transcript, nil
	}

	for len(transcript) < s.opts.MaxTurns {
		if err := s.pace(ctx); err != nil {
			return transcript, err
		}
		reply, err := s.PersonaTurn(ctx, persona, transcript)
		if err != nil {
			return transcript, err
		}
		if appendTurn(reply) {
			return transcript, nil
		}

		if len(transcript) >= s.opts.MaxTurns {
			break
		}

		if err := s.pace(ctx); err != nil {
			return transcript, err
		}
		next, err := s.AgentTurn(ctx, prompt, persona, transcript)
		if err != nil {
			return transcript, err
		}
		if appendTurn(next) {
			return transcript, nil
		}
	}

	return transcript, nil
}

// AgentTurn generates the agent's next turn given history. An empty history
// produces the opening line. Oracle failures yield a fallback utterance; only
// context cancellation is returned as an error.
func (s *Simulator) AgentTurn(ctx context.Context, prompt string, persona domain.Persona, history domain.Transcript) (domain.Turn, error) {
	if len(history) == 0 && s.opts.CannedOpening {
		return s.turn(domain.SpeakerAgent, cannedOpening), nil
	}

	window := history.Last(s.opts.AgentWindow)
	var instruction, fallback string
	switch s.opts.Style {
	case StylePhone:
		instruction = phoneAgentPrompt(prompt, window)
		fallback = phoneAgentFallback
	default:
		instruction = scriptedAgentPrompt(prompt, persona, window)
		fallback = scriptedAgentFallback
	}

	text, err := s.generate(ctx, domain.SpeakerAgent, instruction, samplingByStyle[s.opts.Style].agent, fallback)
	if err != nil {
		return domain.Turn{}, err
	}
	return s.turn(domain.SpeakerAgent, text), nil
}

// PersonaTurn generates the persona's reply to the latest agent turn.
func (s *Simulator) PersonaTurn(ctx context.Context, persona domain.Persona, history domain.Transcript) (domain.Turn, error) {
	window := history.Last(s.opts.PersonaWindow)
	var instruction, fallback string
	switch s.opts.Style {
	case StylePhone:
		instruction = phonePersonaPrompt(persona, window)
		fallback = phonePersonaFallback
	default:
		instruction = scriptedPersonaPrompt(persona, window)
		fallback = scriptedPersonaFallback
		if len(persona.SpeechPatterns) > 0 && persona.SpeechPatterns[0] != "" {
			fallback = persona.SpeechPatterns[0]
		}
	}

	text, err := s.generate(ctx, domain.SpeakerPersona, instruction, samplingByStyle[s.opts.Style].persona, fallback)
	if err != nil {
		return domain.Turn{}, err
	}
	return s.turn(domain.SpeakerPersona, text), nil
}

func (s *Simulator) generate(ctx context.Context, speaker domain.Speaker, instruction string, params ports.Sampling, fallback string) (string, error) {
	text, err := s.oracle.Generate(ctx, instruction, params)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		s.logger.Warn("turn generation failed, using fallback",
			zap.String("speaker", string(speaker)),
			zap.Error(err),
		)
		return fallback, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Warn("empty turn generated, using fallback", zap.String("speaker", string(speaker)))
		return fallback, nil
	}
	return text, nil
}

func (s *Simulator) turn(speaker domain.Speaker, text string) domain.Turn {
	return domain.Turn{Speaker: speaker, Text: text, Timestamp: s.now()}
}

func (s *Simulator) pace(ctx context.Context) error {
	if s.opts.Pacing <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.opts.Pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
