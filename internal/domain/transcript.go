package domain

import (
	"fmt"
	"strings"
	"time"
)

type Speaker string

const (
	SpeakerAgent   Speaker = "agent"
	SpeakerPersona Speaker = "persona"
)

// Other returns the speaker expected on the following turn.
func (s Speaker) Other() Speaker {
	if s == SpeakerAgent {
		return SpeakerPersona
	}
	return SpeakerAgent
}

type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is an ordered exchange that starts with the agent and alternates speakers.
type Transcript []Turn

// Validate reports the first violation of the alternation and timestamp ordering rules.
func (t Transcript) Validate() error {
	for i, turn := range t {
		if i == 0 {
			if turn.Speaker != SpeakerAgent {
				return fmt.Errorf("turn 0: expected speaker %q, got %q", SpeakerAgent, turn.Speaker)
			}
			continue
		}
		prev := t[i-1]
		if turn.Speaker != prev.Speaker.Other() {
			return fmt.Errorf("turn %d: speaker %q repeats previous turn", i, turn.Speaker)
		}
		if turn.Timestamp.Before(prev.Timestamp) {
			return fmt.Errorf("turn %d: timestamp goes backwards", i)
		}
	}
	return nil
}

// Last returns the trailing n turns, or the whole transcript when it is shorter.
func (t Transcript) Last(n int) Transcript {
	if n <= 0 || len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}

// Render formats the turns one per line using the labels chosen for each speaker.
func (t Transcript) Render(agentLabel, personaLabel string) string {
	var sb strings.Builder
	for i, turn := range t {
		if i > 0 {
			sb.WriteByte('\n')
		}
		label := agentLabel
		if turn.Speaker == SpeakerPersona {
			label = personaLabel
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
	}
	return sb.String()
}

// Clone copies the turn slice.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}
