package domain

import "time"

// DefaultAgentPrompt seeds a session when no main prompt record has been stored.
const DefaultAgentPrompt = "You are a debt collection agent."

// MainPrompt is the singleton instruction record for the agent under test.
type MainPrompt struct {
	Name      string    `json:"name" yaml:"name"`
	Prompt    string    `json:"prompt" yaml:"prompt"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}
