package turso

import (
	"database/sql"

	"github.com/emiliopalmerini/mcollect/internal/ports"
)

// Repositories holds all turso repository implementations as port interfaces.
type Repositories struct {
	Personas ports.PersonaRepository
	Prompt   ports.MainPromptRepository
	Sessions ports.ImprovementSessionRepository
	Analyses ports.ConversationAnalysisRepository
}

// NewRepositories creates all turso repository implementations from a database connection.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Personas: NewPersonaRepository(db),
		Prompt:   NewMainPromptRepository(db),
		Sessions: NewImprovementSessionRepository(db),
		Analyses: NewConversationAnalysisRepository(db),
	}
}
