package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/emiliopalmerini/mcollect/internal/adapters/oracle"
	"github.com/emiliopalmerini/mcollect/internal/adapters/otel"
	"github.com/emiliopalmerini/mcollect/internal/util"
)

const prefix = "MCOLLECT"

// Database holds libsql/Turso connection settings. An empty URL selects a
// local file in the XDG data dir.
type Database struct {
	URL       string `envconfig:"URL"`
	AuthToken string `envconfig:"AUTH_TOKEN"`
}

// Simulation tunes conversation generation for the loop and the live stream.
type Simulation struct {
	MaxTurns       int           `envconfig:"MAX_TURNS" default:"14"`
	StreamMaxTurns int           `envconfig:"STREAM_MAX_TURNS" default:"21"`
	AgentWindow    int           `envconfig:"AGENT_WINDOW" default:"6"`
	PersonaWindow  int           `envconfig:"PERSONA_WINDOW" default:"4"`
	Pacing         time.Duration `envconfig:"PACING" default:"0s"`
	StreamPacing   time.Duration `envconfig:"STREAM_PACING" default:"2s"`

	// CannedOpening applies to the improvement loop, StreamCannedOpening to
	// the interactive endpoints.
	CannedOpening       bool `envconfig:"CANNED_OPENING" default:"false"`
	StreamCannedOpening bool `envconfig:"STREAM_CANNED_OPENING" default:"true"`
}

// Registry bounds in-memory retention of self-improvement sessions.
type Registry struct {
	MaxCompleted     int           `envconfig:"MAX_COMPLETED" default:"100"`
	TTL              time.Duration `envconfig:"TTL" default:"1h"`
	SweepSchedule    string        `envconfig:"SWEEP_SCHEDULE" default:"@every 1m"`
	MaxIterationsCap int           `envconfig:"MAX_ITERATIONS_CAP" default:"50"`
}

type Log struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`
}

type Config struct {
	Database   Database      `envconfig:"DB"`
	Oracle     oracle.Config `envconfig:"ORACLE"`
	Simulation Simulation    `envconfig:"SIM"`
	Registry   Registry      `envconfig:"REGISTRY"`
	OTEL       otel.Config   `envconfig:"OTEL"`
	Log        Log           `envconfig:"LOG"`
}

// Load reads an optional .env file, then MCOLLECT_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads MCOLLECT_* environment variables without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case oracle.ProviderOpenAI, oracle.ProviderAnthropic, oracle.ProviderGemini:
	default:
		return fmt.Errorf("invalid oracle provider %q", c.Oracle.Provider)
	}
	if c.Simulation.MaxTurns < 2 || c.Simulation.StreamMaxTurns < 2 {
		return fmt.Errorf("simulation turn budgets must be at least 2")
	}
	if c.Simulation.AgentWindow < 1 || c.Simulation.PersonaWindow < 1 {
		return fmt.Errorf("simulation windows must be positive")
	}
	if c.Registry.MaxIterationsCap < 1 {
		return fmt.Errorf("registry max iterations cap must be positive")
	}
	return nil
}

// DatabaseURL returns the configured URL or a local file in the XDG data dir.
func (c *Config) DatabaseURL() (string, error) {
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	dir, err := util.GetXDGDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return "file:" + filepath.Join(dir, "mcollect.db"), nil
}
