package cli

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/adapters/oracle"
	"github.com/emiliopalmerini/mcollect/internal/adapters/otel"
	"github.com/emiliopalmerini/mcollect/internal/adapters/storage"
	"github.com/emiliopalmerini/mcollect/internal/adapters/turso"
	"github.com/emiliopalmerini/mcollect/internal/config"
	"github.com/emiliopalmerini/mcollect/internal/database"
	"github.com/emiliopalmerini/mcollect/internal/improve"
	"github.com/emiliopalmerini/mcollect/internal/logging"
	"github.com/emiliopalmerini/mcollect/internal/migrate"
	"github.com/emiliopalmerini/mcollect/internal/mutator"
	"github.com/emiliopalmerini/mcollect/internal/ports"
	"github.com/emiliopalmerini/mcollect/internal/scorer"
	"github.com/emiliopalmerini/mcollect/internal/simulator"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sql.DB

	Personas          ports.PersonaRepository
	Prompt            ports.MainPromptRepository
	Sessions          ports.ImprovementSessionRepository
	Analyses          ports.ConversationAnalysisRepository
	TranscriptStorage ports.TranscriptStorage
	Metrics           ports.MetricsExporter
}

// NewAppContext loads configuration, opens the database and applies pending migrations.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	url, err := cfg.DatabaseURL()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, url, cfg.Database.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if n, err := migrate.New(db, logger).Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	} else if n > 0 {
		logger.Info("applied migrations", zap.Int("count", n))
	}

	transcriptStorage, err := storage.NewTranscriptStorage()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize transcript storage: %w", err)
	}

	var metrics ports.MetricsExporter = otel.NewNoOpExporter()
	if cfg.OTEL.Enabled {
		exp, err := otel.NewExporter(ctx, cfg.OTEL)
		if err != nil {
			logger.Warn("metrics export disabled", zap.Error(err))
		} else {
			metrics = exp
		}
	}

	repos := turso.NewRepositories(db)
	return &AppContext{
		Config:            cfg,
		Logger:            logger,
		DB:                db,
		Personas:          repos.Personas,
		Prompt:            repos.Prompt,
		Sessions:          repos.Sessions,
		Analyses:          repos.Analyses,
		TranscriptStorage: transcriptStorage,
		Metrics:           metrics,
	}, nil
}

// Engine is the oracle-backed machinery behind simulation, scoring and improvement.
type Engine struct {
	Loop        *simulator.Simulator
	Interactive *simulator.Simulator
	Scorer      *scorer.Scorer
	Mutator     *mutator.Mutator
	Registry    *improve.Registry
}

// NewEngine builds the oracle client and every component that drives it.
func (a *AppContext) NewEngine(ctx context.Context) (*Engine, error) {
	o, err := oracle.New(ctx, a.Config.Oracle, a.Logger.Named("oracle"))
	if err != nil {
		return nil, err
	}

	sim := a.Config.Simulation
	loop := simulator.New(o, simulator.Options{
		Style:         simulator.StyleScripted,
		MaxTurns:      sim.MaxTurns,
		AgentWindow:   sim.AgentWindow,
		PersonaWindow: sim.PersonaWindow,
		Pacing:        sim.Pacing,
		CannedOpening: sim.CannedOpening,
	}, a.Logger.Named("simulator"))
	interactive := simulator.New(o, simulator.Options{
		Style:         simulator.StylePhone,
		MaxTurns:      sim.StreamMaxTurns,
		AgentWindow:   sim.AgentWindow,
		PersonaWindow: sim.PersonaWindow,
		Pacing:        sim.StreamPacing,
		CannedOpening: sim.StreamCannedOpening,
	}, a.Logger.Named("stream"))

	sc := scorer.New(o, a.Logger.Named("scorer"))
	mu := mutator.New(o, a.Logger.Named("mutator"))

	reg := a.Config.Registry
	registry := improve.NewRegistry(
		improve.RegistryConfig{
			MaxIterationsCap: reg.MaxIterationsCap,
			MaxCompleted:     reg.MaxCompleted,
			TTL:              reg.TTL,
			SweepSchedule:    reg.SweepSchedule,
		},
		a.Personas,
		a.Prompt,
		improve.Components{Simulator: loop, Scorer: sc, Mutator: mu},
		improve.Sinks{Snapshots: a.Sessions, Transcripts: a.TranscriptStorage, Metrics: a.Metrics},
		a.Logger.Named("improve"),
	)

	return &Engine{
		Loop:        loop,
		Interactive: interactive,
		Scorer:      sc,
		Mutator:     mu,
		Registry:    registry,
	}, nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close() error {
	if a.Metrics != nil {
		_ = a.Metrics.Close(context.Background())
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
