package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/domain"
	"github.com/emiliopalmerini/mcollect/internal/improve"
	"github.com/emiliopalmerini/mcollect/internal/ports"
	"github.com/emiliopalmerini/mcollect/internal/simulator"
)

// Conversations produces live agent/persona exchanges for the interactive endpoints.
type Conversations interface {
	AgentTurn(ctx context.Context, prompt string, persona domain.Persona, history domain.Transcript) (domain.Turn, error)
	Stream(ctx context.Context, prompt string, persona domain.Persona, onTurn simulator.TurnFunc) (domain.Transcript, error)
}

type Scorer interface {
	Score(ctx context.Context, transcript domain.Transcript, persona domain.Persona) (domain.ScoreReport, error)
}

// Improvements is the self-improvement session registry.
type Improvements interface {
	Create(ctx context.Context, personaID int64, targetScore float64, maxIterations int) (string, error)
	Status(ctx context.Context, id string) (*improve.Status, error)
	Stop(id string) error
	ListCompletedForPersona(ctx context.Context, personaID int64) ([]*domain.ImprovementSession, error)
}

type Deps struct {
	Personas      ports.PersonaRepository
	Prompt        ports.MainPromptRepository
	Analyses      ports.ConversationAnalysisRepository
	Conversations Conversations
	Scorer        Scorer
	Improvements  Improvements
}

type Server struct {
	router   *http.ServeMux
	handler  http.Handler
	port     int
	deps     Deps
	logger   *zap.Logger
	upgrader websocket.Upgrader
	newID    func() string
}

func NewServer(port int, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router: http.NewServeMux(),
		port:   port,
		deps:   deps,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		newID: uuid.NewString,
	}
	s.setupRoutes()
	s.handler = s.logRequests(s.router)
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Pages
	s.router.HandleFunc("GET /self-improve/{id}", s.handleImprovementPage)

	// Personas
	s.router.HandleFunc("GET /api/test-agents", s.handleAPIListPersonas)
	s.router.HandleFunc("POST /api/test-agents", s.handleAPICreatePersona)
	s.router.HandleFunc("PUT /api/test-agents/{id}", s.handleAPIUpdatePersona)
	s.router.HandleFunc("DELETE /api/test-agents/{id}", s.handleAPIDeletePersona)

	// Main prompt
	s.router.HandleFunc("GET /api/main-agent", s.handleAPIGetMainPrompt)
	s.router.HandleFunc("POST /api/main-agent", s.handleAPISaveMainPrompt)

	// Interactive simulation
	s.router.HandleFunc("POST /api/simulate-conversation", s.handleAPISimulateConversation)
	s.router.HandleFunc("GET /api/auto-simulate/{id}", s.handleAPIAutoSimulateSSE)
	s.router.HandleFunc("GET /api/auto-simulate/{id}/ws", s.handleAPIAutoSimulateWS)

	// Analysis
	s.router.HandleFunc("POST /api/analyze-conversation", s.handleAPIAnalyzeConversation)
	s.router.HandleFunc("GET /api/conversation-history", s.handleAPIConversationHistory)

	// Self-improvement
	s.router.HandleFunc("POST /api/self-improve/start", s.handleAPIStartImprovement)
	s.router.HandleFunc("GET /api/self-improve/status/{id}", s.handleAPIImprovementStatus)
	s.router.HandleFunc("POST /api/self-improve/stop", s.handleAPIStopImprovement)
	s.router.HandleFunc("GET /api/self-improve/history/{personaId}", s.handleAPIImprovementHistory)
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting server", zap.String("addr", fmt.Sprintf("http://localhost:%d", s.port)))

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil // Graceful shutdown
	}
	return err
}
