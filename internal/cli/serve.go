package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/seed"
	"github.com/emiliopalmerini/mcollect/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API and the self-improvement status pages.

Personas and the main prompt are seeded with the built-in defaults when the
database is empty.

Examples:
  mcollect serve              # Start on default port 8080
  mcollect serve --port 3000  # Start on port 3000`,
	RunE: runServe,
}

var (
	servePort   int
	serveNoSeed bool
)

const shutdownTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveNoSeed, "no-seed", false, "Skip seeding default personas and prompt")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if !serveNoSeed {
		defaults, err := seed.Defaults()
		if err != nil {
			return err
		}
		res, err := seed.Apply(ctx, defaults, app.Personas, app.Prompt, app.Logger.Named("seed"))
		if err != nil {
			return err
		}
		if res.Prompt || res.Personas > 0 {
			fmt.Printf("Seeded %d persona(s), main prompt: %t\n", res.Personas, res.Prompt)
		}
	}

	engine, err := app.NewEngine(ctx)
	if err != nil {
		return err
	}
	if err := engine.Registry.StartSweeper(); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelClose()
		if err := engine.Registry.Close(closeCtx); err != nil {
			app.Logger.Warn("improvement sessions did not stop in time", zap.Error(err))
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	server := web.NewServer(servePort, web.Deps{
		Personas:      app.Personas,
		Prompt:        app.Prompt,
		Analyses:      app.Analyses,
		Conversations: engine.Interactive,
		Scorer:        engine.Scorer,
		Improvements:  engine.Registry,
	}, app.Logger.Named("web"))
	return server.Start(ctx)
}
