package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emiliopalmerini/mcollect/internal/config"
	"github.com/emiliopalmerini/mcollect/internal/database"
	"github.com/emiliopalmerini/mcollect/internal/logging"
	"github.com/emiliopalmerini/mcollect/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  mcollect migrate      # Run all pending migrations
  mcollect migrate 2    # Migrate to version 2
  mcollect migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	url, err := cfg.DatabaseURL()
	if err != nil {
		return err
	}
	db, err := database.Open(ctx, url, cfg.Database.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	m := migrate.New(db, logger)
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, dirty, err := m.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}
	fmt.Printf("Current version: %d\n", current)

	if len(args) == 0 {
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("No pending migrations")
		} else {
			fmt.Printf("Applied %d migration(s)\n", n)
		}
		return nil
	}

	target, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version number: %s", args[0])
	}
	if target == current {
		fmt.Println("Already at target version")
		return nil
	}
	if err := m.To(ctx, target); err != nil {
		return err
	}
	logger.Info("migrated", zap.Int("from", current), zap.Int("to", target))
	fmt.Printf("Migrated to version %d\n", target)
	return nil
}
