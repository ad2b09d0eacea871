package helpers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	// Drivers behind dialect.Driver().
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"redalert/backend/internal/config"
	"redalert/backend/pkg/dialect"
	"redalert/backend/pkg/migrator"
	"redalert/backend/pkg/utils"
)

func GetLogger(config *config.Config) *slog.Logger {
	logOptions := slog.HandlerOptions{
		Level:       config.LogLevel,
		ReplaceAttr: utils.SlogReplacer,
	}

	var logHandler slog.Handler = slog.NewJSONHandler(config.LogOutput, &logOptions)
	if config.LogFormat == "text" {
		logHandler = slog.NewTextHandler(config.LogOutput, &logOptions)
	}

	return slog.New(logHandler).With(slog.String("version", utils.GetVersionShort()))
}

func RunMigrations(l *slog.Logger, c *config.Config) error {
	l.Info("Running database migrations")

	mig, err := migrator.New(l, c.Dialect, c.Database, c.Dialect.MigrationFS())
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := mig.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	l.Info("Database migrations completed successfully")

	return nil
}

// OpenDatabase migrates the configured database and opens a pool on it.
func OpenDatabase(ctx context.Context, l *slog.Logger, c *config.Config) (*sqlx.DB, error) {
	if err := RunMigrations(l, c); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, c.Dialect.Driver(), c.Dialect.DSN(c.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.Dialect, err)
	}

	// SQLite allows a single writer.
	if c.Dialect == dialect.SQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
