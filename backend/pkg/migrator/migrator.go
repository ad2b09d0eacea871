package migrator

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"redalert/backend/pkg/dialect"
	"redalert/backend/pkg/utils"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/sqlite"
)

// Migrator applies the embedded dbmate migrations of one dialect.
type Migrator struct {
	db      *dbmate.DB
	dialect dialect.Dialect
	l       *slog.Logger
}

// New creates a migrator. For SQLite connString is a file path; for
// PostgreSQL it is a postgres:// URL.
func New(l *slog.Logger, d dialect.Dialect, connString string, migrations fs.FS) (*Migrator, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if connString == "" {
		return nil, errors.New("connection string is required")
	}

	if _, err := fs.ReadDir(migrations, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var raw string

	switch d {
	case dialect.SQLite:
		if strings.Contains(connString, ":memory:") || strings.Contains(connString, "mode=memory") {
			return nil, errors.New("in-memory databases are not supported")
		}

		raw = "sqlite:" + connString
	case dialect.PostgreSQL:
		raw = connString
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	db := dbmate.New(u)
	db.Strict = true
	db.FS = migrations
	db.MigrationsDir = []string{"migrations"}
	db.AutoDumpSchema = false

	if d == dialect.PostgreSQL {
		db.WaitBefore = true
		db.WaitTimeout = 30 * time.Second
	}

	l = l.With(slog.String("component", "db-migrator"), slog.String("dialect", d.String()))
	db.Log = utils.NewSlogWriter(l)

	return &Migrator{db: db, dialect: d, l: l}, nil
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate() error {
	m.l.Info("Migrating database")

	if err := m.db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Pending returns the number of migrations not yet applied.
func (m *Migrator) Pending() (int, error) {
	migrations, err := m.db.FindMigrations()
	if err != nil {
		return 0, fmt.Errorf("failed to list migrations: %w", err)
	}

	pending := 0
	for _, mig := range migrations {
		if !mig.Applied {
			pending++
		}
	}

	return pending, nil
}
