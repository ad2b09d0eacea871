//go:build cgo

package migrator

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"redalert/backend/internal/database/sqlite"
	"redalert/backend/pkg/dialect"
)

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name    string
		dialect dialect.Dialect
		conn    string
		wantErr string
	}{
		{name: "empty conn", dialect: dialect.SQLite, conn: "", wantErr: "connection string is required"},
		{name: "memory", dialect: dialect.SQLite, conn: ":memory:", wantErr: "in-memory"},
		{name: "unknown dialect", dialect: dialect.Dialect("mysql"), conn: "x", wantErr: "unsupported dialect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(l, tt.dialect, tt.conn, sqlite.GetMigrationsFS())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("New() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMigrateSQLite(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(os.Stdout, nil))
	path := filepath.Join(t.TempDir(), "database.sqlite")

	m, err := New(l, dialect.SQLite, path, sqlite.GetMigrationsFS())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := m.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Second run is a no-op.
	if err := m.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	pending, err := m.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if pending != 0 {
		t.Errorf("Pending() = %d, want 0", pending)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
