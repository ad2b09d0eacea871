//go:build cgo

package helpers

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"redalert/backend/internal/config"
	"redalert/backend/pkg/dialect"
)

func TestOpenDatabase(t *testing.T) {
	t.Parallel()

	c := &config.Config{
		Dialect:  dialect.SQLite,
		Database: filepath.Join(t.TempDir(), "database.sqlite"),
	}
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := OpenDatabase(context.Background(), l, c)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"nodes", "accounts", "auth_tokens"} {
		var n int
		if err := db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}

	// Running again is a no-op.
	if err := RunMigrations(l, c); err != nil {
		t.Fatal(err)
	}
}
