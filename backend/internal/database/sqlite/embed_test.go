package sqlite

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(GetMigrationsFS(), "migrations")
	if err != nil {
		t.Fatalf("failed to read migrations directory: %v", err)
	}

	if len(entries) == 0 {
		t.Fatal("migrations directory is empty")
	}

	prev := ""
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			t.Errorf("unexpected file %s", name)
		}

		if name < prev {
			t.Errorf("migrations out of order: %s after %s", name, prev)
		}
		prev = name

		content, err := fs.ReadFile(GetMigrationsFS(), "migrations/"+name)
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}

		if !strings.Contains(string(content), "-- migrate:up") || !strings.Contains(string(content), "-- migrate:down") {
			t.Errorf("%s is missing dbmate markers", name)
		}
	}
}
