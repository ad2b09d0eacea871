package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"redalert/backend/pkg/dialect"
)

func TestNewDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(string(EnvDataDir), dir)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cfg.Close()

	if cfg.Dialect != dialect.SQLite {
		t.Errorf("Dialect = %s, want sqlite", cfg.Dialect)
	}
	if cfg.Database != filepath.Join(dir, "database.sqlite") {
		t.Errorf("Database = %s", cfg.Database)
	}
	if cfg.FreshnessWindow != 10*time.Second {
		t.Errorf("FreshnessWindow = %s, want 10s", cfg.FreshnessWindow)
	}
	if cfg.AlertLead != time.Second {
		t.Errorf("AlertLead = %s, want 1s", cfg.AlertLead)
	}
	if !cfg.SessionSecretGenerated || len(cfg.SessionSecret) != 32 {
		t.Error("expected a generated 32 byte session secret")
	}
	if cfg.PublicURL != "http://localhost:8080" {
		t.Errorf("PublicURL = %s", cfg.PublicURL)
	}
	if cfg.Generate || cfg.DocsDir != "docs" {
		t.Errorf("Generate = %v, DocsDir = %s", cfg.Generate, cfg.DocsDir)
	}
}

func TestNewPostgres(t *testing.T) {
	t.Setenv(string(EnvDataDir), t.TempDir())
	t.Setenv(string(EnvDBDialect), "postgres")
	t.Setenv(string(EnvDBHost), "db")
	t.Setenv(string(EnvDBUser), "fire")
	t.Setenv(string(EnvDBPass), "p@ss word")
	t.Setenv(string(EnvDBName), "alarms")
	t.Setenv(string(EnvSessionSecret), "secret")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := "postgres://fire:p%40ss+word@db:5432/alarms?sslmode=disable"
	if cfg.Database != want {
		t.Errorf("Database = %s, want %s", cfg.Database, want)
	}
	if cfg.SessionSecretGenerated || string(cfg.SessionSecret) != "secret" {
		t.Error("expected configured session secret")
	}
}

func TestNewRejectsUnknownDialect(t *testing.T) {
	t.Setenv(string(EnvDataDir), t.TempDir())
	t.Setenv(string(EnvDBDialect), "mysql")

	if _, err := New(); err == nil || !strings.Contains(err.Error(), "unsupported dialect") {
		t.Fatalf("expected dialect error, got %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_DURATION", "2m")
	t.Setenv("TEST_BAD_DURATION", "soon")
	t.Setenv("TEST_LEVEL", "warn")
	t.Setenv("TEST_BOOL", "TRUE")
	t.Setenv("TEST_INT", "x")

	if got := getDurationEnv("TEST_DURATION", time.Second); got != 2*time.Minute {
		t.Errorf("getDurationEnv = %s", got)
	}
	if got := getDurationEnv("TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("invalid duration should fall back, got %s", got)
	}
	if got := getLogLevelEnv("TEST_LEVEL", slog.LevelInfo); got != slog.LevelWarn {
		t.Errorf("getLogLevelEnv = %v", got)
	}
	if !getBoolEnv("TEST_BOOL", false) {
		t.Error("getBoolEnv should parse TRUE")
	}
	if got := getIntEnv("TEST_INT", 7); got != 7 {
		t.Errorf("invalid int should fall back, got %d", got)
	}
}
