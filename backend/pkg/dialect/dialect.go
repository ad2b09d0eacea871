package dialect

import (
	"embed"
	"fmt"
	"strings"

	"redalert/backend/internal/database/postgres"
	"redalert/backend/internal/database/sqlite"
)

type Dialect string

const (
	SQLite     Dialect = "sqlite"
	PostgreSQL Dialect = "postgres"
)

// Parse accepts a dialect name in any case. "postgresql" and "pgx" name PostgreSQL.
func Parse(name string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(name)))
	if d == "postgresql" || d == "pgx" {
		d = PostgreSQL
	}

	return d, d.Validate()
}

func (d Dialect) Validate() error {
	switch d {
	case SQLite, PostgreSQL:
		return nil
	default:
		return fmt.Errorf("unsupported dialect: %s", d)
	}
}

func (d Dialect) String() string {
	return string(d)
}

// Driver returns the database/sql driver name registered for the dialect.
func (d Dialect) Driver() string {
	switch d {
	case SQLite:
		return "sqlite3"
	case PostgreSQL:
		return "pgx"
	default:
		return ""
	}
}

// DSN converts the configured connection string into what the driver expects.
// SQLite paths get foreign keys and a busy timeout; postgres URLs pass through.
func (d Dialect) DSN(conn string) string {
	if d == SQLite {
		return "file:" + conn + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	}

	return conn
}

func (d Dialect) MigrationFS() embed.FS {
	switch d {
	case SQLite:
		return sqlite.GetMigrationsFS()
	case PostgreSQL:
		return postgres.GetMigrationsFS()
	default:
		return embed.FS{}
	}
}
