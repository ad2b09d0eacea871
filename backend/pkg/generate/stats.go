package generate

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"

	"redalert/backend/pkg/dialect"
)

// Tables managed by the migration tool rather than the application.
var ignoredTables = []string{"schema_migrations"}

type DatabaseStats struct {
	Dialect string  `json:"dialect"`
	Tables  []Table `json:"tables"`
}

type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
}

type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"notNull"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primaryKey"`
}

type ForeignKey struct {
	From  string `json:"from"`
	Table string `json:"table"`
	To    string `json:"to"`
}

// GetDatabaseStats describes the application tables of db.
func GetDatabaseStats(ctx context.Context, db *sqlx.DB, d dialect.Dialect) (DatabaseStats, error) {
	var (
		names []string
		err   error
	)

	switch d {
	case dialect.SQLite:
		err = db.SelectContext(ctx, &names, `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	case dialect.PostgreSQL:
		err = db.SelectContext(ctx, &names, `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`)
	default:
		return DatabaseStats{}, fmt.Errorf("unsupported dialect: %s", d)
	}

	if err != nil {
		return DatabaseStats{}, fmt.Errorf("failed to list tables: %w", err)
	}

	stats := DatabaseStats{Dialect: d.String(), Tables: []Table{}}

	for _, name := range names {
		if slices.Contains(ignoredTables, name) {
			continue
		}

		var t Table

		switch d {
		case dialect.SQLite:
			t, err = sqliteTable(ctx, db, name)
		case dialect.PostgreSQL:
			t, err = postgresTable(ctx, db, name)
		}

		if err != nil {
			return DatabaseStats{}, err
		}

		stats.Tables = append(stats.Tables, t)
	}

	return stats, nil
}

type sqliteColumn struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull bool           `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

type sqliteForeignKey struct {
	ID       int    `db:"id"`
	Seq      int    `db:"seq"`
	Table    string `db:"table"`
	From     string `db:"from"`
	To       string `db:"to"`
	OnUpdate string `db:"on_update"`
	OnDelete string `db:"on_delete"`
	Match    string `db:"match"`
}

func sqliteTable(ctx context.Context, db *sqlx.DB, name string) (Table, error) {
	t := Table{Name: name, Columns: []Column{}, ForeignKeys: []ForeignKey{}}

	var cols []sqliteColumn
	if err := db.SelectContext(ctx, &cols, fmt.Sprintf(`PRAGMA table_info("%s")`, name)); err != nil {
		return Table{}, fmt.Errorf("failed to query columns for %s: %w", name, err)
	}

	for _, c := range cols {
		col := Column{Name: c.Name, Type: c.Type, PrimaryKey: c.PK > 0}
		// PRIMARY KEY implies NOT NULL
		col.NotNull = c.NotNull || col.PrimaryKey

		if c.Default.Valid {
			col.Default = &c.Default.String
		}

		t.Columns = append(t.Columns, col)
	}

	var fks []sqliteForeignKey
	if err := db.SelectContext(ctx, &fks, fmt.Sprintf(`PRAGMA foreign_key_list("%s")`, name)); err != nil {
		return Table{}, fmt.Errorf("failed to query foreign keys for %s: %w", name, err)
	}

	for _, fk := range fks {
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{From: fk.From, Table: fk.Table, To: fk.To})
	}

	return t, nil
}

type postgresColumn struct {
	Name       string         `db:"column_name"`
	Type       string         `db:"data_type"`
	Nullable   string         `db:"is_nullable"`
	Default    sql.NullString `db:"column_default"`
	PrimaryKey bool           `db:"primary_key"`
}

const postgresColumnsQuery = `
SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
	EXISTS (
		SELECT 1 FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage k
			ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = c.table_schema AND tc.table_name = c.table_name
			AND k.column_name = c.column_name
	) AS primary_key
FROM information_schema.columns c
WHERE c.table_schema = current_schema() AND c.table_name = $1
ORDER BY c.ordinal_position`

const postgresForeignKeysQuery = `
SELECT k.column_name AS "from", ccu.table_name AS "table", ccu.column_name AS "to"
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage k
	ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
	ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
	AND tc.table_schema = current_schema() AND tc.table_name = $1
ORDER BY k.column_name`

func postgresTable(ctx context.Context, db *sqlx.DB, name string) (Table, error) {
	t := Table{Name: name, Columns: []Column{}, ForeignKeys: []ForeignKey{}}

	var cols []postgresColumn
	if err := db.SelectContext(ctx, &cols, postgresColumnsQuery, name); err != nil {
		return Table{}, fmt.Errorf("failed to query columns for %s: %w", name, err)
	}

	for _, c := range cols {
		col := Column{Name: c.Name, Type: c.Type, NotNull: c.Nullable == "NO", PrimaryKey: c.PrimaryKey}
		if c.Default.Valid {
			col.Default = &c.Default.String
		}

		t.Columns = append(t.Columns, col)
	}

	var fks []struct {
		From  string `db:"from"`
		Table string `db:"table"`
		To    string `db:"to"`
	}
	if err := db.SelectContext(ctx, &fks, postgresForeignKeysQuery, name); err != nil {
		return Table{}, fmt.Errorf("failed to query foreign keys for %s: %w", name, err)
	}

	for _, fk := range fks {
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey(fk))
	}

	return t, nil
}
