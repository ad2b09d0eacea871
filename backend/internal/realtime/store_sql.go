package realtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps nodes in the "nodes" table. It works on any sqlx driver
// whose bind type sqlx knows (sqlite3, pgx).
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var value string

	err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT value FROM nodes WHERE collection = ? AND key = ?`), collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}

	return []byte(value), nil
}

func (s *SQLStore) List(ctx context.Context, collection string) ([]Node, error) {
	rows := []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}{}

	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT key, value FROM nodes WHERE collection = ? ORDER BY key`), collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	nodes := make([]Node, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, Node{Key: r.Key, Value: []byte(r.Value)})
	}

	return nodes, nil
}

func (s *SQLStore) Put(ctx context.Context, collection, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO nodes (collection, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		collection, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}

	return nil
}

func (s *SQLStore) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM nodes WHERE collection = ? AND key = ?`), collection, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}

	return nil
}

func (s *SQLStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM nodes WHERE collection = ?`), collection); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}

	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
