package realtime

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no value exists at a path.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath is returned for malformed paths.
	ErrInvalidPath = errors.New("invalid path")
)

// Node is one stored child value.
type Node struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

// Store persists child values grouped by collection.
type Store interface {
	// Get returns ErrNotFound when the child is absent.
	Get(ctx context.Context, collection, key string) ([]byte, error)
	// List returns every child of collection in ascending key order.
	List(ctx context.Context, collection string) ([]Node, error)
	Put(ctx context.Context, collection, key string, value []byte) error
	Delete(ctx context.Context, collection, key string) error
	DeleteCollection(ctx context.Context, collection string) error
	Ping(ctx context.Context) error
}
