// Package session keeps authenticated owner sessions and the bearer tokens
// that reference them.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, expired or revoked sessions.
var ErrNotFound = errors.New("session not found")

// Session binds a login to an owner device.
type Session struct {
	ID        string    `json:"id"`
	OwnerKey  string    `json:"ownerKey"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists sessions server side so logout revokes immediately.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
