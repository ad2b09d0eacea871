package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"redalert/backend/internal/realtime"
)

// ErrOwnerNotFound is returned when no device is registered under the key.
var ErrOwnerNotFound = errors.New("owner not found")

// ErrEmptyDispatch is returned when an update changes nothing.
var ErrEmptyDispatch = errors.New("no field to update")

// OwnerStore is the part of the realtime gateway responders write through.
type OwnerStore interface {
	ReadOnce(ctx context.Context, path string) (realtime.Snapshot, error)
	Update(ctx context.Context, path string, fields map[string]any) error
}

// Dispatch is a responder status change. Allowed false means BFP is
// responding; Arrived true means BFP is on site.
type Dispatch struct {
	Allowed *bool `json:"allowed,omitempty"`
	Arrived *bool `json:"arrived,omitempty"`
}

// ResponderService lets fire brigade responders flag an owner's device.
type ResponderService struct {
	l  *slog.Logger
	db OwnerStore
}

func NewResponderService(l *slog.Logger, db OwnerStore) *ResponderService {
	return &ResponderService{
		l:  l.With(slog.String("service", "responder")),
		db: db,
	}
}

// Dispatch writes the set fields of d to Owner/{ownerKey}.
func (s *ResponderService) Dispatch(ctx context.Context, ownerKey string, d Dispatch) error {
	fields := map[string]any{}
	if d.Allowed != nil {
		fields["allowed"] = *d.Allowed
	}
	if d.Arrived != nil {
		fields["arrived"] = *d.Arrived
	}

	if len(fields) == 0 {
		return ErrEmptyDispatch
	}

	path := realtime.Child(realtime.CollectionOwner, ownerKey)

	snap, err := s.db.ReadOnce(ctx, path)
	if err != nil {
		return fmt.Errorf("read owner: %w", err)
	}

	if !snap.Exists() {
		return ErrOwnerNotFound
	}

	if err := s.db.Update(ctx, path, fields); err != nil {
		return fmt.Errorf("update owner: %w", err)
	}

	s.l.Info("Responder dispatch recorded", slog.String("ownerKey", ownerKey), slog.Any("fields", fields))

	return nil
}
