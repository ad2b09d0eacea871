package utils

import "github.com/google/uuid"

// NewUUID returns a UUIDv7. Its text form sorts in creation order.
func NewUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
