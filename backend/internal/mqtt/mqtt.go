// Package mqtt ingests device telemetry from the broker into the realtime
// database.
package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"redalert/backend/internal/realtime"
	"redalert/backend/pkg/utils"
)

const queueSize = 256

// ErrUnknownDevice is returned for readings from devices with no owner record.
var ErrUnknownDevice = errors.New("unknown device")

// Database is the part of the realtime database ingest writes to.
type Database interface {
	ReadOnce(ctx context.Context, path string) (realtime.Snapshot, error)
	Update(ctx context.Context, path string, fields map[string]any) error
	Push(ctx context.Context, collection string, value any) (string, error)
}

type job struct {
	deviceKey string
	run       func(ctx context.Context, deviceKey string) error
	kind      string
}

// Handler handles MQTT message processing. Broker callbacks only enqueue;
// a single worker applies messages in arrival order.
type Handler struct {
	l  *slog.Logger
	db Database

	queue chan job
	wg    sync.WaitGroup
}

// NewMQTTHandler creates a new MQTT handler.
func NewMQTTHandler(l *slog.Logger, db Database) *Handler {
	return &Handler{
		l:     l.With(slog.String("component", "mqtt-handler")),
		db:    db,
		queue: make(chan job, queueSize),
	}
}

// Start runs the worker until ctx is done.
func (h *Handler) Start(ctx context.Context) {
	h.wg.Add(1)

	go func() {
		defer h.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case j := <-h.queue:
				if err := j.run(ctx, j.deviceKey); err != nil {
					h.l.Warn("Dropping device message", slog.String("kind", j.kind), slog.String("deviceKey", j.deviceKey), utils.ErrAttr(err))
				}
			}
		}
	}()
}

// Wait blocks until the worker has exited.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// enqueue never blocks; a full queue drops the message.
func (h *Handler) enqueue(j job) {
	select {
	case h.queue <- j:
	default:
		h.l.Warn("Ingest queue full, dropping message", slog.String("kind", j.kind), slog.String("deviceKey", j.deviceKey))
	}
}

// ownerUserID returns the userId of the device's owner record.
func (h *Handler) ownerUserID(ctx context.Context, deviceKey string) (string, error) {
	snap, err := h.db.ReadOnce(ctx, realtime.Child(realtime.CollectionOwner, deviceKey))
	if err != nil {
		return "", err
	}

	if !snap.Exists() {
		return "", ErrUnknownDevice
	}

	var owner struct {
		UserID string `json:"userId"`
	}

	if err := snap.Decode(&owner); err != nil {
		return "", err
	}

	return owner.UserID, nil
}
