package services

import (
	"context"
	"log/slog"

	"redalert/backend/pkg/utils"
)

// Pinger is a dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connection reports whether a long-lived connection is up.
type Connection interface {
	IsConnected() bool
}

type CoreService struct {
	l        *slog.Logger
	mqtt     Connection
	db       Pinger
	sessions Pinger
}

func NewCoreService(l *slog.Logger, mqtt Connection, db, sessions Pinger) *CoreService {
	return &CoreService{
		l:        l.With(slog.String("service", "core")),
		mqtt:     mqtt,
		db:       db,
		sessions: sessions,
	}
}

type HealthStatus struct {
	Database bool
	MQTT     bool
	Sessions bool
}

// Healthy is true when every dependency is reachable.
func (h HealthStatus) Healthy() bool {
	return h.Database && h.MQTT && h.Sessions
}

func (s *CoreService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Database: true,
		MQTT:     true,
		Sessions: true,
	}

	if err := s.db.Ping(ctx); err != nil {
		s.l.Error("database unreachable", utils.ErrAttr(err))
		status.Database = false
	}

	if !s.mqtt.IsConnected() {
		s.l.Error("mqtt broker unreachable")
		status.MQTT = false
	}

	if err := s.sessions.Ping(ctx); err != nil {
		s.l.Error("session store unreachable", utils.ErrAttr(err))
		status.Sessions = false
	}

	return status
}
