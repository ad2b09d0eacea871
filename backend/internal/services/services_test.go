package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"redalert/backend/internal/realtime"
	"redalert/backend/pkg/utils"
)

type fakeConn bool

func (c fakeConn) IsConnected() bool { return bool(c) }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	down := errors.New("down")

	tests := []struct {
		name     string
		mqtt     bool
		db       error
		sessions error
		want     HealthStatus
	}{
		{name: "all up", mqtt: true, want: HealthStatus{Database: true, MQTT: true, Sessions: true}},
		{name: "database down", mqtt: true, db: down, want: HealthStatus{MQTT: true, Sessions: true}},
		{name: "broker down", want: HealthStatus{Database: true, Sessions: true}},
		{name: "redis down", mqtt: true, sessions: down, want: HealthStatus{Database: true, MQTT: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewCoreService(discard(), fakeConn(tt.mqtt), fakePinger{tt.db}, fakePinger{tt.sessions})

			got := s.Health(context.Background())
			if got != tt.want {
				t.Errorf("Health() = %+v, want %+v", got, tt.want)
			}
			if got.Healthy() != (tt.want == HealthStatus{Database: true, MQTT: true, Sessions: true}) {
				t.Errorf("Healthy() = %v", got.Healthy())
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := realtime.NewGateway(discard(), realtime.NewMemoryStore(), realtime.NewMemoryBus())

	if err := gw.Write(ctx, "Owner/RA_01", map[string]any{"userId": "u1", "allowed": true, "arrived": false}); err != nil {
		t.Fatal(err)
	}

	s := NewResponderService(discard(), gw)

	tests := []struct {
		name     string
		ownerKey string
		dispatch Dispatch
		wantErr  error
		want     map[string]any
	}{
		{name: "responding", ownerKey: "RA_01", dispatch: Dispatch{Allowed: utils.Ptr(false)}, want: map[string]any{"allowed": false, "arrived": false}},
		{name: "arrived", ownerKey: "RA_01", dispatch: Dispatch{Arrived: utils.Ptr(true)}, want: map[string]any{"allowed": false, "arrived": true}},
		{name: "empty", ownerKey: "RA_01", wantErr: ErrEmptyDispatch},
		{name: "unknown owner", ownerKey: "RA_99", dispatch: Dispatch{Arrived: utils.Ptr(true)}, wantErr: ErrOwnerNotFound},
	}

	for _, tt := range tests {
		err := s.Dispatch(ctx, tt.ownerKey, tt.dispatch)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: Dispatch() error = %v, want %v", tt.name, err, tt.wantErr)
		}

		if tt.want == nil {
			continue
		}

		snap, err := gw.ReadOnce(ctx, "Owner/RA_01")
		if err != nil {
			t.Fatal(err)
		}

		var got map[string]any
		if err := snap.Decode(&got); err != nil {
			t.Fatal(err)
		}

		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("%s: %s = %v, want %v", tt.name, k, got[k], v)
			}
		}
		if got["userId"] != "u1" {
			t.Errorf("%s: update clobbered userId: %v", tt.name, got)
		}
	}
}
