package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"redalert/backend/internal/mqtt/types"
	"redalert/backend/internal/realtime"
	"redalert/backend/pkg/utils"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func newTestHandler(t *testing.T) (*Handler, *realtime.Gateway) {
	t.Helper()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := realtime.NewGateway(l, realtime.NewMemoryStore(), realtime.NewMemoryBus())

	if err := gw.Write(context.Background(), "Owner/DEV1", map[string]any{
		"userId": "u1", "latitude": "14.2", "longitude": "120.9", "allowed": true, "arrived": true,
	}); err != nil {
		t.Fatal(err)
	}

	return NewMQTTHandler(l, gw), gw
}

func decodeChild[T any](t *testing.T, gw *realtime.Gateway, path string) T {
	t.Helper()

	snap, err := gw.ReadOnce(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	var v T
	if err := snap.Decode(&v); err != nil {
		t.Fatal(err)
	}

	return v
}

func TestApplyTelemetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, gw := newTestHandler(t)

	err := h.ApplyTelemetry(ctx, "DEV1", types.Telemetry{Temperature: 31, Smoke: 160, Fire: true})
	if err != nil {
		t.Fatal(err)
	}

	owner := decodeChild[map[string]any](t, gw, "Owner/DEV1")
	if owner["Temperature"] != 31.0 || owner["Smoke"] != 160.0 || owner["Fire"] != true {
		t.Errorf("owner readings = %v", owner)
	}
	if owner["latitude"] != "14.2" || owner["arrived"] != true {
		t.Errorf("owner fields not preserved: %v", owner)
	}

	logs, err := gw.ReadOnce(ctx, realtime.CollectionLogs)
	if err != nil {
		t.Fatal(err)
	}

	children := logs.Children()
	if len(children) != 1 {
		t.Fatalf("logs = %d, want 1", len(children))
	}

	var entry map[string]any
	if err := children[0].Decode(&entry); err != nil {
		t.Fatal(err)
	}
	if entry["UserID"] != "u1" || entry["Temperature"] != 31.0 || entry["Fire"] != true {
		t.Errorf("log entry = %v", entry)
	}

	withGPS := types.Telemetry{Temperature: 30, Latitude: utils.Ptr(14.5), Longitude: utils.Ptr(121.0)}
	if err := h.ApplyTelemetry(ctx, "DEV1", withGPS); err != nil {
		t.Fatal(err)
	}

	owner = decodeChild[map[string]any](t, gw, "Owner/DEV1")
	if owner["latitude"] != 14.5 || owner["longitude"] != 121.0 {
		t.Errorf("coordinates not updated: %v", owner)
	}
}

func TestApplyUnknownDevice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, gw := newTestHandler(t)

	if err := h.ApplyTelemetry(ctx, "GHOST", types.Telemetry{}); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("ApplyTelemetry(unknown) = %v", err)
	}
	if err := h.ApplySummary(ctx, "GHOST", types.Summary{}); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("ApplySummary(unknown) = %v", err)
	}

	if snap, _ := gw.ReadOnce(ctx, "Owner/GHOST"); snap.Exists() {
		t.Error("unknown device record created")
	}
}

func TestHandlersEnqueue(t *testing.T) {
	t.Parallel()

	h, gw := newTestHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)

	h.handleTelemetry(nil, fakeMessage{topic: "devices/DEV1/telemetry", payload: []byte(`{"temperature":29,"smoke":10,"fire":false}`)})
	h.handleSummary(nil, fakeMessage{topic: "devices/DEV1/summary", payload: []byte(`{"combinedValue":4.5}`)})
	h.handleTelemetry(nil, fakeMessage{topic: "devices/DEV1/telemetry", payload: []byte(`not json`)})

	deadline := time.Now().Add(2 * time.Second)
	for {
		logs, _ := gw.ReadOnce(context.Background(), realtime.CollectionLogs)
		summaries, _ := gw.ReadOnce(context.Background(), realtime.CollectionLogsCV)

		if len(logs.Children()) == 1 && len(summaries.Children()) == 1 {
			var s map[string]any
			if err := summaries.Children()[0].Decode(&s); err != nil {
				t.Fatal(err)
			}
			if s["UserID"] != "u1" || s["CombinedValue"] != 4.5 {
				t.Errorf("summary entry = %v", s)
			}

			break
		}

		if time.Now().After(deadline) {
			t.Fatal("messages not applied")
		}

		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	h.Wait()
}
