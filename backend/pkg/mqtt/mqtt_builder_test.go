package mqtt

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

type reading struct {
	Temperature float64 `json:"temperature"`
}

func newTestBuilder(t *testing.T) *MQTTBuilder {
	t.Helper()

	mb, err := NewMQTTBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)), MQTTClientOptions{
		BrokerURL: "tcp://127.0.0.1:1",
		ClientID:  "test",
	})
	if err != nil {
		t.Fatal(err)
	}

	return mb
}

func noop(pahomqtt.Client, pahomqtt.Message) {}

func TestNewMQTTBuilderRequiresOptions(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := NewMQTTBuilder(l, MQTTClientOptions{ClientID: "x"}); err == nil {
		t.Error("missing broker URL accepted")
	}
	if _, err := NewMQTTBuilder(l, MQTTClientOptions{BrokerURL: "tcp://h:1883"}); err == nil {
		t.Error("missing client ID accepted")
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		run     func(mb *MQTTBuilder) error
		wantErr string
	}{
		{
			name: "duplicate id",
			run: func(mb *MQTTBuilder) error {
				return mb.RegisterPublish("owners/{ownerKey}/alerts", PublicationSpec{
					OperationID: "telemetry", Summary: "s", Group: "g", MessageType: reading{},
					TopicParameters: []TopicParameter{{Name: "ownerKey", Description: "Owner"}},
				})
			},
			wantErr: "duplicate operationID",
		},
		{
			name: "missing handler",
			run: func(mb *MQTTBuilder) error {
				return mb.RegisterSubscribe("devices/status", SubscriptionSpec{
					OperationID: "status", Summary: "s", Group: "g", MessageType: reading{},
				})
			},
			wantErr: "handler is required",
		},
		{
			name: "missing message type",
			run: func(mb *MQTTBuilder) error {
				return mb.RegisterPublish("devices/status", PublicationSpec{OperationID: "status", Summary: "s", Group: "g"})
			},
			wantErr: "messageType is required",
		},
		{
			name: "after connect",
			run: func(mb *MQTTBuilder) error {
				mb.runConnectOnce.Store(true)
				return mb.RegisterPublish("devices/status", PublicationSpec{
					OperationID: "status", Summary: "s", Group: "g", MessageType: reading{},
				})
			},
			wantErr: "after connecting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mb := newTestBuilder(t)
			mb.MustRegisterSubscribe("devices/{deviceKey}/telemetry", SubscriptionSpec{
				OperationID: "telemetry", Summary: "s", Group: "g", MessageType: reading{}, Handler: noop,
				TopicParameters: []TopicParameter{{Name: "deviceKey", Description: "Device"}},
			})

			err := tt.run(mb)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestOperations(t *testing.T) {
	t.Parallel()

	mb := newTestBuilder(t)
	mb.MustRegisterSubscribe("devices/{deviceKey}/telemetry", SubscriptionSpec{
		OperationID: "telemetry", Summary: "s", Group: "Ingest", MessageType: reading{}, Handler: noop,
		TopicParameters: []TopicParameter{{Name: "deviceKey", Description: "Device"}},
	})
	mb.MustRegisterPublish("owners/{ownerKey}/alerts", PublicationSpec{
		OperationID: "alert", Summary: "s", Group: "Alerts", MessageType: reading{}, QoS: QoSAtLeastOnce,
		TopicParameters: []TopicParameter{{Name: "ownerKey", Description: "Owner"}},
	})

	ops := mb.Operations()
	if len(ops) != 2 || ops[0].OperationID != "alert" || ops[1].OperationID != "telemetry" {
		t.Fatalf("unexpected operations %+v", ops)
	}
	if ops[0].Direction != DirectionPublish || ops[0].TopicMQTT != "owners/+/alerts" || ops[0].QoS != QoSAtLeastOnce {
		t.Errorf("unexpected publication %+v", ops[0])
	}
	if ops[1].Direction != DirectionSubscribe || ops[1].TopicMQTT != "devices/+/telemetry" {
		t.Errorf("unexpected subscription %+v", ops[1])
	}

	if err := mb.Client().Publish("telemetry", "devices/d1/telemetry", reading{}); err == nil {
		t.Error("publishing on a subscription id succeeded")
	}
	if err := mb.Client().Publish("missing", "x", reading{}); err == nil {
		t.Error("publishing on an unknown id succeeded")
	}
}
