package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"redalert/backend/internal/mqtt/types"
	"redalert/backend/internal/realtime"
	"redalert/backend/pkg/mqtt"
	"redalert/backend/pkg/utils"
)

const (
	telemetryTopic = "devices/{deviceKey}/telemetry"
	summaryTopic   = "devices/{deviceKey}/summary"
)

var deviceKeyParameter = mqtt.TopicParameter{
	Name:        "deviceKey",
	Description: "Sanitized model number the device was registered with",
}

// RegisterTelemetrySubscribe registers the telemetry subscription operation.
func (h *Handler) RegisterTelemetrySubscribe(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterSubscribe(telemetryTopic, mqtt.SubscriptionSpec{
		OperationID:     "subscribeTelemetry",
		Summary:         "Device telemetry",
		Description:     "Sensor readings. Each reading updates Owner/{deviceKey} and is appended to Logs.",
		Group:           "Devices",
		TopicParameters: []mqtt.TopicParameter{deviceKeyParameter},
		MessageType: types.Telemetry{
			Temperature: 31.5,
			Smoke:       42,
			Latitude:    utils.Ptr(14.2),
			Longitude:   utils.Ptr(120.9),
		},
		Handler: h.handleTelemetry,
		QoS:     mqtt.QoSAtLeastOnce,
	})
}

// RegisterSummarySubscribe registers the summary subscription operation.
func (h *Handler) RegisterSummarySubscribe(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterSubscribe(summaryTopic, mqtt.SubscriptionSpec{
		OperationID:     "subscribeSummary",
		Summary:         "Device summary",
		Description:     "Aggregated value for one reporting window, appended to LogsCV.",
		Group:           "Devices",
		TopicParameters: []mqtt.TopicParameter{deviceKeyParameter},
		MessageType:     types.Summary{CombinedValue: 3.5},
		Handler:         h.handleSummary,
		QoS:             mqtt.QoSAtLeastOnce,
	})
}

// handleTelemetry handles incoming sensor readings.
func (h *Handler) handleTelemetry(_ pahomqtt.Client, msg pahomqtt.Message) {
	deviceKey := mqtt.TopicParam(telemetryTopic, msg.Topic(), "deviceKey")

	var t types.Telemetry
	if err := json.Unmarshal(msg.Payload(), &t); err != nil {
		h.l.Error("Failed to unmarshal telemetry", slog.String("topic", msg.Topic()), utils.ErrAttr(err))
		return
	}

	h.enqueue(job{deviceKey: deviceKey, kind: "telemetry", run: func(ctx context.Context, deviceKey string) error {
		return h.ApplyTelemetry(ctx, deviceKey, t)
	}})
}

// handleSummary handles incoming summaries.
func (h *Handler) handleSummary(_ pahomqtt.Client, msg pahomqtt.Message) {
	deviceKey := mqtt.TopicParam(summaryTopic, msg.Topic(), "deviceKey")

	var s types.Summary
	if err := json.Unmarshal(msg.Payload(), &s); err != nil {
		h.l.Error("Failed to unmarshal summary", slog.String("topic", msg.Topic()), utils.ErrAttr(err))
		return
	}

	h.enqueue(job{deviceKey: deviceKey, kind: "summary", run: func(ctx context.Context, deviceKey string) error {
		return h.ApplySummary(ctx, deviceKey, s)
	}})
}

// ApplyTelemetry updates the owner record and appends a log entry.
func (h *Handler) ApplyTelemetry(ctx context.Context, deviceKey string, t types.Telemetry) error {
	userID, err := h.ownerUserID(ctx, deviceKey)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"Temperature": t.Temperature,
		"Smoke":       t.Smoke,
		"Fire":        t.Fire,
	}

	if t.Latitude != nil && t.Longitude != nil {
		fields["latitude"] = *t.Latitude
		fields["longitude"] = *t.Longitude
	}

	if err := h.db.Update(ctx, realtime.Child(realtime.CollectionOwner, deviceKey), fields); err != nil {
		return fmt.Errorf("update owner: %w", err)
	}

	entry := map[string]any{
		"UserID":      userID,
		"Temperature": t.Temperature,
		"Smoke":       t.Smoke,
		"Fire":        t.Fire,
	}

	key, err := h.db.Push(ctx, realtime.CollectionLogs, entry)
	if err != nil {
		return fmt.Errorf("push log: %w", err)
	}

	h.l.Debug("Telemetry stored", slog.String("deviceKey", deviceKey), slog.String("logKey", key), slog.Bool("fire", t.Fire))

	return nil
}

// ApplySummary appends a summary entry.
func (h *Handler) ApplySummary(ctx context.Context, deviceKey string, s types.Summary) error {
	userID, err := h.ownerUserID(ctx, deviceKey)
	if err != nil {
		return err
	}

	entry := map[string]any{
		"UserID":        userID,
		"CombinedValue": s.CombinedValue,
	}

	if _, err := h.db.Push(ctx, realtime.CollectionLogsCV, entry); err != nil {
		return fmt.Errorf("push summary: %w", err)
	}

	return nil
}
