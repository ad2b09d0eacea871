package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"redalert/backend/pkg/mqtt"
	"redalert/backend/pkg/utils"
)

// MQTT operations published by MQTTNotifier.
const (
	PublishChannelOperation = "publishNotificationChannel"
	PublishAlertOperation   = "publishAlert"
)

// AlertMessage is the payload on owners/{ownerKey}/alerts.
type AlertMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	FireAt    time.Time `json:"fireAt"`
}

// RegisterPublications documents the notifier topics on mb.
func RegisterPublications(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterPublish("owners/{ownerKey}/channels/{channelId}", mqtt.PublicationSpec{
		OperationID: PublishChannelOperation,
		Summary:     "Notification channel",
		Description: "Retained channel configuration the owner's device must create before showing alerts.",
		Group:       "Alerts",
		TopicParameters: []mqtt.TopicParameter{
			{Name: "ownerKey", Description: "Device key of the owner"},
			{Name: "channelId", Description: "Channel identifier"},
		},
		MessageType: AlarmChannel,
		QoS:         mqtt.QoSAtLeastOnce,
		Retained:    true,
	})

	mb.MustRegisterPublish("owners/{ownerKey}/alerts", mqtt.PublicationSpec{
		OperationID: PublishAlertOperation,
		Summary:     "Owner alert",
		Description: "One-shot alert, published when it is due.",
		Group:       "Alerts",
		TopicParameters: []mqtt.TopicParameter{
			{Name: "ownerKey", Description: "Device key of the owner"},
		},
		MessageType: AlertMessage{ID: "01954f3c-8a2e-7c1b-9d4e-2f6a8b0c1d3e", ChannelID: AlarmChannel.ID, Title: TitleRedAlert, Body: BodyHouseOnFire},
		QoS:         mqtt.QoSAtLeastOnce,
	})
}

type publisher interface {
	Publish(operationID string, topic string, payload any) error
}

// MQTTNotifier publishes channels and due alerts through the broker.
type MQTTNotifier struct {
	pub publisher
	l   *slog.Logger
	now func() time.Time

	mu       sync.Mutex
	closed   bool
	channels map[string]struct{}
	pending  map[string]*time.Timer
}

func NewMQTTNotifier(l *slog.Logger, pub publisher) *MQTTNotifier {
	return &MQTTNotifier{
		pub:      pub,
		l:        l.With(slog.String("component", "mqtt-notifier")),
		now:      time.Now,
		channels: map[string]struct{}{},
		pending:  map[string]*time.Timer{},
	}
}

func channelTopic(ownerKey, channelID string) string {
	return "owners/" + ownerKey + "/channels/" + channelID
}

func alertTopic(ownerKey string) string {
	return "owners/" + ownerKey + "/alerts"
}

// CreateChannel publishes cfg once per owner and channel id. The publish runs
// outside the notifier lock so scheduling is never held up by the broker.
func (n *MQTTNotifier) CreateChannel(_ context.Context, ownerKey string, cfg ChannelConfig) (string, error) {
	topic := channelTopic(ownerKey, cfg.ID)

	n.mu.Lock()
	_, created := n.channels[topic]
	closed := n.closed
	n.mu.Unlock()

	if closed {
		return "", ErrClosed
	}

	if created {
		return cfg.ID, nil
	}

	// Retained, so a concurrent second publish only repeats the same config.
	if err := n.pub.Publish(PublishChannelOperation, topic, cfg); err != nil {
		return "", fmt.Errorf("create channel %s: %w", cfg.ID, err)
	}

	n.mu.Lock()
	n.channels[topic] = struct{}{}
	n.mu.Unlock()

	return cfg.ID, nil
}

// ScheduleAlert holds the alert until fireAt. Alerts already due are
// published on the next timer tick.
func (n *MQTTNotifier) ScheduleAlert(_ context.Context, ownerKey, channelID string, fireAt time.Time, title, body string) error {
	msg := AlertMessage{
		ID:        utils.NewUUID(),
		ChannelID: channelID,
		Title:     title,
		Body:      body,
		FireAt:    fireAt.UTC(),
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	n.pending[msg.ID] = time.AfterFunc(max(fireAt.Sub(n.now()), 0), func() {
		n.fire(ownerKey, msg)
	})

	return nil
}

func (n *MQTTNotifier) fire(ownerKey string, msg AlertMessage) {
	n.mu.Lock()
	_, ok := n.pending[msg.ID]
	delete(n.pending, msg.ID)
	n.mu.Unlock()

	if !ok {
		return
	}

	if err := n.pub.Publish(PublishAlertOperation, alertTopic(ownerKey), msg); err != nil {
		n.l.Warn("Failed to publish alert", slog.String("ownerKey", ownerKey), utils.ErrAttr(err))
		return
	}

	n.l.Debug("Alert published", slog.String("ownerKey", ownerKey), slog.String("id", msg.ID))
}

// Pending returns the number of alerts not yet published.
func (n *MQTTNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.pending)
}

// Close cancels every pending alert. Later calls fail with ErrClosed.
func (n *MQTTNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	cancelled := len(n.pending)

	for id, t := range n.pending {
		t.Stop()
		delete(n.pending, id)
	}

	n.l.Info("Notifier closed", slog.Int("cancelled", cancelled))
}
