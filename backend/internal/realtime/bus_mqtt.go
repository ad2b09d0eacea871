package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"redalert/backend/pkg/mqtt"
	"redalert/backend/pkg/utils"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// PublishValueOperation is the MQTT publication used for database values.
const PublishValueOperation = "publishDatabaseValue"

// RegisterPublications documents the retained value topics on mb.
func RegisterPublications(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterPublish("rtdb/{collection}/{key}", mqtt.PublicationSpec{
		OperationID: PublishValueOperation,
		Summary:     "Database value",
		Description: "Retained JSON value of a child. The same operation also carries whole collections on rtdb/{collection}. A null payload means the value was removed.",
		Group:       "Realtime",
		TopicParameters: []mqtt.TopicParameter{
			{Name: "collection", Description: "Collection name (Owner, Logs, LogsCV)"},
			{Name: "key", Description: "Child key"},
		},
		MessageType: json.RawMessage{},
		QoS:         mqtt.QoSAtLeastOnce,
		Retained:    true,
	})
}

type mqttConn interface {
	Publish(operationID string, topic string, payload any) error
	Subscribe(topic string, qos mqtt.QoS, handler pahomqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTBus fans retained values out through the broker. Each topic is
// subscribed once and shared by all local listeners.
type MQTTBus struct {
	conn mqttConn
	l    *slog.Logger

	mu     sync.Mutex
	topics map[string]*topicState
}

type topicState struct {
	// op serializes broker subscribe and unsubscribe calls for the topic.
	op sync.Mutex

	mu         sync.Mutex
	subscribed bool
	last       []byte
	nextID     int
	listeners  map[int]func([]byte)
}

func NewMQTTBus(l *slog.Logger, conn mqttConn) *MQTTBus {
	return &MQTTBus{
		conn:   conn,
		l:      l.With(slog.String("component", "realtime-bus")),
		topics: map[string]*topicState{},
	}
}

func (b *MQTTBus) Publish(_ context.Context, topic string, payload []byte) error {
	if err := b.conn.Publish(PublishValueOperation, topic, json.RawMessage(payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

func (b *MQTTBus) state(topic string) *topicState {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.topics[topic]
	if !ok {
		st = &topicState{listeners: map[int]func([]byte){}}
		b.topics[topic] = st
	}

	return st
}

func (b *MQTTBus) Subscribe(topic string, fn func([]byte)) (func(), error) {
	st := b.state(topic)

	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.listeners[id] = fn

	if st.last != nil {
		fn(slices.Clone(st.last))
	}
	st.mu.Unlock()

	if err := b.reconcile(topic, st); err != nil {
		st.mu.Lock()
		delete(st.listeners, id)
		st.mu.Unlock()

		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	var once sync.Once

	return func() {
		once.Do(func() { b.release(topic, st, id) })
	}, nil
}

func (b *MQTTBus) release(topic string, st *topicState, id int) {
	st.mu.Lock()
	delete(st.listeners, id)
	st.mu.Unlock()

	if err := b.reconcile(topic, st); err != nil {
		b.l.Warn("Failed to unsubscribe", slog.String("topic", topic), utils.ErrAttr(err))
	}
}

// reconcile brings the broker subscription in line with the listener set. A
// listener that arrives while an unsubscribe is in flight is picked up by
// its own sync once that call returns.
func (b *MQTTBus) reconcile(topic string, st *topicState) error {
	st.op.Lock()
	defer st.op.Unlock()

	st.mu.Lock()
	want := len(st.listeners) > 0
	have := st.subscribed
	st.mu.Unlock()

	switch {
	case want && !have:
		if err := b.conn.Subscribe(topic, mqtt.QoSAtLeastOnce, b.handler(st)); err != nil {
			return err
		}

		st.mu.Lock()
		st.subscribed = true
		st.mu.Unlock()
	case !want && have:
		err := b.conn.Unsubscribe(topic)

		st.mu.Lock()
		st.subscribed = false
		st.last = nil
		st.mu.Unlock()

		if err != nil {
			return err
		}
	}

	return nil
}

func (b *MQTTBus) handler(st *topicState) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		payload := msg.Payload()

		st.mu.Lock()
		defer st.mu.Unlock()

		st.last = slices.Clone(payload)
		for _, fn := range st.listeners {
			fn(slices.Clone(payload))
		}
	}
}
