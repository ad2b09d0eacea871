package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"redalert/backend/pkg/utils"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTBuilder records the documented publications and subscriptions and owns
// the broker connection. Registration closes once Connect has been called.
type MQTTBuilder struct {
	client        pahomqtt.Client
	wrappedClient *MQTTClient
	l             *slog.Logger
	operations    map[string]Operation
	subscriptions []*SubscriptionSpec

	dynamicMu sync.Mutex
	dynamic   map[string]dynamicSub

	connected      atomic.Bool
	runConnectOnce atomic.Bool
}

type dynamicSub struct {
	qos     QoS
	handler pahomqtt.MessageHandler
}

// MQTTClientOptions contains configuration for creating an MQTT client.
type MQTTClientOptions struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// NewMQTTBuilder creates a new MQTT builder with the given broker configuration.
func NewMQTTBuilder(l *slog.Logger, opts MQTTClientOptions) (*MQTTBuilder, error) {
	l = l.With(slog.String("component", "mqtt-builder"))

	if opts.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}

	if opts.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	mb := &MQTTBuilder{
		l:          l,
		operations: make(map[string]Operation),
		dynamic:    make(map[string]dynamicSub),
	}

	clientOpts := pahomqtt.NewClientOptions()
	clientOpts.AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}

	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	// Retry every 5 seconds, max interval 15 seconds
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectTimeout(5 * time.Second)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.SetMaxReconnectInterval(15 * time.Second)
	clientOpts.SetKeepAlive(30 * time.Second)

	clientOpts.SetOnConnectHandler(mb.onConnect)
	clientOpts.SetConnectionLostHandler(mb.onConnectionLost)
	clientOpts.SetReconnectingHandler(mb.onReconnecting)

	mb.client = pahomqtt.NewClient(clientOpts)
	mb.wrappedClient = &MQTTClient{
		client:  mb.client,
		builder: mb,
	}

	l.Info("MQTT builder created", slog.String("broker", opts.BrokerURL), slog.String("clientID", opts.ClientID))

	return mb, nil
}

// Client returns the wrapped MQTT client.
func (mb *MQTTBuilder) Client() *MQTTClient {
	return mb.wrappedClient
}

// IsConnected reports whether the broker connection is currently up.
func (mb *MQTTBuilder) IsConnected() bool {
	return mb.connected.Load()
}

// register validates op against the shared rules and records it.
func (mb *MQTTBuilder) register(op Operation, messageType any) error {
	if mb.runConnectOnce.Load() {
		return errors.New("cannot register operations after connecting to MQTT broker")
	}

	if err := validateTopicPattern(op.Topic); err != nil {
		return fmt.Errorf("invalid topic pattern: %w", err)
	}

	if _, exists := mb.operations[op.OperationID]; exists {
		return fmt.Errorf("duplicate operationID: %s", op.OperationID)
	}

	if err := validateCommon(op.OperationID, op.Summary, op.Group, messageType, op.QoS); err != nil {
		return fmt.Errorf("invalid %s spec: %w", op.Direction, err)
	}

	if err := validateParameters(op.Topic, op.Parameters); err != nil {
		return fmt.Errorf("invalid %s %s: %w", op.Direction, op.OperationID, err)
	}

	mb.operations[op.OperationID] = op

	mb.l.Info("Registered MQTT operation",
		slog.String("operationID", op.OperationID),
		slog.String("direction", op.Direction),
		slog.String("topic", op.Topic),
		slog.String("group", op.Group),
	)

	return nil
}

// RegisterPublish registers a publication operation.
func (mb *MQTTBuilder) RegisterPublish(topic string, spec PublicationSpec) error {
	spec.TopicMQTT = convertTopicToMQTT(topic)

	return mb.register(Operation{
		OperationID: spec.OperationID,
		Direction:   DirectionPublish,
		Topic:       topic,
		TopicMQTT:   spec.TopicMQTT,
		Summary:     spec.Summary,
		Description: spec.Description,
		Group:       spec.Group,
		QoS:         spec.QoS,
		Retained:    spec.Retained,
		Parameters:  spec.TopicParameters,
	}, spec.MessageType)
}

// MustRegisterPublish registers a publication operation and terminates the program if an error occurs.
func (mb *MQTTBuilder) MustRegisterPublish(topic string, spec PublicationSpec) {
	mb.must(mb.RegisterPublish(topic, spec), spec.OperationID, topic)
}

// RegisterSubscribe registers a subscription operation. Subscriptions are
// (re)established on every connect.
func (mb *MQTTBuilder) RegisterSubscribe(topic string, spec SubscriptionSpec) error {
	if spec.Handler == nil {
		return errors.New("invalid subscribe spec: handler is required")
	}

	spec.TopicMQTT = convertTopicToMQTT(topic)

	err := mb.register(Operation{
		OperationID: spec.OperationID,
		Direction:   DirectionSubscribe,
		Topic:       topic,
		TopicMQTT:   spec.TopicMQTT,
		Summary:     spec.Summary,
		Description: spec.Description,
		Group:       spec.Group,
		QoS:         spec.QoS,
		Parameters:  spec.TopicParameters,
	}, spec.MessageType)
	if err != nil {
		return err
	}

	mb.subscriptions = append(mb.subscriptions, &spec)

	return nil
}

// MustRegisterSubscribe registers a subscription operation and terminates the program if an error occurs.
func (mb *MQTTBuilder) MustRegisterSubscribe(topic string, spec SubscriptionSpec) {
	mb.must(mb.RegisterSubscribe(topic, spec), spec.OperationID, topic)
}

func (mb *MQTTBuilder) must(err error, operationID, topic string) {
	if err == nil {
		return
	}

	mb.l.Error("Failed to register MQTT operation", slog.String("operationID", operationID), slog.String("topic", topic), utils.ErrAttr(err))
	os.Exit(1)
}

// Operations lists every registered operation sorted by operation id.
func (mb *MQTTBuilder) Operations() []Operation {
	ops := make([]Operation, 0, len(mb.operations))
	for _, op := range mb.operations {
		ops = append(ops, op)
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].OperationID < ops[j].OperationID })

	return ops
}

// Connect connects to the MQTT broker, blocking until the first connection succeeds.
func (mb *MQTTBuilder) Connect() error {
	mb.runConnectOnce.Store(true)

	mb.l.Info("Connecting to MQTT broker... Will wait indefinitely for connection to complete")

	token := mb.client.Connect()

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if mb.client.IsConnectionOpen() {
					return
				}
				mb.l.Warn("MQTT has not done an initial connection yet, still waiting...")
			}
		}
	}()

	token.Wait()

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	mb.l.Info("Connected to MQTT broker")

	return nil
}

// Disconnect disconnects from the MQTT broker.
func (mb *MQTTBuilder) Disconnect() {
	if !mb.client.IsConnected() {
		return
	}

	mb.l.Info("Disconnecting from MQTT broker...")
	mb.client.Disconnect(250) // 250ms grace period
	mb.connected.Store(false)
	mb.l.Info("Disconnected from MQTT broker")
}

func (mb *MQTTBuilder) onConnect(client pahomqtt.Client) {
	mb.l.Info("Connected to MQTT broker, subscribing to topics", slog.Int("subscriptionCount", len(mb.subscriptions)))
	mb.connected.Store(true)

	for _, spec := range mb.subscriptions {
		token := client.Subscribe(spec.TopicMQTT, byte(spec.QoS), spec.Handler)
		token.Wait()

		if err := token.Error(); err != nil {
			mb.l.Error("Failed to subscribe", slog.String("topic", spec.TopicMQTT), slog.String("operationID", spec.OperationID), utils.ErrAttr(err))
			continue
		}

		mb.l.Info("Subscribed", slog.String("topic", spec.TopicMQTT), slog.String("operationID", spec.OperationID))
	}

	mb.dynamicMu.Lock()
	defer mb.dynamicMu.Unlock()

	for topic, sub := range mb.dynamic {
		token := client.Subscribe(topic, byte(sub.qos), sub.handler)
		token.Wait()

		if err := token.Error(); err != nil {
			mb.l.Error("Failed to restore subscription", slog.String("topic", topic), utils.ErrAttr(err))
		}
	}
}

func (mb *MQTTBuilder) onConnectionLost(_ pahomqtt.Client, err error) {
	mb.l.Warn("Connection to MQTT broker lost", utils.ErrAttr(err))
	mb.connected.Store(false)
}

func (mb *MQTTBuilder) onReconnecting(_ pahomqtt.Client, opts *pahomqtt.ClientOptions) {
	mb.l.Info("Reconnecting to MQTT broker", slog.String("broker", opts.Servers[0].String()))
}
