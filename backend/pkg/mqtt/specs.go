package mqtt

import (
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// QoS represents MQTT quality of service levels.
type QoS byte

const (
	// QoSAtMostOnce means the message is delivered at most once, or it may not be delivered at all.
	QoSAtMostOnce QoS = 0
	// QoSAtLeastOnce means the message is always delivered at least once.
	QoSAtLeastOnce QoS = 1
	// QoSExactlyOnce means the message is always delivered exactly once.
	QoSExactlyOnce QoS = 2
)

// TopicParameter describes a {param} segment in a topic pattern.
type TopicParameter struct {
	Name        string
	Description string
}

// PublicationSpec describes a topic this service publishes to.
type PublicationSpec struct {
	OperationID     string
	TopicMQTT       string // wildcard form, filled on registration
	Summary         string
	Description     string
	Group           string
	TopicParameters []TopicParameter
	MessageType     any
	QoS             QoS
	Retained        bool
}

// SubscriptionSpec describes a topic this service consumes.
type SubscriptionSpec struct {
	OperationID     string
	TopicMQTT       string // wildcard form, filled on registration
	Summary         string
	Description     string
	Group           string
	TopicParameters []TopicParameter
	MessageType     any
	Handler         pahomqtt.MessageHandler
	QoS             QoS
}

// Operation directions.
const (
	DirectionPublish   = "publish"
	DirectionSubscribe = "subscribe"
)

// Operation is the documented view of a registered publication or subscription.
type Operation struct {
	OperationID string           `json:"operationId"`
	Direction   string           `json:"direction"`
	Topic       string           `json:"topic"`
	TopicMQTT   string           `json:"topicMqtt"`
	Summary     string           `json:"summary"`
	Description string           `json:"description"`
	Group       string           `json:"group"`
	QoS         QoS              `json:"qos"`
	Retained    bool             `json:"retained"`
	Parameters  []TopicParameter `json:"parameters,omitempty"`
}
