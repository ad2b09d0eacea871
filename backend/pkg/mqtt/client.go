package mqtt

import (
	"errors"
	"fmt"
	"time"

	"redalert/backend/pkg/utils"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const tokenTimeout = 10 * time.Second

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

type MQTTClient struct {
	client  pahomqtt.Client
	builder *MQTTBuilder
}

// Publish JSON-encodes payload and sends it to actualTopic with the QoS and
// retain flag of the publication registered under operationID.
// It does not check actualTopic against the registered pattern.
func (c *MQTTClient) Publish(operationID string, actualTopic string, payload any) error {
	pub, ok := c.builder.operations[operationID]
	if !ok || pub.Direction != DirectionPublish {
		return fmt.Errorf("publication not found for operationID %s", operationID)
	}

	bytes, err := utils.ToJSON(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	return c.wait(c.client.Publish(actualTopic, byte(pub.QoS), pub.Retained, bytes), "publish to "+actualTopic)
}

// Subscribe adds a runtime subscription on a concrete topic. The broker
// replays any retained message on that topic to handler right away.
// Runtime subscriptions survive reconnects.
func (c *MQTTClient) Subscribe(topic string, qos QoS, handler pahomqtt.MessageHandler) error {
	c.builder.dynamicMu.Lock()
	c.builder.dynamic[topic] = dynamicSub{qos: qos, handler: handler}
	c.builder.dynamicMu.Unlock()

	return c.wait(c.client.Subscribe(topic, byte(qos), handler), "subscribe to "+topic)
}

// Unsubscribe removes a runtime subscription.
func (c *MQTTClient) Unsubscribe(topic string) error {
	c.builder.dynamicMu.Lock()
	delete(c.builder.dynamic, topic)
	c.builder.dynamicMu.Unlock()

	return c.wait(c.client.Unsubscribe(topic), "unsubscribe from "+topic)
}

func (c *MQTTClient) wait(token pahomqtt.Token, what string) error {
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("%s: %w", what, ErrTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}

	return nil
}
