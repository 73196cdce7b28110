package mqtt

import (
	"fmt"
)

// Publish sends a message to the given topic.
//
// Parameters:
//   - topic: Destination topic (must not contain wildcards)
//   - payload: Message payload (typically JSON, max 1 MB)
//
// Returns:
//   - error: ErrPublishFailed if the broker rejects the message
func (c *Client) Publish(topic string, payload []byte) error {
	return c.publish(topic, payload, false)
}

// PublishRetained sends a message with the retained flag set.
//
// The broker delivers the most recent retained message to new
// subscribers immediately on subscription.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.publish(topic, payload, true)
}

// PublishString sends a string payload to the given topic.
func (c *Client) PublishString(topic, payload string) error {
	return c.publish(topic, []byte(payload), false)
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	if err := validateTopic(topic); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrPublishFailed, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout publishing to %s", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}

	return nil
}

// validateTopic checks that a publish topic is well formed.
// Wildcards are only valid in subscriptions.
func validateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidTopic)
	}
	for _, r := range topic {
		if r == '+' || r == '#' {
			return fmt.Errorf("%w: wildcard in publish topic %s", ErrInvalidTopic, topic)
		}
	}
	return nil
}
