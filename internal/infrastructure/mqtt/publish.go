package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/beaconwatch/beaconwatch-core/internal/finalize"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// FinalizedPublisher publishes one summary message per finalized interval.
// It satisfies the agent loop's Publisher interface.
type FinalizedPublisher struct {
	client *Client
	agent  string
}

// NewFinalizedPublisher creates a publisher announcing windows finalized
// by the named agent.
func NewFinalizedPublisher(client *Client, agent string) *FinalizedPublisher {
	return &FinalizedPublisher{client: client, agent: agent}
}

// PublishFinalized announces one finalized window. Summaries are retained
// per window topic so late subscribers see the most recent consolidation.
func (p *FinalizedPublisher) PublishFinalized(_ context.Context, res finalize.Result) error {
	payload, err := json.Marshal(map[string]any{
		"window":    res.Window,
		"staged":    res.Staged,
		"finalized": res.Finalized,
		"agent":     p.agent,
	})
	if err != nil {
		return fmt.Errorf("encoding finalized summary: %w", err)
	}

	topic := Topics{}.Finalized(res.Window)
	return p.client.Publish(topic, payload, byte(p.client.cfg.QoS), true)
}
