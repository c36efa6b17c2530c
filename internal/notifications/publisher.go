package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/marketrun/backend/internal/agents"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/pubsub"
)

const publishTimeout = 10 * time.Second

const eventTypeOrderAssigned = "order.assigned"

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

// Publisher pushes assignment events onto the order-assigned topic. It
// satisfies the agents notifier contract, publish failures are the caller's
// to tolerate.
type Publisher struct {
	pub  publisher
	logg *logger.Logger
}

// NewPublisher wires the order-assigned topic from the shared Pub/Sub client.
func NewPublisher(client *pubsub.Client, logg *logger.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client required")
	}
	pub := client.OrderAssignedPublisher()
	if pub == nil {
		return nil, fmt.Errorf("order-assigned topic not configured")
	}
	return &Publisher{pub: pub, logg: logg}, nil
}

// NewPublisherWithTopic builds a Publisher around any topic handle, used by
// tests.
func NewPublisherWithTopic(pub publisher, logg *logger.Logger) *Publisher {
	return &Publisher{pub: pub, logg: logg}
}

// OrderAssigned publishes the event and waits for broker acknowledgement.
func (p *Publisher) OrderAssigned(ctx context.Context, event agents.OrderAssignedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode order assigned event: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":  eventTypeOrderAssigned,
			"order_id":    event.OrderID.String(),
			"agent_id":    event.AgentID.String(),
			"assigned_at": event.AssignedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned no result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish order assigned event: %w", err)
	}

	if p.logg != nil {
		p.logg.Info(p.logg.WithOrderID(ctx, event.OrderID.String()), "order assigned event published")
	}
	return nil
}
