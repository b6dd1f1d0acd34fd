package notifications

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/registry"
)

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// Consumer turns notification_requested outbox events into fanout calls.
type Consumer struct {
	notifier    Notifier
	idempotency processedTracker
	logg        *logger.Logger
}

// NewConsumer builds the notification consumer. The tracker may be nil, in
// which case replays rely on fanout deduplication alone.
func NewConsumer(notifier Notifier, tracker processedTracker, logg *logger.Logger) (*Consumer, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		notifier:    notifier,
		idempotency: tracker,
		logg:        logg,
	}, nil
}

// Handle implements the relay handler contract.
func (c *Consumer) Handle(ctx context.Context, event *registry.ResolvedEvent) error {
	payload, ok := event.Payload.(*payloads.NotificationRequestedEvent)
	if !ok || payload == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T", event.Payload))
	}

	eventID := event.Envelope.EventID
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   eventID,
		"event_type": event.Descriptor.EventType,
		"deliveries": len(payload.Deliveries),
	})

	consumer := event.Descriptor.Consumer
	if consumer == "" {
		consumer = registry.ConsumerNotifications
	}
	if c.idempotency != nil {
		already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumer, eventID)
		if err != nil {
			// retried by the relay
			return fmt.Errorf("idempotency check: %w", err)
		}
		if already {
			c.logg.Info(logCtx, "event already processed")
			return nil
		}
	}

	var total NotifyResult
	for _, d := range payload.Deliveries {
		res := c.notifier.Notify(ctx, Delivery{
			RecipientRole: d.RecipientRole,
			Message:       d.Message,
			Type:          d.Type,
			TriggerRole:   d.TriggerRole,
			RecipientIDs:  d.RecipientIDs,
		})
		total.Delivered += res.Delivered
		total.Deduplicated += res.Deduplicated
		total.Failed += res.Failed
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"delivered":    total.Delivered,
		"deduplicated": total.Deduplicated,
		"failed":       total.Failed,
	})
	if total.Failed > 0 && c.idempotency != nil {
		// let a later replay retry the failed recipients; dedup protects the rest
		if err := c.idempotency.Release(ctx, consumer, eventID); err != nil {
			c.logg.Error(logCtx, "failed to release idempotency marker", err)
		}
		return fmt.Errorf("%d notification deliveries failed", total.Failed)
	}
	c.logg.Info(logCtx, "notifications delivered")
	return nil
}
