package notifications

import (
	"context"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Enqueuer records notification deliveries in the caller's transaction. The
// relay fans them out only after the surrounding state change commits.
type Enqueuer struct {
	outbox emitter
}

func NewEnqueuer(svc *outbox.Service) *Enqueuer {
	return &Enqueuer{outbox: svc}
}

// Subject names the aggregate whose change produced the deliveries.
type Subject struct {
	Type enums.OutboxAggregateType
	ID   string
}

// Enqueue writes one notification_requested event. Deliveries without
// recipients are dropped; nothing is written when none remain.
func (e *Enqueuer) Enqueue(ctx context.Context, tx *gorm.DB, subject Subject, actor *outbox.ActorRef, deliveries ...Delivery) error {
	payload := payloads.NotificationRequestedEvent{}
	for _, d := range deliveries {
		if len(d.RecipientIDs) == 0 {
			continue
		}
		payload.Deliveries = append(payload.Deliveries, payloads.NotificationDelivery{
			RecipientRole: d.RecipientRole,
			Message:       d.Message,
			Type:          d.Type,
			TriggerRole:   d.TriggerRole,
			RecipientIDs:  d.RecipientIDs,
		})
	}
	if len(payload.Deliveries) == 0 {
		return nil
	}
	return e.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: subject.Type,
		AggregateID:   subject.ID,
		Actor:         actor,
		Data:          payload,
	})
}
