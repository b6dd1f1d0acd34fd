package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/registry"
)

type recordingNotifier struct {
	calls  []Delivery
	result NotifyResult
}

func (r *recordingNotifier) Notify(ctx context.Context, d Delivery) NotifyResult {
	r.calls = append(r.calls, d)
	return r.result
}

type memoryTracker struct {
	seen     map[string]bool
	released []string
	err      error
}

func (m *memoryTracker) CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	key := consumer + ":" + eventID
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *memoryTracker) Release(ctx context.Context, consumer, eventID string) error {
	key := consumer + ":" + eventID
	delete(m.seen, key)
	m.released = append(m.released, key)
	return nil
}

func resolvedEvent(deliveries ...payloads.NotificationDelivery) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: enums.EventNotificationRequested, Consumer: registry.ConsumerNotifications},
		Envelope:   outbox.PayloadEnvelope{EventID: uuid.NewString()},
		Payload:    &payloads.NotificationRequestedEvent{Deliveries: deliveries},
	}
}

var wholesalerDelivery = payloads.NotificationDelivery{
	RecipientRole: enums.RoleWholesaler,
	Message:       "New request for 10 units of Amoxicillin",
	Type:          enums.NotificationTypeRequest,
	TriggerRole:   enums.RolePharmacy,
	RecipientIDs:  []string{"WHO-2025-00001"},
}

func TestConsumerHandleDrivesFanout(t *testing.T) {
	notifier := &recordingNotifier{result: NotifyResult{Delivered: 1}}
	consumer, err := NewConsumer(notifier, &memoryTracker{}, testLogger())
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	if err := consumer.Handle(context.Background(), resolvedEvent(wholesalerDelivery, wholesalerDelivery)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(notifier.calls) != 2 {
		t.Fatalf("expected 2 fanout calls, got %d", len(notifier.calls))
	}
	if notifier.calls[0].RecipientIDs[0] != "WHO-2025-00001" || notifier.calls[0].Type != enums.NotificationTypeRequest {
		t.Fatalf("unexpected delivery %+v", notifier.calls[0])
	}
}

func TestConsumerSkipsReplayedEvent(t *testing.T) {
	notifier := &recordingNotifier{}
	consumer, _ := NewConsumer(notifier, &memoryTracker{}, testLogger())
	event := resolvedEvent(wholesalerDelivery)

	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("replay handle: %v", err)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected replay to be skipped, got %d calls", len(notifier.calls))
	}
}

func TestConsumerReleasesMarkerOnFailedDeliveries(t *testing.T) {
	notifier := &recordingNotifier{result: NotifyResult{Failed: 1}}
	tracker := &memoryTracker{}
	consumer, _ := NewConsumer(notifier, tracker, testLogger())

	err := consumer.Handle(context.Background(), resolvedEvent(wholesalerDelivery))
	if err == nil {
		t.Fatal("expected retryable error")
	}
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		t.Fatal("failed deliveries must stay retryable")
	}
	if len(tracker.released) != 1 {
		t.Fatalf("expected marker released, got %v", tracker.released)
	}
}

func TestConsumerRejectsUnexpectedPayload(t *testing.T) {
	consumer, _ := NewConsumer(&recordingNotifier{}, nil, testLogger())
	event := resolvedEvent()
	event.Payload = "nope"

	err := consumer.Handle(context.Background(), event)
	var nonRetry registry.NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestConsumerIdempotencyErrorIsRetryable(t *testing.T) {
	notifier := &recordingNotifier{}
	consumer, _ := NewConsumer(notifier, &memoryTracker{err: errors.New("redis down")}, testLogger())

	if err := consumer.Handle(context.Background(), resolvedEvent(wholesalerDelivery)); err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.calls) != 0 {
		t.Fatal("fanout must not run when idempotency is unavailable")
	}
}

func newTestEnqueuer(db *gorm.DB) *Enqueuer {
	return NewEnqueuer(outbox.NewService(outbox.NewRepository(db), nil))
}
