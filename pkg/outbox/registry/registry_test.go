package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := NewEventRegistry()

	payloadBytes := mustMarshal(t, payloads.NotificationRequestedEvent{
		Deliveries: []payloads.NotificationDelivery{{
			RecipientRole: enums.RoleWholesaler,
			Message:       `New request: "Amoxicillin" (Qty: 10) from pharmacy "Corner".`,
			Type:          enums.NotificationTypeRequest,
			TriggerRole:   enums.RolePharmacy,
			RecipientIDs:  []string{"WHO-2025-00001"},
		}},
	})

	event := models.OutboxEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateRequest,
		AggregateID:   "REQ-20250314-3F9A",
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Consumer != ConsumerNotifications {
		t.Fatalf("unexpected consumer %q", resolved.Descriptor.Consumer)
	}
	payload, ok := resolved.Payload.(*payloads.NotificationRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if len(payload.Deliveries) != 1 || payload.Deliveries[0].RecipientIDs[0] != "WHO-2025-00001" {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryResolveRejects(t *testing.T) {
	reg := NewEventRegistry()
	valid := mustEnvelope(t, []byte(`{"deliveries":[]}`))

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("request_archived"),
			AggregateType: enums.AggregateRequest,
			AggregateID:   "REQ-1",
			Payload:       valid,
		},
		"unknown aggregate": {
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.OutboxAggregateType("cart"),
			AggregateID:   "REQ-1",
			Payload:       valid,
		},
		"missing aggregate id": {
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateRequest,
			Payload:       valid,
		},
		"bad envelope": {
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateRequest,
			AggregateID:   "REQ-1",
			Payload:       json.RawMessage(`not-json`),
		},
		"null data": {
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateRequest,
			AggregateID:   "REQ-1",
			Payload:       mustEnvelope(t, []byte(`null`)),
		},
		"bad payload": {
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateProduct,
			AggregateID:   "PROD-2025-00001",
			Payload:       mustEnvelope(t, []byte(`{"deliveries":"oops"}`)),
		},
	}

	for name, event := range cases {
		_, err := reg.Resolve(event)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var nonRetry NonRetryableError
		if !errors.As(err, &nonRetry) {
			t.Fatalf("%s: expected non-retryable error, got %T", name, err)
		}
	}
}

func TestEventRegistryDescriptor(t *testing.T) {
	reg := NewEventRegistry()
	desc, ok := reg.Descriptor(enums.EventNotificationRequested)
	if !ok {
		t.Fatal("expected descriptor")
	}
	for _, agg := range []enums.OutboxAggregateType{enums.AggregateRequest, enums.AggregateProduct, enums.AggregatePharmacy, enums.AggregateWholesaler} {
		if !desc.allows(agg) {
			t.Fatalf("expected %s to be allowed", agg)
		}
	}
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	return mustMarshal(t, envelope)
}
