package payloads

import "github.com/angelmondragon/pharmalink-backend/pkg/enums"

// NotificationDelivery addresses one message to a set of recipients of one role.
type NotificationDelivery struct {
	RecipientRole enums.Role             `json:"recipient_role"`
	Message       string                 `json:"message"`
	Type          enums.NotificationType `json:"type"`
	TriggerRole   enums.Role             `json:"trigger_role"`
	RecipientIDs  []string               `json:"recipient_ids"`
}

// NotificationRequestedEvent carries every delivery a committed state change owes.
type NotificationRequestedEvent struct {
	Deliveries []NotificationDelivery `json:"deliveries"`
}
