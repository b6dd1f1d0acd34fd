package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Notification is an in-app message addressed to one account. The tuple
// (recipient, message, type, trigger role) identifies it for deduplication.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	RecipientID   string                 `gorm:"column:recipient_id;not null;uniqueIndex:ux_notifications_dedup,priority:1"`
	RecipientRole enums.Role             `gorm:"column:recipient_role;type:account_role;not null"`
	Message       string                 `gorm:"column:message;not null;uniqueIndex:ux_notifications_dedup,priority:2"`
	Type          enums.NotificationType `gorm:"column:type;type:notification_type;not null;uniqueIndex:ux_notifications_dedup,priority:3"`
	TriggerRole   enums.Role             `gorm:"column:trigger_role;type:account_role;not null;uniqueIndex:ux_notifications_dedup,priority:4"`
	IsRead        bool                   `gorm:"column:is_read;not null;default:false"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
