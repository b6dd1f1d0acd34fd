package notifications

import (
	"context"
	"strings"

	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/metrics"
)

// Delivery addresses one message to every listed recipient of a role.
type Delivery struct {
	RecipientRole enums.Role
	Message       string
	Type          enums.NotificationType
	TriggerRole   enums.Role
	RecipientIDs  []string
}

// NotifyResult tallies the outcome of one fanout call.
type NotifyResult struct {
	Delivered    int
	Deduplicated int
	Failed       int
}

// Notifier delivers notifications without surfacing errors to the caller.
type Notifier interface {
	Notify(ctx context.Context, delivery Delivery) NotifyResult
}

type deliveryMetrics interface {
	IncDelivery(notificationType, result string)
}

// Fanout persists one notification per recipient, skipping tuples that already exist.
type Fanout struct {
	repo    Repository
	logg    *logger.Logger
	metrics deliveryMetrics
}

func NewFanout(repo Repository, logg *logger.Logger, m *metrics.WorkflowMetrics) *Fanout {
	f := &Fanout{repo: repo, logg: logg}
	if m != nil {
		f.metrics = m
	}
	return f
}

// Notify inserts sequentially. A failure for one recipient is logged and the
// loop moves on, so earlier recipients stay notified.
func (f *Fanout) Notify(ctx context.Context, delivery Delivery) NotifyResult {
	var result NotifyResult
	if len(delivery.RecipientIDs) == 0 {
		return result
	}

	seen := make(map[string]struct{}, len(delivery.RecipientIDs))
	for _, raw := range delivery.RecipientIDs {
		recipientID := strings.TrimSpace(raw)
		if recipientID == "" {
			continue
		}
		if _, dup := seen[recipientID]; dup {
			continue
		}
		seen[recipientID] = struct{}{}

		outcome := f.deliverOne(ctx, delivery, recipientID)
		switch outcome {
		case metrics.DeliveryDelivered:
			result.Delivered++
		case metrics.DeliveryDeduplicated:
			result.Deduplicated++
		default:
			result.Failed++
		}
		f.record(delivery.Type, outcome)
	}
	return result
}

func (f *Fanout) deliverOne(ctx context.Context, delivery Delivery, recipientID string) string {
	key := DedupKey{
		RecipientID: recipientID,
		Message:     delivery.Message,
		Type:        delivery.Type,
		TriggerRole: delivery.TriggerRole,
	}
	logCtx := ctx
	if f.logg != nil {
		logCtx = f.logg.WithFields(ctx, map[string]any{
			"recipient_id":      recipientID,
			"recipient_role":    delivery.RecipientRole,
			"notification_type": delivery.Type,
			"trigger_role":      delivery.TriggerRole,
		})
	}

	exists, err := f.repo.Exists(ctx, key)
	if err != nil {
		f.logError(logCtx, "notification dedup check failed", err)
		return metrics.DeliveryFailed
	}
	if exists {
		return metrics.DeliveryDeduplicated
	}

	row := &models.Notification{
		RecipientID:   recipientID,
		RecipientRole: delivery.RecipientRole,
		Message:       delivery.Message,
		Type:          delivery.Type,
		TriggerRole:   delivery.TriggerRole,
	}
	if err := f.repo.Create(ctx, row); err != nil {
		// a concurrent writer won the unique index
		if db.IsUniqueViolation(err, "") {
			return metrics.DeliveryDeduplicated
		}
		f.logError(logCtx, "notification insert failed", err)
		return metrics.DeliveryFailed
	}
	return metrics.DeliveryDelivered
}

func (f *Fanout) record(notificationType enums.NotificationType, outcome string) {
	if f.metrics == nil {
		return
	}
	f.metrics.IncDelivery(string(notificationType), outcome)
}

func (f *Fanout) logError(ctx context.Context, msg string, err error) {
	if f.logg == nil {
		return
	}
	f.logg.Error(ctx, msg, err)
}
