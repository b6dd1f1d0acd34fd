package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Request is a pharmacy purchase ask. Product identity and price are captured at
// creation so later catalog edits never change what was requested.
type Request struct {
	ID                  string              `gorm:"column:id;primaryKey"`
	PharmacyID          string              `gorm:"column:pharmacy_id;not null;index"`
	WholesalerID        string              `gorm:"column:wholesaler_id;not null;index"`
	ProductID           *string             `gorm:"column:product_id"`
	ProductName         string              `gorm:"column:product_name;not null"`
	Quantity            int                 `gorm:"column:quantity;not null"`
	UnitPrice           decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalAmount         decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Status              enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:Pending"`
	OrderID             *string             `gorm:"column:order_id;uniqueIndex:ux_requests_order_id"`
	OrderDate           time.Time           `gorm:"column:order_date;not null"`
	RequestDatetime     time.Time           `gorm:"column:request_datetime;not null"`
	ApprovedDatetime    *time.Time          `gorm:"column:approved_datetime"`
	NotificationMessage *string             `gorm:"column:notification_message"`
	NotificationSent    bool                `gorm:"column:notification_sent;not null;default:false"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
