package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PharmacyInventory holds what a pharmacy has acquired, keyed by (pharmacy, product).
// WholesalerID, ProductName and UnitPrice are copied at accrual so the row
// stays meaningful after the catalog product is edited or deleted.
type PharmacyInventory struct {
	PharmacyID   string          `gorm:"column:pharmacy_id;primaryKey"`
	ProductID    string          `gorm:"column:product_id;primaryKey"`
	WholesalerID string          `gorm:"column:wholesaler_id;not null;index"`
	ProductName  string          `gorm:"column:product_name;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity     int             `gorm:"column:quantity;type:bigint;not null;default:0"`
	LastUpdated  time.Time       `gorm:"column:last_updated;not null"`
}

func (PharmacyInventory) TableName() string { return "pharmacy_inventory" }
