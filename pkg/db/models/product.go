package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by exactly one wholesaler.
type Product struct {
	ID              string          `gorm:"column:id;primaryKey"`
	WholesalerID    string          `gorm:"column:wholesaler_id;not null;index:idx_products_wholesaler_name,priority:1"`
	Name            string          `gorm:"column:name;not null;index:idx_products_wholesaler_name,priority:2"`
	Description     string          `gorm:"column:description;not null;default:''"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity        int             `gorm:"column:quantity;not null;default:0"`
	ExpireDate      time.Time       `gorm:"column:expire_date;not null"`
	LastPriceUpdate *time.Time      `gorm:"column:last_price_update"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
