package models

import (
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Wholesaler owns a catalog and decides incoming requests.
type Wholesaler struct {
	ID           string              `gorm:"column:id;primaryKey"`
	Name         string              `gorm:"column:name;not null"`
	Address      string              `gorm:"column:address;not null"`
	Username     string              `gorm:"column:username;not null;uniqueIndex:ux_wholesalers_username"`
	PasswordHash string              `gorm:"column:password_hash;not null"`
	Status       enums.AccountStatus `gorm:"column:status;type:account_status;not null;default:approved"`
	IsActive     bool                `gorm:"column:is_active;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
