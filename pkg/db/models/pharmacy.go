package models

import (
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Pharmacy is a buying account. Login requires both approval and the active flag.
type Pharmacy struct {
	ID           string              `gorm:"column:id;primaryKey"`
	Name         string              `gorm:"column:name;not null"`
	Address      string              `gorm:"column:address;not null"`
	PhoneNo      string              `gorm:"column:phone_no;not null"`
	Email        *string             `gorm:"column:email"`
	Username     string              `gorm:"column:username;not null;uniqueIndex:ux_pharmacies_username"`
	PasswordHash string              `gorm:"column:password_hash;not null"`
	Status       enums.AccountStatus `gorm:"column:status;type:account_status;not null;default:pending"`
	IsActive     bool                `gorm:"column:is_active;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
