package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Admin is an operator account. At most one row carries IsMainAdmin.
type Admin struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name         string            `gorm:"column:name;not null"`
	Username     string            `gorm:"column:username;not null;uniqueIndex:ux_admins_username"`
	Email        *string           `gorm:"column:email"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	Status       enums.AdminStatus `gorm:"column:status;type:admin_status;not null;default:active"`
	IsMainAdmin  bool              `gorm:"column:is_main_admin;not null;default:false"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
