package wholesalers

import (
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

type RegisterResult struct {
	Message      string `json:"message"`
	WholesalerID string `json:"wholesalerId"`
}

type ProfileDTO struct {
	ID        string              `json:"wholesaler_id"`
	Name      string              `json:"name"`
	Address   string              `json:"address"`
	Username  string              `json:"username"`
	Status    enums.AccountStatus `json:"status"`
	IsActive  bool                `json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewProfileDTO(w models.Wholesaler) *ProfileDTO {
	return &ProfileDTO{
		ID:        w.ID,
		Name:      w.Name,
		Address:   w.Address,
		Username:  w.Username,
		Status:    w.Status,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
	}
}
