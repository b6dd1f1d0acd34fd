package pharmacies

import (
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// RegisterResult acknowledges a sign-up that still needs admin approval.
type RegisterResult struct {
	Message    string `json:"message"`
	PharmacyID string `json:"pharmacyId"`
}

// ProfileDTO omits the credential hash.
type ProfileDTO struct {
	ID        string              `json:"pharmacy_id"`
	Name      string              `json:"name"`
	Address   string              `json:"address"`
	PhoneNo   string              `json:"phone_No"`
	Email     *string             `json:"email,omitempty"`
	Username  string              `json:"username"`
	Status    enums.AccountStatus `json:"status"`
	IsActive  bool                `json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewProfileDTO(p models.Pharmacy) *ProfileDTO {
	return &ProfileDTO{
		ID:        p.ID,
		Name:      p.Name,
		Address:   p.Address,
		PhoneNo:   p.PhoneNo,
		Email:     p.Email,
		Username:  p.Username,
		Status:    p.Status,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}
