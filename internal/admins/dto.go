package admins

import (
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// AdminDTO is the credential-free view of an administrator.
type AdminDTO struct {
	ID          string            `json:"admin_id"`
	Name        string            `json:"name"`
	Username    string            `json:"username"`
	Email       *string           `json:"email,omitempty"`
	Role        enums.Role        `json:"role"`
	Status      enums.AdminStatus `json:"status"`
	IsMainAdmin bool              `json:"isMainAdmin"`
	CreatedAt   time.Time         `json:"created_at"`
}

func newAdminDTO(a models.Admin) AdminDTO {
	role := enums.RoleAdmin
	if a.IsMainAdmin {
		role = enums.RoleSuperAdmin
	}
	return AdminDTO{
		ID:          a.ID.String(),
		Name:        a.Name,
		Username:    a.Username,
		Email:       a.Email,
		Role:        role,
		Status:      a.Status,
		IsMainAdmin: a.IsMainAdmin,
		CreatedAt:   a.CreatedAt,
	}
}

// DecisionResult acknowledges an onboarding or activation change.
type DecisionResult struct {
	Message  string `json:"message"`
	TargetID string `json:"id"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type StatsDTO struct {
	TotalWholesalers int64 `json:"totalWholesalers"`
	TotalPharmacies  int64 `json:"totalPharmacies"`
	PendingApprovals int64 `json:"pendingApprovals"`
}

// GrowthPoint counts wholesaler sign-ups in one calendar month.
type GrowthPoint struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}
