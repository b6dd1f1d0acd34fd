package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/internal/accounts"
	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/internal/pharmacies"
	"github.com/angelmondragon/pharmalink-backend/internal/wholesalers"
	"github.com/angelmondragon/pharmalink-backend/pkg/auth/session"
	"github.com/angelmondragon/pharmalink-backend/pkg/config"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/security"
)

const (
	adminNotFound      = "Admin not found"
	pharmacyNotFound   = "Pharmacy not found"
	wholesalerNotFound = "Wholesaler not found"
)

// Actor is the authenticated administrator performing an operation.
type Actor struct {
	AdminID     string
	IsMainAdmin bool
}

// Service exposes administrator-only operations.
type Service interface {
	CreateAdmin(ctx context.Context, actor Actor, input CreateAdminInput) (*AdminDTO, error)
	ListAdmins(ctx context.Context, actor Actor) ([]AdminDTO, error)
	RemoveAdmin(ctx context.Context, actor Actor, adminID string) error
	Me(ctx context.Context, actor Actor) (*AdminDTO, error)
	GetAdmin(ctx context.Context, actor Actor, adminID string) (*AdminDTO, error)
	UpdateAdmin(ctx context.Context, actor Actor, adminID string, input UpdateAdminInput) (*AdminDTO, error)
	ChangeAdminPassword(ctx context.Context, actor Actor, adminID, current, next string) error
	ChangeMainPassword(ctx context.Context, actor Actor, current, next string) error

	ListPharmacies(ctx context.Context) ([]pharmacies.ProfileDTO, error)
	PharmacyDetails(ctx context.Context, pharmacyID string) (*pharmacies.ProfileDTO, error)
	UpdatePharmacy(ctx context.Context, pharmacyID string, input PharmacyUpdate) (*pharmacies.ProfileDTO, error)
	ListWholesalers(ctx context.Context) ([]wholesalers.ProfileDTO, error)
	WholesalerDetails(ctx context.Context, wholesalerID string) (*wholesalers.ProfileDTO, error)
	UpdateWholesaler(ctx context.Context, wholesalerID string, input WholesalerUpdate) (*wholesalers.ProfileDTO, error)

	ApprovePharmacy(ctx context.Context, actor Actor, pharmacyID string) (*DecisionResult, error)
	RejectPharmacy(ctx context.Context, actor Actor, pharmacyID string) (*DecisionResult, error)
	SetPharmacyActive(ctx context.Context, actor Actor, pharmacyID string, active bool) (*DecisionResult, error)
	SetWholesalerActive(ctx context.Context, actor Actor, wholesalerID string, active bool) (*DecisionResult, error)

	Stats(ctx context.Context) (*StatsDTO, error)
	WholesalerGrowth(ctx context.Context) ([]GrowthPoint, error)
}

type CreateAdminInput struct {
	Name     string
	Username string
	Email    *string
	Password string
}

type UpdateAdminInput struct {
	Name     string
	Username string
	Email    *string
}

// PharmacyUpdate replaces the admin-editable pharmacy columns.
type PharmacyUpdate struct {
	Name     string
	Address  string
	PhoneNo  string
	Username string
	Status   string
}

// WholesalerUpdate replaces the admin-editable wholesaler columns.
type WholesalerUpdate struct {
	Name     string
	Address  string
	Username string
	Status   string
}

type enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, subject notifications.Subject, actor *outbox.ActorRef, deliveries ...notifications.Delivery) error
}

// sessionRevoker ends live sessions of an account; nil disables revocation.
type sessionRevoker interface {
	RevokeAccount(ctx context.Context, owner session.Owner) (int, error)
}

type ServiceParams struct {
	Repository  *Repository
	Pharmacies  *pharmacies.Repository
	Wholesalers *wholesalers.Repository
	DB          *db.Client
	IDs         *idgen.Generator
	Notify      *notifications.Enqueuer
	Sessions    sessionRevoker
	Password    config.PasswordConfig
	Logger      *logger.Logger
}

type service struct {
	repo        *Repository
	pharmacies  *pharmacies.Repository
	wholesalers *wholesalers.Repository
	dbClient    *db.Client
	ids         *idgen.Generator
	notify      enqueuer
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("admin repository required")
	case params.Pharmacies == nil:
		return nil, fmt.Errorf("pharmacy repository required")
	case params.Wholesalers == nil:
		return nil, fmt.Errorf("wholesaler repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.IDs == nil:
		return nil, fmt.Errorf("id generator required")
	case params.Notify == nil:
		return nil, fmt.Errorf("notification enqueuer required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        params.Repository,
		pharmacies:  params.Pharmacies,
		wholesalers: params.Wholesalers,
		dbClient:    params.DB,
		ids:         params.IDs,
		notify:      params.Notify,
		sessions:    params.Sessions,
		passwordCfg: params.Password,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) CreateAdmin(ctx context.Context, actor Actor, input CreateAdminInput) (*AdminDTO, error) {
	if !actor.IsMainAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only the main admin can create new admins")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Username == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, username, and password are required")
	}
	if err := security.ValidatePassword(input.Password, s.passwordCfg); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Password is too short")
	}
	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	rawID, err := s.ids.Next(idgen.KindAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate admin id")
	}

	admin := models.Admin{
		ID:           uuid.MustParse(rawID),
		Name:         input.Name,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Status:       enums.AdminStatusActive,
	}
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		taken, err := txRepo.UsernameTaken(ctx, admin.Username, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "Username already taken")
		}
		if err := txRepo.Create(ctx, &admin); err != nil {
			if db.IsUniqueViolation(err, "ux_admins_username") {
				return pkgerrors.New(pkgerrors.CodeConflict, "Username already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert admin")
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "create admin")
	}
	dto := newAdminDTO(admin)
	return &dto, nil
}

func (s *service) ListAdmins(ctx context.Context, actor Actor) ([]AdminDTO, error) {
	if !actor.IsMainAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only the main admin can view all admins")
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	out := make([]AdminDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newAdminDTO(row))
	}
	return out, nil
}

func (s *service) RemoveAdmin(ctx context.Context, actor Actor, adminID string) error {
	if !actor.IsMainAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Only the main admin can remove admins")
	}
	if strings.TrimSpace(adminID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Admin ID is required")
	}
	id, err := uuid.Parse(adminID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, adminNotFound)
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete admin")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, adminNotFound)
	}
	return nil
}

func (s *service) Me(ctx context.Context, actor Actor) (*AdminDTO, error) {
	return s.load(ctx, actor.AdminID)
}

func (s *service) GetAdmin(ctx context.Context, actor Actor, adminID string) (*AdminDTO, error) {
	if err := selfOrMain(actor, adminID, "You can only view your own details"); err != nil {
		return nil, err
	}
	return s.load(ctx, adminID)
}

func (s *service) UpdateAdmin(ctx context.Context, actor Actor, adminID string, input UpdateAdminInput) (*AdminDTO, error) {
	if err := selfOrMain(actor, adminID, "You can only update your own profile"); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name and username are required")
	}
	id, err := uuid.Parse(adminID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, adminNotFound)
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		taken, err := txRepo.UsernameTaken(ctx, input.Username, &id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "Username already taken")
		}
		found, err := txRepo.Update(ctx, id, map[string]any{
			"name":     input.Name,
			"username": input.Username,
			"email":    input.Email,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update admin")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, adminNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update admin")
	}
	return s.load(ctx, adminID)
}

func (s *service) ChangeAdminPassword(ctx context.Context, actor Actor, adminID, current, next string) error {
	if err := selfOrMain(actor, adminID, "You can only change your own password"); err != nil {
		return err
	}
	return s.replacePassword(ctx, adminID, current, next)
}

func (s *service) ChangeMainPassword(ctx context.Context, actor Actor, current, next string) error {
	if !actor.IsMainAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Only the superadmin can change the password")
	}
	return s.replacePassword(ctx, actor.AdminID, current, next)
}

func (s *service) replacePassword(ctx context.Context, adminID, current, next string) error {
	id, err := uuid.Parse(adminID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, adminNotFound)
	}
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, adminNotFound)
	}
	hash, err := accounts.ReplacePassword(current, next, admin.PasswordHash, s.passwordCfg)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, id, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update password")
	}
	return nil
}

func (s *service) load(ctx context.Context, adminID string) (*AdminDTO, error) {
	id, err := uuid.Parse(adminID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, adminNotFound)
	}
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, adminNotFound)
	}
	dto := newAdminDTO(*admin)
	return &dto, nil
}

func selfOrMain(actor Actor, adminID, denied string) error {
	if strings.TrimSpace(adminID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Admin ID is required")
	}
	if !actor.IsMainAdmin && actor.AdminID != adminID {
		return pkgerrors.New(pkgerrors.CodeForbidden, denied)
	}
	return nil
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db lookup")
}

func wrapTxError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
