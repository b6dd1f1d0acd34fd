package pharmacies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/internal/accounts"
	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/pkg/config"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/security"
)

const (
	usernameRegistered = "Username already registered"
	usernameInUse      = "Username already in use"
	notFoundMessage    = "Pharmacy not found"
)

// Service covers pharmacy self-service account operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Profile(ctx context.Context, pharmacyID string) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, pharmacyID string, input ProfileInput) (*ProfileDTO, error)
	ChangePassword(ctx context.Context, pharmacyID, current, next string) error
}

// RegisterInput is the public sign-up payload.
type RegisterInput struct {
	Name     string
	Address  string
	PhoneNo  string
	Email    *string
	Username string
	Password string
}

// ProfileInput replaces the editable profile fields.
type ProfileInput struct {
	Name     string
	Address  string
	PhoneNo  string
	Username string
}

type adminDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, subject notifications.Subject, actor *outbox.ActorRef, deliveries ...notifications.Delivery) error
}

// ServiceParams wires the pharmacy service.
type ServiceParams struct {
	Repository *Repository
	Admins     adminDirectory
	DB         *db.Client
	IDs        *idgen.Generator
	Notify     *notifications.Enqueuer
	Password   config.PasswordConfig
}

type service struct {
	repo        *Repository
	admins      adminDirectory
	dbClient    *db.Client
	ids         *idgen.Generator
	notify      enqueuer
	passwordCfg config.PasswordConfig
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("pharmacy repository required")
	case params.Admins == nil:
		return nil, fmt.Errorf("admin directory required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.IDs == nil:
		return nil, fmt.Errorf("id generator required")
	case params.Notify == nil:
		return nil, fmt.Errorf("notification enqueuer required")
	}
	return &service{
		repo:        params.Repository,
		admins:      params.Admins,
		dbClient:    params.DB,
		ids:         params.IDs,
		notify:      params.Notify,
		passwordCfg: params.Password,
	}, nil
}

// Register creates a pending, active pharmacy and tells every admin it is
// awaiting approval.
func (s *service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Address = strings.TrimSpace(input.Address)
	input.PhoneNo = strings.TrimSpace(input.PhoneNo)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Address == "" || input.PhoneNo == "" || input.Username == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, address, phone_No, username, password are required")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	adminIDs, err := s.admins.ListIDs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}

	var created models.Pharmacy
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		taken, err := txRepo.UsernameTaken(ctx, input.Username, "")
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, usernameRegistered)
		}

		id, err := s.ids.Unique(ctx, idgen.KindPharmacy, txRepo.Exists)
		if err != nil {
			return err
		}
		created = models.Pharmacy{
			ID:           id,
			Name:         input.Name,
			Address:      input.Address,
			PhoneNo:      input.PhoneNo,
			Email:        input.Email,
			Username:     input.Username,
			PasswordHash: hash,
			Status:       enums.AccountStatusPending,
			IsActive:     true,
		}
		if err := txRepo.Create(ctx, &created); err != nil {
			if db.IsUniqueViolation(err, "ux_pharmacies_username") {
				return pkgerrors.New(pkgerrors.CodeConflict, usernameRegistered)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert pharmacy")
		}

		return s.notify.Enqueue(ctx, tx,
			notifications.Subject{Type: enums.AggregatePharmacy, ID: id},
			&outbox.ActorRef{AccountID: id, Role: enums.RolePharmacy.String()},
			notifications.Delivery{
				RecipientRole: enums.RoleAdmin,
				Message:       fmt.Sprintf(`New pharmacy "%s" registered and is awaiting approval.`, created.Name),
				Type:          enums.NotificationTypeAddPharmacy,
				TriggerRole:   enums.RolePharmacy,
				RecipientIDs:  adminIDs,
			})
	})
	if err != nil {
		return nil, wrapTxError(err, "register pharmacy")
	}
	return &RegisterResult{
		Message:    "Pharmacy registered successfully. Awaiting admin approval.",
		PharmacyID: created.ID,
	}, nil
}

func (s *service) Profile(ctx context.Context, pharmacyID string) (*ProfileDTO, error) {
	pharmacy, err := s.repo.FindByID(ctx, pharmacyID)
	if err != nil {
		return nil, lookupError(err)
	}
	return NewProfileDTO(*pharmacy), nil
}

func (s *service) UpdateProfile(ctx context.Context, pharmacyID string, input ProfileInput) (*ProfileDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Address = strings.TrimSpace(input.Address)
	input.PhoneNo = strings.TrimSpace(input.PhoneNo)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Address == "" || input.PhoneNo == "" || input.Username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, address, phone_No, and username are required")
	}

	var updated *models.Pharmacy
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		taken, err := txRepo.UsernameTaken(ctx, input.Username, pharmacyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, usernameInUse)
		}
		found, err := txRepo.Update(ctx, pharmacyID, map[string]any{
			"name":     input.Name,
			"address":  input.Address,
			"phone_no": input.PhoneNo,
			"username": input.Username,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "ux_pharmacies_username") {
				return pkgerrors.New(pkgerrors.CodeConflict, usernameInUse)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update pharmacy")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		updated, err = txRepo.FindByID(ctx, pharmacyID)
		if err != nil {
			return lookupError(err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update pharmacy profile")
	}
	return NewProfileDTO(*updated), nil
}

func (s *service) ChangePassword(ctx context.Context, pharmacyID, current, next string) error {
	pharmacy, err := s.repo.FindByID(ctx, pharmacyID)
	if err != nil {
		return lookupError(err)
	}
	hash, err := accounts.ReplacePassword(current, next, pharmacy.PasswordHash, s.passwordCfg)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, pharmacyID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update password")
	}
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pharmacy")
}

func wrapTxError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
