package wholesalers

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
	usernameTaken   = "Username already registered"
	usernameInUse   = "Username already in use"
	notFoundMessage = "Wholesaler not found"
)

// Service covers wholesaler registration and self-service profile operations.
type Service interface {
	// Register creates an active wholesaler. actingAdminID is empty for
	// public sign-ups; otherwise that admin is told the account exists.
	Register(ctx context.Context, input RegisterInput, actingAdminID string) (*RegisterResult, error)
	Profile(ctx context.Context, wholesalerID string) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, wholesalerID string, input ProfileInput) (*ProfileDTO, error)
	ChangePassword(ctx context.Context, wholesalerID, current, next string) error
}

type RegisterInput struct {
	Name     string
	Address  string
	Username string
	Password string
	Status   string
}

type ProfileInput struct {
	Name     string
	Address  string
	Username string
}

type enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, subject notifications.Subject, actor *outbox.ActorRef, deliveries ...notifications.Delivery) error
}

type ServiceParams struct {
	Repository *Repository
	DB         *db.Client
	IDs        *idgen.Generator
	Notify     *notifications.Enqueuer
	Password   config.PasswordConfig
}

type service struct {
	repo        *Repository
	dbClient    *db.Client
	ids         *idgen.Generator
	notify      enqueuer
	passwordCfg config.PasswordConfig
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("wholesaler repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.IDs == nil:
		return nil, fmt.Errorf("id generator required")
	case params.Notify == nil:
		return nil, fmt.Errorf("notification enqueuer required")
	}
	return &service{
		repo:        params.Repository,
		dbClient:    params.DB,
		ids:         params.IDs,
		notify:      params.Notify,
		passwordCfg: params.Password,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput, actingAdminID string) (*RegisterResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Address = strings.TrimSpace(input.Address)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Address == "" || input.Username == "" || input.Password == "" || strings.TrimSpace(input.Status) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, address, username, password, status are required")
	}
	status, err := enums.ParseAccountStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of pending, approved, rejected")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created models.Wholesaler
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		taken, err := txRepo.UsernameTaken(ctx, input.Username, "")
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, usernameTaken)
		}

		id, err := s.ids.Unique(ctx, idgen.KindWholesaler, txRepo.Exists)
		if err != nil {
			return err
		}
		created = models.Wholesaler{
			ID:           id,
			Name:         input.Name,
			Address:      input.Address,
			Username:     input.Username,
			PasswordHash: hash,
			Status:       status,
			IsActive:     true,
		}
		if err := txRepo.Create(ctx, &created); err != nil {
			if db.IsUniqueViolation(err, "ux_wholesalers_username") {
				return pkgerrors.New(pkgerrors.CodeConflict, usernameTaken)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert wholesaler")
		}

		if actingAdminID == "" {
			return nil
		}
		return s.notify.Enqueue(ctx, tx,
			notifications.Subject{Type: enums.AggregateWholesaler, ID: id},
			&outbox.ActorRef{AccountID: actingAdminID, Role: enums.RoleAdmin.String()},
			notifications.Delivery{
				RecipientRole: enums.RoleAdmin,
				Message:       fmt.Sprintf(`Wholesaler "%s" has been registered successfully.`, created.Name),
				Type:          enums.NotificationTypeRegisterWholesaler,
				TriggerRole:   enums.RoleAdmin,
				RecipientIDs:  []string{actingAdminID},
			})
	})
	if err != nil {
		return nil, wrapTxError(err, "register wholesaler")
	}
	return &RegisterResult{
		Message:      "Wholesaler registered successfully",
		WholesalerID: created.ID,
	}, nil
}

func (s *service) Profile(ctx context.Context, wholesalerID string) (*ProfileDTO, error) {
	wholesaler, err := s.repo.FindByID(ctx, wholesalerID)
	if err != nil {
		return nil, lookupError(err)
	}
	return NewProfileDTO(*wholesaler), nil
}

func (s *service) UpdateProfile(ctx context.Context, wholesalerID string, input ProfileInput) (*ProfileDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Address = strings.TrimSpace(input.Address)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Address == "" || input.Username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, address, and username are required")
	}

	var updated *models.Wholesaler
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		taken, err := txRepo.UsernameTaken(ctx, input.Username, wholesalerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, usernameInUse)
		}
		found, err := txRepo.Update(ctx, wholesalerID, map[string]any{
			"name":     input.Name,
			"address":  input.Address,
			"username": input.Username,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "ux_wholesalers_username") {
				return pkgerrors.New(pkgerrors.CodeConflict, usernameInUse)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update wholesaler")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		updated, err = txRepo.FindByID(ctx, wholesalerID)
		if err != nil {
			return lookupError(err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update wholesaler profile")
	}
	return NewProfileDTO(*updated), nil
}

func (s *service) ChangePassword(ctx context.Context, wholesalerID, current, next string) error {
	wholesaler, err := s.repo.FindByID(ctx, wholesalerID)
	if err != nil {
		return lookupError(err)
	}
	hash, err := accounts.ReplacePassword(current, next, wholesaler.PasswordHash, s.passwordCfg)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, wholesalerID, hash); err != nil {
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
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesaler")
}

func wrapTxError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
