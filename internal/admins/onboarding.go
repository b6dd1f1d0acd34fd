package admins

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/internal/accounts"
	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/internal/pharmacies"
	"github.com/angelmondragon/pharmalink-backend/internal/wholesalers"
	"github.com/angelmondragon/pharmalink-backend/pkg/auth/session"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
)

func (s *service) ListPharmacies(ctx context.Context) ([]pharmacies.ProfileDTO, error) {
	rows, err := s.pharmacies.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pharmacies")
	}
	out := make([]pharmacies.ProfileDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *pharmacies.NewProfileDTO(row))
	}
	return out, nil
}

func (s *service) PharmacyDetails(ctx context.Context, pharmacyID string) (*pharmacies.ProfileDTO, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacyId is required")
	}
	row, err := s.pharmacies.FindByID(ctx, pharmacyID)
	if err != nil {
		return nil, lookupError(err, pharmacyNotFound)
	}
	return pharmacies.NewProfileDTO(*row), nil
}

func (s *service) UpdatePharmacy(ctx context.Context, pharmacyID string, input PharmacyUpdate) (*pharmacies.ProfileDTO, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacyId is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Address = strings.TrimSpace(input.Address)
	input.PhoneNo = strings.TrimSpace(input.PhoneNo)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Address == "" || input.PhoneNo == "" || input.Username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, address, phone_No, username, status are required")
	}
	status, err := enums.ParseAccountStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of pending, approved, rejected")
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.pharmacies.WithTx(tx)
		taken, err := repo.UsernameTaken(ctx, input.Username, pharmacyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "Username already in use")
		}
		found, err := repo.Update(ctx, pharmacyID, map[string]any{
			"name":     input.Name,
			"address":  input.Address,
			"phone_no": input.PhoneNo,
			"username": input.Username,
			"status":   status,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "ux_pharmacies_username") {
				return pkgerrors.New(pkgerrors.CodeConflict, "Username already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update pharmacy")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, pharmacyNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update pharmacy")
	}
	return s.PharmacyDetails(ctx, pharmacyID)
}

func (s *service) ListWholesalers(ctx context.Context) ([]wholesalers.ProfileDTO, error) {
	rows, err := s.wholesalers.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wholesalers")
	}
	out := make([]wholesalers.ProfileDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *wholesalers.NewProfileDTO(row))
	}
	return out, nil
}

func (s *service) WholesalerDetails(ctx context.Context, wholesalerID string) (*wholesalers.ProfileDTO, error) {
	if strings.TrimSpace(wholesalerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesalerId is required")
	}
	row, err := s.wholesalers.FindByID(ctx, wholesalerID)
	if err != nil {
		return nil, lookupError(err, wholesalerNotFound)
	}
	return wholesalers.NewProfileDTO(*row), nil
}

func (s *service) UpdateWholesaler(ctx context.Context, wholesalerID string, input WholesalerUpdate) (*wholesalers.ProfileDTO, error) {
	if strings.TrimSpace(wholesalerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesalerId is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Address = strings.TrimSpace(input.Address)
	input.Username = accounts.NormalizeUsername(input.Username)
	if input.Name == "" || input.Address == "" || input.Username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name, address, username, status are required")
	}
	status, err := enums.ParseAccountStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of pending, approved, rejected")
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.wholesalers.WithTx(tx)
		taken, err := repo.UsernameTaken(ctx, input.Username, wholesalerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "Username already in use")
		}
		found, err := repo.Update(ctx, wholesalerID, map[string]any{
			"name":     input.Name,
			"address":  input.Address,
			"username": input.Username,
			"status":   status,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "ux_wholesalers_username") {
				return pkgerrors.New(pkgerrors.CodeConflict, "Username already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update wholesaler")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, wholesalerNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update wholesaler")
	}
	return s.WholesalerDetails(ctx, wholesalerID)
}

func (s *service) ApprovePharmacy(ctx context.Context, actor Actor, pharmacyID string) (*DecisionResult, error) {
	return s.decidePharmacy(ctx, actor, pharmacyID, true)
}

func (s *service) RejectPharmacy(ctx context.Context, actor Actor, pharmacyID string) (*DecisionResult, error) {
	return s.decidePharmacy(ctx, actor, pharmacyID, false)
}

// decidePharmacy moves a pharmacy's onboarding status and notifies both the
// pharmacy and the acting admin in the same transaction.
func (s *service) decidePharmacy(ctx context.Context, actor Actor, pharmacyID string, approve bool) (*DecisionResult, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacyId is required")
	}

	status := enums.AccountStatusRejected
	notificationType := enums.NotificationTypeDisapprovePharmacyRequest
	pharmacyMessage := "Your pharmacy account request was rejected."
	verb := "rejected"
	if approve {
		status = enums.AccountStatusApproved
		notificationType = enums.NotificationTypeApprovePharmacyRequest
		pharmacyMessage = "Your pharmacy account has been approved."
		verb = "approved"
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.pharmacies.WithTx(tx).SetStatus(ctx, pharmacyID, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update pharmacy status")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, pharmacyNotFound)
		}
		return s.notify.Enqueue(ctx, tx,
			notifications.Subject{Type: enums.AggregatePharmacy, ID: pharmacyID},
			actorRef(actor),
			notifications.Delivery{
				RecipientRole: enums.RolePharmacy,
				Message:       pharmacyMessage,
				Type:          notificationType,
				TriggerRole:   enums.RoleAdmin,
				RecipientIDs:  []string{pharmacyID},
			},
			notifications.Delivery{
				RecipientRole: enums.RoleAdmin,
				Message:       fmt.Sprintf("Pharmacy with ID %s has been %s.", pharmacyID, verb),
				Type:          notificationType,
				TriggerRole:   enums.RoleAdmin,
				RecipientIDs:  []string{actor.AdminID},
			})
	})
	if err != nil {
		return nil, wrapTxError(err, "decide pharmacy")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"pharmacy_id": pharmacyID,
		"status":      status,
	}), "pharmacy onboarding decided")
	if !approve {
		s.endSessions(ctx, enums.RolePharmacy, pharmacyID)
	}

	return &DecisionResult{
		Message:  fmt.Sprintf("Pharmacy %s successfully", verb),
		TargetID: pharmacyID,
	}, nil
}

func (s *service) SetPharmacyActive(ctx context.Context, actor Actor, pharmacyID string, active bool) (*DecisionResult, error) {
	return s.setActive(ctx, actor, enums.RolePharmacy, pharmacyID, active)
}

func (s *service) SetWholesalerActive(ctx context.Context, actor Actor, wholesalerID string, active bool) (*DecisionResult, error) {
	return s.setActive(ctx, actor, enums.RoleWholesaler, wholesalerID, active)
}

// setActive flips the kill switch. It is independent of onboarding status;
// login checks both.
func (s *service) setActive(ctx context.Context, actor Actor, role enums.Role, targetID string, active bool) (*DecisionResult, error) {
	label, aggregate, notFound := "Pharmacy", enums.AggregatePharmacy, pharmacyNotFound
	if role == enums.RoleWholesaler {
		label, aggregate, notFound = "Wholesaler", enums.AggregateWholesaler, wholesalerNotFound
	}
	if strings.TrimSpace(targetID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%sId and is_active (true/false) are required", strings.ToLower(label)))
	}

	verb := accounts.ActivationVerb(active)
	notificationType := enums.ActivationNotificationType(role, active)

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var (
			found bool
			err   error
		)
		if role == enums.RoleWholesaler {
			found, err = s.wholesalers.WithTx(tx).SetActive(ctx, targetID, active)
		} else {
			found, err = s.pharmacies.WithTx(tx).SetActive(ctx, targetID, active)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update active flag")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
		}
		return s.notify.Enqueue(ctx, tx,
			notifications.Subject{Type: aggregate, ID: targetID},
			actorRef(actor),
			notifications.Delivery{
				RecipientRole: role,
				Message:       fmt.Sprintf("Your account has been %s.", verb),
				Type:          notificationType,
				TriggerRole:   enums.RoleAdmin,
				RecipientIDs:  []string{targetID},
			},
			notifications.Delivery{
				RecipientRole: enums.RoleAdmin,
				Message:       fmt.Sprintf("%s with ID %s has been %s.", label, targetID, verb),
				Type:          notificationType,
				TriggerRole:   enums.RoleAdmin,
				RecipientIDs:  []string{actor.AdminID},
			})
	})
	if err != nil {
		return nil, wrapTxError(err, "toggle active")
	}
	if !active {
		s.endSessions(ctx, role, targetID)
	}

	return &DecisionResult{
		Message:  fmt.Sprintf("%s has been %s successfully", label, verb),
		TargetID: targetID,
		IsActive: &active,
	}, nil
}

// endSessions revokes every live session of a blocked account so issued
// access tokens stop passing the auth middleware. Failures are logged; the
// gate still holds at the next login.
func (s *service) endSessions(ctx context.Context, role enums.Role, accountID string) {
	if s.sessions == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"account_id": accountID, "account_role": role})
	revoked, err := s.sessions.RevokeAccount(ctx, session.Owner{AccountID: accountID, Role: role})
	if err != nil {
		s.logg.Error(ctx, "revoke account sessions", err)
		return
	}
	if revoked > 0 {
		s.logg.Info(s.logg.WithField(ctx, "revoked", revoked), "account sessions revoked")
	}
}

func actorRef(actor Actor) *outbox.ActorRef {
	role := enums.RoleAdmin
	if actor.IsMainAdmin {
		role = enums.RoleSuperAdmin
	}
	return &outbox.ActorRef{AccountID: actor.AdminID, Role: role.String()}
}
