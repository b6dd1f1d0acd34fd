package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/internal/catalog"
	"github.com/angelmondragon/pharmalink-backend/internal/inventory"
	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/metrics"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
)

const (
	transitionCreate  = "create"
	transitionApprove = "approve"
	transitionReject  = "reject"
	transitionCancel  = "cancel"

	requestNotFoundMessage = "Request not found or not authorized"
)

// Service runs the request lifecycle and the pharmacy views derived from it.
type Service interface {
	Create(ctx context.Context, pharmacyID string, input CreateInput) (*CreateResult, error)
	ListForPharmacy(ctx context.Context, pharmacyID string) ([]PharmacyRequestDTO, error)
	ListForWholesaler(ctx context.Context, wholesalerID string) ([]IncomingRequestDTO, error)
	Approve(ctx context.Context, wholesalerID, requestID string) (*TransitionResult, error)
	Reject(ctx context.Context, wholesalerID, requestID string) (*TransitionResult, error)
	Cancel(ctx context.Context, wholesalerID, requestID string) (*TransitionResult, error)

	Notifications(ctx context.Context, pharmacyID string) ([]RequestNotificationDTO, error)
	MarkNotificationRead(ctx context.Context, pharmacyID, requestID string) error
	Orders(ctx context.Context, pharmacyID string) ([]OrderDTO, error)
	Dashboard(ctx context.Context, pharmacyID string) (*DashboardDTO, error)
}

// CreateInput names the product by its catalog name under one wholesaler.
type CreateInput struct {
	ProductName  string
	Quantity     int
	WholesalerID string
}

type enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, subject notifications.Subject, actor *outbox.ActorRef, deliveries ...notifications.Delivery) error
}

type workflowMetrics interface {
	IncTransition(transition, outcome string)
	IncAccrualSkipped()
}

// ServiceParams wires the request service.
type ServiceParams struct {
	Repository *Repository
	Catalog    *catalog.Repository
	Inventory  *inventory.Repository
	DB         *db.Client
	IDs        *idgen.Generator
	Notify     *notifications.Enqueuer
	Logger     *logger.Logger
	Metrics    *metrics.WorkflowMetrics
}

type service struct {
	repo      *Repository
	catalog   *catalog.Repository
	inventory *inventory.Repository
	dbClient  *db.Client
	ids       *idgen.Generator
	notify    enqueuer
	logg      *logger.Logger
	metrics   workflowMetrics
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("request repository required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory repository required")
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
		repo:      params.Repository,
		catalog:   params.Catalog,
		inventory: params.Inventory,
		dbClient:  params.DB,
		ids:       params.IDs,
		notify:    params.Notify,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

// MaxQuantity bounds a single request.
const MaxQuantity = 1_000_000

// total_amount is numeric(14,2).
var maxTotalAmount = decimal.New(1, 12)

// Create snapshots the product id, name and unit price so later catalog edits
// never change what was requested.
func (s *service) Create(ctx context.Context, pharmacyID string, input CreateInput) (*CreateResult, error) {
	input.ProductName = strings.TrimSpace(input.ProductName)
	input.WholesalerID = strings.TrimSpace(input.WholesalerID)
	if input.ProductName == "" || input.WholesalerID == "" || input.Quantity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product name, quantity, and wholesaler ID are required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if input.Quantity > MaxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must not exceed %d", MaxQuantity))
	}

	var created models.Request
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.catalog.WithTx(tx).FindByName(ctx, input.WholesalerID, input.ProductName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found for this wholesaler")
		}

		total := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2)
		if total.GreaterThanOrEqual(maxTotalAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "total amount exceeds the allowed maximum").
				WithDetails(map[string]any{"total_amount": total.StringFixed(2)})
		}

		txRepo := s.repo.WithTx(tx)
		id, err := s.ids.Unique(ctx, idgen.KindRequest, txRepo.Exists)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		productID := product.ID
		created = models.Request{
			ID:              id,
			PharmacyID:      pharmacyID,
			WholesalerID:    input.WholesalerID,
			ProductID:       &productID,
			ProductName:     product.Name,
			Quantity:        input.Quantity,
			UnitPrice:       product.Price,
			TotalAmount:     total,
			Status:          enums.RequestStatusPending,
			OrderDate:       dateOnly(now),
			RequestDatetime: now,
			UpdatedAt:       now,
		}
		if err := txRepo.Create(ctx, &created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert request")
		}
		return s.notify.Enqueue(ctx, tx, requestSubject(id), actorRef(pharmacyID, enums.RolePharmacy), notifications.Delivery{
			RecipientRole: enums.RoleWholesaler,
			Message:       fmt.Sprintf("New request for %d units of %s", created.Quantity, created.ProductName),
			Type:          enums.NotificationTypeRequest,
			TriggerRole:   enums.RolePharmacy,
			RecipientIDs:  []string{created.WholesalerID},
		})
	})
	s.record(transitionCreate, err)
	if err != nil {
		return nil, wrapTxError(err, "create request")
	}
	return newCreateResult(created), nil
}

// Approve moves a Pending request to Approved, assigns the order id and
// accrues inventory in the same transaction as the notification enqueue.
// A request that is no longer Pending is a conflict.
func (s *service) Approve(ctx context.Context, wholesalerID, requestID string) (*TransitionResult, error) {
	var result TransitionResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		req, err := s.loadForTransition(ctx, txRepo, wholesalerID, requestID, enums.RequestStatusPending)
		if err != nil {
			return err
		}

		orderID, err := s.ids.Unique(ctx, idgen.KindOrder, txRepo.OrderExists)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		total := req.TotalAmount.StringFixed(2)
		pharmacyMessage := fmt.Sprintf("Your request for %d units of %s (Total: %s) has been approved. Order ID: %s",
			req.Quantity, req.ProductName, total, orderID)
		wholesalerMessage := fmt.Sprintf("You approved a request for %d units of %s (Total: %s) for pharmacy %s.",
			req.Quantity, req.ProductName, total, req.PharmacyID)

		rows, err := txRepo.Transition(ctx, wholesalerID, requestID, enums.RequestStatusPending, map[string]any{
			"status":               enums.RequestStatusApproved,
			"order_id":             orderID,
			"approved_datetime":    now,
			"notification_message": pharmacyMessage,
			"notification_sent":    false,
			"updated_at":           now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: approve request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was modified concurrently")
		}

		if err := s.accrue(ctx, tx, req, now); err != nil {
			return err
		}

		if err := s.notify.Enqueue(ctx, tx, requestSubject(requestID), actorRef(wholesalerID, enums.RoleWholesaler),
			decisionDeliveries(req, wholesalerID, pharmacyMessage, wholesalerMessage, enums.NotificationTypeRequestApproved)...); err != nil {
			return err
		}

		result = TransitionResult{
			RequestID:   requestID,
			Status:      enums.RequestStatusApproved,
			OrderID:     &orderID,
			TotalAmount: total,
		}
		return nil
	})
	s.record(transitionApprove, err)
	if err != nil {
		return nil, wrapTxError(err, "approve request")
	}
	return &result, nil
}

func (s *service) Reject(ctx context.Context, wholesalerID, requestID string) (*TransitionResult, error) {
	var result TransitionResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		req, err := s.loadForTransition(ctx, txRepo, wholesalerID, requestID, enums.RequestStatusPending)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		total := req.TotalAmount.StringFixed(2)
		pharmacyMessage := fmt.Sprintf("Your request for %d units of %s (Total: %s) has been rejected.",
			req.Quantity, req.ProductName, total)
		wholesalerMessage := fmt.Sprintf("You rejected a request for %d units of %s (Total: %s) for pharmacy %s.",
			req.Quantity, req.ProductName, total, req.PharmacyID)

		rows, err := txRepo.Transition(ctx, wholesalerID, requestID, enums.RequestStatusPending, map[string]any{
			"status":               enums.RequestStatusRejected,
			"notification_message": pharmacyMessage,
			"notification_sent":    false,
			"updated_at":           now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reject request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was modified concurrently")
		}

		if err := s.notify.Enqueue(ctx, tx, requestSubject(requestID), actorRef(wholesalerID, enums.RoleWholesaler),
			decisionDeliveries(req, wholesalerID, pharmacyMessage, wholesalerMessage, enums.NotificationTypeRequestRejected)...); err != nil {
			return err
		}

		result = TransitionResult{
			RequestID:   requestID,
			Status:      enums.RequestStatusRejected,
			TotalAmount: total,
		}
		return nil
	})
	s.record(transitionReject, err)
	if err != nil {
		return nil, wrapTxError(err, "reject request")
	}
	return &result, nil
}

// Cancel returns an Approved request to Pending. Inventory already accrued
// by the approval stays where it is.
func (s *service) Cancel(ctx context.Context, wholesalerID, requestID string) (*TransitionResult, error) {
	var result TransitionResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		req, err := s.loadForTransition(ctx, txRepo, wholesalerID, requestID, enums.RequestStatusApproved)
		if err != nil {
			return err
		}

		rows, err := txRepo.Transition(ctx, wholesalerID, requestID, enums.RequestStatusApproved, map[string]any{
			"status":               enums.RequestStatusPending,
			"order_id":             nil,
			"approved_datetime":    nil,
			"notification_message": nil,
			"notification_sent":    false,
			"updated_at":           s.now().UTC(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was modified concurrently")
		}

		result = TransitionResult{
			RequestID:   requestID,
			Status:      enums.RequestStatusPending,
			TotalAmount: req.TotalAmount.StringFixed(2),
		}
		return nil
	})
	s.record(transitionCancel, err)
	if err != nil {
		return nil, wrapTxError(err, "cancel request")
	}
	return &result, nil
}

// loadForTransition merges missing and foreign requests into one not-found
// answer so a wholesaler cannot learn which request ids other tenants hold.
func (s *service) loadForTransition(ctx context.Context, repo *Repository, wholesalerID, requestID string, from enums.RequestStatus) (*models.Request, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	req, err := repo.FindForWholesaler(ctx, wholesalerID, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, requestNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	if req.Status != from {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("request is %s; expected %s", req.Status, from)).
			WithDetails(map[string]any{"status": req.Status})
	}
	return req, nil
}

// accrue resolves the product through the snapshot id first and the
// (wholesaler, name) pair second. A product that no longer exists skips
// accrual without failing the approval.
func (s *service) accrue(ctx context.Context, tx *gorm.DB, req *models.Request, now time.Time) error {
	txCatalog := s.catalog.WithTx(tx)
	var product *models.Product
	var err error
	if req.ProductID != nil {
		product, err = txCatalog.FindByID(ctx, *req.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for accrual")
		}
	}
	if product == nil {
		product, err = txCatalog.FindByName(ctx, req.WholesalerID, req.ProductName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for accrual")
		}
	}
	if product == nil {
		s.metrics.IncAccrualSkipped()
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"request_id":    req.ID,
			"pharmacy_id":   req.PharmacyID,
			"wholesaler_id": req.WholesalerID,
			"product_name":  req.ProductName,
		})
		s.logg.Warn(logCtx, "inventory accrual skipped: product no longer in catalog")
		return nil
	}
	accrual := inventory.Accrual{
		PharmacyID:   req.PharmacyID,
		ProductID:    product.ID,
		WholesalerID: product.WholesalerID,
		ProductName:  product.Name,
		UnitPrice:    req.UnitPrice,
		Quantity:     req.Quantity,
	}
	if err := s.inventory.Accrue(ctx, tx, accrual, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: accrue inventory")
	}
	return nil
}

func (s *service) record(transition string, err error) {
	switch {
	case err == nil:
		s.metrics.IncTransition(transition, metrics.OutcomeApplied)
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.metrics.IncTransition(transition, metrics.OutcomeNotFound)
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		s.metrics.IncTransition(transition, metrics.OutcomeConflict)
	default:
		s.metrics.IncTransition(transition, metrics.OutcomeError)
	}
}

func decisionDeliveries(req *models.Request, wholesalerID, pharmacyMessage, wholesalerMessage string, typ enums.NotificationType) []notifications.Delivery {
	return []notifications.Delivery{
		{
			RecipientRole: enums.RolePharmacy,
			Message:       pharmacyMessage,
			Type:          typ,
			TriggerRole:   enums.RoleWholesaler,
			RecipientIDs:  []string{req.PharmacyID},
		},
		{
			RecipientRole: enums.RoleWholesaler,
			Message:       wholesalerMessage,
			Type:          typ,
			TriggerRole:   enums.RoleWholesaler,
			RecipientIDs:  []string{wholesalerID},
		},
	}
}

func requestSubject(id string) notifications.Subject {
	return notifications.Subject{Type: enums.AggregateRequest, ID: id}
}

func actorRef(id string, role enums.Role) *outbox.ActorRef {
	return &outbox.ActorRef{AccountID: id, Role: role.String()}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func wrapTxError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
