package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
)

const notFoundMessage = "Product not found or not authorized"

// MaxStock bounds a listed product quantity.
const MaxStock = 1_000_000_000

// price is numeric(12,2).
var maxPrice = decimal.New(1, 10)

// Service exposes wholesaler catalog management and public price comparison.
type Service interface {
	Add(ctx context.Context, wholesalerID string, input ProductInput) (*ProductDTO, error)
	List(ctx context.Context, wholesalerID string) ([]ProductDTO, error)
	Update(ctx context.Context, wholesalerID, productID string, input ProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, wholesalerID, productID string) error
	Compare(ctx context.Context, name string) ([]OfferDTO, error)
}

// ProductInput carries every writable product field. Update replaces them all.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	ExpireDate  time.Time
}

type enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, subject notifications.Subject, actor *outbox.ActorRef, deliveries ...notifications.Delivery) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	ids      *idgen.Generator
	notify   enqueuer
	now      func() time.Time
}

func NewService(repo *Repository, dbClient *db.Client, ids *idgen.Generator, notify *notifications.Enqueuer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification enqueuer required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		ids:      ids,
		notify:   notify,
		now:      time.Now,
	}, nil
}

func (s *service) Add(ctx context.Context, wholesalerID string, input ProductInput) (*ProductDTO, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	id, err := s.ids.Unique(ctx, idgen.KindProduct, s.repo.Exists)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &models.Product{
		ID:           id,
		WholesalerID: wholesalerID,
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		Quantity:     input.Quantity,
		ExpireDate:   input.ExpireDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		return s.notify.Enqueue(ctx, tx, productSubject(id), wholesalerActor(wholesalerID),
			ownerDelivery(wholesalerID, fmt.Sprintf("You added a new product: %s", product.Name)))
	}); err != nil {
		return nil, wrapTxError(err, "add product")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) List(ctx context.Context, wholesalerID string) ([]ProductDTO, error) {
	products, err := s.repo.ListByWholesaler(ctx, wholesalerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductDTO(p))
	}
	return out, nil
}

// Update replaces the product fields. A price change stamps last_price_update
// and tells every pharmacy still waiting on a Pending request. Request totals
// are snapshots and stay as they were.
func (s *service) Update(ctx context.Context, wholesalerID, productID string, input ProductInput) (*ProductDTO, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	var updated models.Product
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := txRepo.FindOwned(ctx, wholesalerID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		oldName := current.Name
		oldPrice := current.Price
		priceChanged := !oldPrice.Equal(input.Price)
		now := s.now().UTC()

		updated = *current
		updated.Name = input.Name
		updated.Description = input.Description
		updated.Price = input.Price
		updated.Quantity = input.Quantity
		updated.ExpireDate = input.ExpireDate
		updated.UpdatedAt = now
		if priceChanged {
			updated.LastPriceUpdate = &now
		}
		if err := txRepo.Update(ctx, &updated); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		deliveries := []notifications.Delivery{
			ownerDelivery(wholesalerID, fmt.Sprintf("You updated your product: %s", updated.Name)),
		}
		if priceChanged {
			pharmacies, err := txRepo.PendingRequesters(ctx, wholesalerID, productID, oldName)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending requesters")
			}
			deliveries = append(deliveries, notifications.Delivery{
				RecipientRole: enums.RolePharmacy,
				Message: fmt.Sprintf("Price for %s changed from $%s to $%s",
					oldName, oldPrice.StringFixed(2), updated.Price.StringFixed(2)),
				Type:         enums.NotificationTypeProduct,
				TriggerRole:  enums.RoleWholesaler,
				RecipientIDs: pharmacies,
			})
		}
		return s.notify.Enqueue(ctx, tx, productSubject(productID), wholesalerActor(wholesalerID), deliveries...)
	}); err != nil {
		return nil, wrapTxError(err, "update product")
	}
	dto := NewProductDTO(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, wholesalerID, productID string) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := txRepo.FindOwned(ctx, wholesalerID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if _, err := txRepo.Delete(ctx, wholesalerID, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return s.notify.Enqueue(ctx, tx, productSubject(productID), wholesalerActor(wholesalerID),
			ownerDelivery(wholesalerID, fmt.Sprintf("You deleted your product: %s", current.Name)))
	})
	if err != nil {
		return wrapTxError(err, "delete product")
	}
	return nil
}

func (s *service) Compare(ctx context.Context, name string) ([]OfferDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, `Query parameter "name" is required`)
	}
	offers, err := s.repo.Compare(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compare prices")
	}
	out := make([]OfferDTO, 0, len(offers))
	for _, o := range offers {
		out = append(out, newOfferDTO(o))
	}
	return out, nil
}

func normalizeInput(input ProductInput) (ProductInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" || input.ExpireDate.IsZero() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "Name, price, quantity, and expire_date are required")
	}
	if !input.Price.IsPositive() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if input.Quantity < 0 || input.Quantity > MaxStock {
		return input, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 0 and %d", MaxStock))
	}
	input.Price = input.Price.Round(2)
	if input.Price.GreaterThanOrEqual(maxPrice) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price exceeds the allowed maximum")
	}
	y, m, d := input.ExpireDate.Date()
	input.ExpireDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return input, nil
}

func ownerDelivery(wholesalerID, message string) notifications.Delivery {
	return notifications.Delivery{
		RecipientRole: enums.RoleWholesaler,
		Message:       message,
		Type:          enums.NotificationTypeProduct,
		TriggerRole:   enums.RoleWholesaler,
		RecipientIDs:  []string{wholesalerID},
	}
}

func productSubject(id string) notifications.Subject {
	return notifications.Subject{Type: enums.AggregateProduct, ID: id}
}

func wholesalerActor(id string) *outbox.ActorRef {
	return &outbox.ActorRef{AccountID: id, Role: enums.RoleWholesaler.String()}
}

func wrapTxError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
