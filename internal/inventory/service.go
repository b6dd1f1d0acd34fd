package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
)

// MaxQuantity bounds a manual stock count.
const MaxQuantity = 1_000_000_000

// Service exposes the pharmacy-facing inventory views.
type Service interface {
	List(ctx context.Context, pharmacyID string) ([]HoldingDTO, error)
	Get(ctx context.Context, pharmacyID, productID string) (*HoldingDTO, error)
	SetQuantity(ctx context.Context, pharmacyID, productID string, quantity int) (*HoldingDTO, error)
}

// HoldingDTO is the wire shape of one inventory row. Price is the current
// catalog price, or the acquired price once the product left the catalog.
type HoldingDTO struct {
	ProductID         string     `json:"product_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Price             string     `json:"price"`
	AcquiredPrice     string     `json:"acquired_price"`
	InCatalog         bool       `json:"in_catalog"`
	Quantity          int        `json:"quantity"`
	ExpireDate        string     `json:"expire_date,omitempty"`
	LastPriceUpdate   *time.Time `json:"last_price_update,omitempty"`
	LastUpdated       time.Time  `json:"last_updated"`
	WholesalerID      string     `json:"wholesaler_id"`
	WholesalerName    string     `json:"wholesaler_name"`
	WholesalerAddress string     `json:"wholesaler_address"`
}

func newHoldingDTO(h Holding) HoldingDTO {
	price := h.AcquiredPrice
	if h.CatalogPrice.Valid {
		price = h.CatalogPrice.Decimal
	}
	dto := HoldingDTO{
		ProductID:         h.ProductID,
		Name:              h.ProductName,
		Description:       h.Description,
		Price:             price.StringFixed(2),
		AcquiredPrice:     h.AcquiredPrice.StringFixed(2),
		InCatalog:         h.InCatalog,
		Quantity:          h.Quantity,
		LastPriceUpdate:   h.LastPriceUpdate,
		LastUpdated:       h.LastUpdated,
		WholesalerID:      h.WholesalerID,
		WholesalerName:    h.WholesalerName,
		WholesalerAddress: h.WholesalerAddress,
	}
	if h.ExpireDate != nil {
		dto.ExpireDate = h.ExpireDate.Format(time.DateOnly)
	}
	return dto
}

type holdingStore interface {
	ListForPharmacy(ctx context.Context, pharmacyID string) ([]Holding, error)
	Get(ctx context.Context, pharmacyID, productID string) (*Holding, error)
	SetQuantity(ctx context.Context, pharmacyID, productID string, qty int, now time.Time) (bool, error)
}

type service struct {
	repo holdingStore
	now  func() time.Time
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, pharmacyID string) ([]HoldingDTO, error) {
	rows, err := s.repo.ListForPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	out := make([]HoldingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newHoldingDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, pharmacyID, productID string) (*HoldingDTO, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	row, err := s.repo.Get(ctx, pharmacyID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found in your inventory")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	dto := newHoldingDTO(*row)
	return &dto, nil
}

// SetQuantity is an absolute overwrite. It never creates a row.
func (s *service) SetQuantity(ctx context.Context, pharmacyID, productID string, quantity int) (*HoldingDTO, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 0 || quantity > MaxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Quantity must be between 0 and %d", MaxQuantity))
	}
	found, err := s.repo.SetQuantity(ctx, pharmacyID, productID, quantity, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found in your inventory")
	}
	return s.Get(ctx, pharmacyID, productID)
}
