package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Offer is one product row joined with the supplier that sells it.
type Offer struct {
	ProductID         string              `gorm:"column:product_id"`
	ProductName       string              `gorm:"column:product_name"`
	Description       string              `gorm:"column:description"`
	Price             decimal.Decimal     `gorm:"column:price"`
	Quantity          int                 `gorm:"column:quantity"`
	ExpireDate        time.Time           `gorm:"column:expire_date"`
	WholesalerID      string              `gorm:"column:wholesaler_id"`
	WholesalerName    string              `gorm:"column:wholesaler_name"`
	WholesalerAddress string              `gorm:"column:wholesaler_address"`
	WholesalerStatus  enums.AccountStatus `gorm:"column:wholesaler_status"`
}

// Repository persists wholesaler catalogs.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Exists reports whether a product id is already taken.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	// ids of deleted products stay taken while a pharmacy still holds them
	err := r.db.WithContext(ctx).Model(&models.PharmacyInventory{}).Where("product_id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindOwned loads a product only when wholesalerID owns it.
func (r *Repository) FindOwned(ctx context.Context, wholesalerID, productID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND wholesaler_id = ?", productID, wholesalerID).
		Take(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByID returns nil without error when the product no longer exists.
func (r *Repository) FindByID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", productID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByName resolves a product by exact name within one wholesaler's catalog.
// Duplicate names resolve to the oldest row. A miss returns nil without error.
func (r *Repository) FindByName(ctx context.Context, wholesalerID, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("wholesaler_id = ? AND name = ?", wholesalerID, name).
		Order("created_at ASC").Order("id ASC").
		Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) ListByWholesaler(ctx context.Context, wholesalerID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("wholesaler_id = ?", wholesalerID).
		Order("created_at DESC").Order("id DESC").
		Find(&products).Error
	return products, err
}

// Update writes every mutable column of the product.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND wholesaler_id = ?", product.ID, product.WholesalerID).
		Updates(map[string]any{
			"name":              product.Name,
			"description":       product.Description,
			"price":             product.Price,
			"quantity":          product.Quantity,
			"expire_date":       product.ExpireDate,
			"last_price_update": product.LastPriceUpdate,
			"updated_at":        product.UpdatedAt,
		}).Error
}

func (r *Repository) Delete(ctx context.Context, wholesalerID, productID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND wholesaler_id = ?", productID, wholesalerID).
		Delete(&models.Product{})
	return result.RowsAffected > 0, result.Error
}

// PendingRequesters lists pharmacies holding a Pending request for the product,
// matched by snapshot id or, for older rows, by name.
func (r *Repository) PendingRequesters(ctx context.Context, wholesalerID, productID, productName string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Distinct("pharmacy_id").
		Where("wholesaler_id = ? AND status = ?", wholesalerID, enums.RequestStatusPending).
		Where("(product_id = ? OR (product_id IS NULL AND product_name = ?))", productID, productName).
		Order("pharmacy_id").
		Pluck("pharmacy_id", &ids).Error
	return ids, err
}

// Compare finds products whose name contains term, cheapest first.
func (r *Repository) Compare(ctx context.Context, term string) ([]Offer, error) {
	var offers []Offer
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	err := r.db.WithContext(ctx).Raw(`
SELECT p.id AS product_id,
       p.name AS product_name,
       p.description,
       p.price,
       p.quantity,
       p.expire_date,
       w.id AS wholesaler_id,
       w.name AS wholesaler_name,
       w.address AS wholesaler_address,
       w.status AS wholesaler_status
FROM products p
JOIN wholesalers w ON w.id = p.wholesaler_id
WHERE LOWER(p.name) LIKE ? ESCAPE '\'
ORDER BY p.price ASC, p.id ASC`, pattern).Scan(&offers).Error
	return offers, err
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
