package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
)

// Holding is one inventory row with its catalog product and supplier when
// they still exist. Catalog columns are nil once the product is deleted.
type Holding struct {
	ProductID         string              `gorm:"column:product_id"`
	ProductName       string              `gorm:"column:product_name"`
	Description       string              `gorm:"column:description"`
	CatalogPrice      decimal.NullDecimal `gorm:"column:catalog_price"`
	AcquiredPrice     decimal.Decimal     `gorm:"column:acquired_price"`
	ExpireDate        *time.Time          `gorm:"column:expire_date"`
	LastPriceUpdate   *time.Time          `gorm:"column:last_price_update"`
	InCatalog         bool                `gorm:"column:in_catalog"`
	Quantity          int                 `gorm:"column:quantity"`
	LastUpdated       time.Time           `gorm:"column:last_updated"`
	WholesalerID      string              `gorm:"column:wholesaler_id"`
	WholesalerName    string              `gorm:"column:wholesaler_name"`
	WholesalerAddress string              `gorm:"column:wholesaler_address"`
}

const holdingQuery = `
SELECT pi.product_id,
       COALESCE(p.name, pi.product_name) AS product_name,
       COALESCE(p.description, '') AS description,
       p.price AS catalog_price,
       pi.unit_price AS acquired_price,
       p.expire_date,
       p.last_price_update,
       (p.id IS NOT NULL) AS in_catalog,
       pi.quantity,
       pi.last_updated,
       pi.wholesaler_id,
       COALESCE(w.name, '') AS wholesaler_name,
       COALESCE(w.address, '') AS wholesaler_address
FROM pharmacy_inventory pi
LEFT JOIN products p ON p.id = pi.product_id
LEFT JOIN wholesalers w ON w.id = pi.wholesaler_id
WHERE pi.pharmacy_id = ?`

// Accrual is one approved quantity entering a pharmacy's stock.
type Accrual struct {
	PharmacyID   string
	ProductID    string
	WholesalerID string
	ProductName  string
	UnitPrice    decimal.Decimal
	Quantity     int
}

// Repository persists pharmacy inventory.
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

// Accrue adds a.Quantity to the (pharmacy, product) row, inserting it when
// absent, and refreshes the snapshot to the latest approval. The increment
// happens in a single statement so concurrent approvals add up.
func (r *Repository) Accrue(ctx context.Context, tx *gorm.DB, a Accrual, now time.Time) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	row := models.PharmacyInventory{
		PharmacyID:   a.PharmacyID,
		ProductID:    a.ProductID,
		WholesalerID: a.WholesalerID,
		ProductName:  a.ProductName,
		UnitPrice:    a.UnitPrice,
		Quantity:     a.Quantity,
		LastUpdated:  now.UTC(),
	}
	return conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pharmacy_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":     gorm.Expr("pharmacy_inventory.quantity + excluded.quantity"),
			"product_name": gorm.Expr("excluded.product_name"),
			"unit_price":   gorm.Expr("excluded.unit_price"),
			"last_updated": gorm.Expr("excluded.last_updated"),
		}),
	}).Create(&row).Error
}

// ListForPharmacy returns holdings ordered by product name then acquired price.
func (r *Repository) ListForPharmacy(ctx context.Context, pharmacyID string) ([]Holding, error) {
	var rows []Holding
	err := r.db.WithContext(ctx).
		Raw(holdingQuery+"\nORDER BY product_name ASC, pi.unit_price ASC", pharmacyID).
		Scan(&rows).Error
	return rows, err
}

// Get returns gorm.ErrRecordNotFound when the pharmacy holds no row for the product.
func (r *Repository) Get(ctx context.Context, pharmacyID, productID string) (*Holding, error) {
	var rows []Holding
	err := r.db.WithContext(ctx).
		Raw(holdingQuery+" AND pi.product_id = ?\nLIMIT 1", pharmacyID, productID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// Quantity reads the raw stored quantity. Missing rows report zero.
func (r *Repository) Quantity(ctx context.Context, pharmacyID, productID string) (int, error) {
	var row models.PharmacyInventory
	err := r.db.WithContext(ctx).
		Where("pharmacy_id = ? AND product_id = ?", pharmacyID, productID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Quantity, nil
}

// SetQuantity overwrites the stored quantity and reports whether a row matched.
func (r *Repository) SetQuantity(ctx context.Context, pharmacyID, productID string, qty int, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PharmacyInventory{}).
		Where("pharmacy_id = ? AND product_id = ?", pharmacyID, productID).
		UpdateColumns(map[string]any{
			"quantity":     qty,
			"last_updated": now.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
