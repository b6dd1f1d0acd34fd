package requests

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

const (
	requestNotificationLimit = 20
	recentOrdersLimit        = 5
)

// IncomingRow is a request as the receiving wholesaler sees it.
type IncomingRow struct {
	models.Request
	PharmacyName string `gorm:"column:pharmacy_name"`
}

// OrderRow is an approved request joined with its supplier.
type OrderRow struct {
	OrderID           string          `gorm:"column:order_id"`
	RequestID         string          `gorm:"column:request_id"`
	ProductName       string          `gorm:"column:product_name"`
	Quantity          int             `gorm:"column:quantity"`
	TotalAmount       decimal.Decimal `gorm:"column:total_amount"`
	OrderDate         time.Time       `gorm:"column:order_date"`
	ApprovedDatetime  *time.Time      `gorm:"column:approved_datetime"`
	Status            string          `gorm:"column:status"`
	WholesalerName    string          `gorm:"column:wholesaler_name"`
	WholesalerAddress string          `gorm:"column:wholesaler_address"`
}

// Repository persists purchase requests.
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

func (r *Repository) Create(ctx context.Context, req *models.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// Exists reports whether a request id is taken.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Request{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// OrderExists reports whether an order id is taken.
func (r *Repository) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Request{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}

// FindForWholesaler loads a request only when it targets wholesalerID.
func (r *Repository) FindForWholesaler(ctx context.Context, wholesalerID, requestID string) (*models.Request, error) {
	var req models.Request
	err := r.db.WithContext(ctx).
		Where("id = ? AND wholesaler_id = ?", requestID, wholesalerID).
		Take(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindForPharmacy loads a request only when pharmacyID placed it.
func (r *Repository) FindForPharmacy(ctx context.Context, pharmacyID, requestID string) (*models.Request, error) {
	var req models.Request
	err := r.db.WithContext(ctx).
		Where("id = ? AND pharmacy_id = ?", requestID, pharmacyID).
		Take(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Transition applies updates only while the row is still in the expected
// status. Zero rows affected means another writer moved it first.
func (r *Repository) Transition(ctx context.Context, wholesalerID, requestID string, from enums.RequestStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND wholesaler_id = ? AND status = ?", requestID, wholesalerID, from).
		UpdateColumns(updates)
	return result.RowsAffected, result.Error
}

// ListForPharmacy hides synthetic notification rows.
func (r *Repository) ListForPharmacy(ctx context.Context, pharmacyID string) ([]models.Request, error) {
	var rows []models.Request
	err := r.db.WithContext(ctx).
		Where("pharmacy_id = ? AND status <> ?", pharmacyID, enums.RequestStatusNotification).
		Order("request_datetime DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListForWholesaler(ctx context.Context, wholesalerID string) ([]IncomingRow, error) {
	var rows []IncomingRow
	err := r.db.WithContext(ctx).
		Table("requests AS r").
		Select("r.*, p.name AS pharmacy_name").
		Joins("JOIN pharmacies p ON p.id = r.pharmacy_id").
		Where("r.wholesaler_id = ?", wholesalerID).
		Order("r.request_datetime DESC").Order("r.id DESC").
		Scan(&rows).Error
	return rows, err
}

// RequestNotifications returns the latest requests carrying a pharmacy-facing message.
func (r *Repository) RequestNotifications(ctx context.Context, pharmacyID string) ([]models.Request, error) {
	var rows []models.Request
	err := r.db.WithContext(ctx).
		Where("pharmacy_id = ?", pharmacyID).
		Where("(status IN ? OR notification_message IS NOT NULL)", []enums.RequestStatus{
			enums.RequestStatusApproved,
			enums.RequestStatusRejected,
			enums.RequestStatusNotification,
		}).
		Order("request_datetime DESC").Order("id DESC").
		Limit(requestNotificationLimit).
		Find(&rows).Error
	return rows, err
}

// MarkNotificationSent flags the request message as read by its pharmacy.
func (r *Repository) MarkNotificationSent(ctx context.Context, pharmacyID, requestID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND pharmacy_id = ?", requestID, pharmacyID).
		UpdateColumn("notification_sent", true)
	return result.RowsAffected > 0, result.Error
}

// Orders lists approved requests newest first. limit <= 0 returns all.
func (r *Repository) Orders(ctx context.Context, pharmacyID string, limit int) ([]OrderRow, error) {
	var rows []OrderRow
	q := r.db.WithContext(ctx).
		Table("requests AS r").
		Select(`r.order_id, r.id AS request_id, r.product_name, r.quantity, r.total_amount,
       r.order_date, r.approved_datetime, r.status,
       w.name AS wholesaler_name, w.address AS wholesaler_address`).
		Joins("JOIN wholesalers w ON w.id = r.wholesaler_id").
		Where("r.pharmacy_id = ? AND r.status = ? AND r.order_id IS NOT NULL", pharmacyID, enums.RequestStatusApproved).
		Order("r.approved_datetime DESC").Order("r.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&rows).Error
	return rows, err
}

// CountByStatus counts the pharmacy's requests in one status.
func (r *Repository) CountByStatus(ctx context.Context, pharmacyID string, status enums.RequestStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("pharmacy_id = ? AND status = ?", pharmacyID, status).
		Count(&count).Error
	return count, err
}

// ApprovedTotals returns the snapshotted totals of every approved request.
func (r *Repository) ApprovedTotals(ctx context.Context, pharmacyID string) ([]decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("pharmacy_id = ? AND status = ?", pharmacyID, enums.RequestStatusApproved).
		Pluck("total_amount", &totals).Error
	return totals, err
}
