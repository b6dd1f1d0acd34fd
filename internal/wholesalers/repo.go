package wholesalers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Repository persists wholesaler accounts.
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

func (r *Repository) Create(ctx context.Context, wholesaler *models.Wholesaler) error {
	return r.db.WithContext(ctx).Create(wholesaler).Error
}

// Exists reports whether a wholesaler id is taken.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Wholesaler{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Wholesaler, error) {
	var wholesaler models.Wholesaler
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&wholesaler).Error; err != nil {
		return nil, err
	}
	return &wholesaler, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.Wholesaler, error) {
	var wholesaler models.Wholesaler
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&wholesaler).Error; err != nil {
		return nil, err
	}
	return &wholesaler, nil
}

// UsernameTaken reports whether another wholesaler than excludeID uses username.
func (r *Repository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Wholesaler{}).Where("username = ?", username)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(ctx context.Context) ([]models.Wholesaler, error) {
	var rows []models.Wholesaler
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// Update writes the given columns and reports whether the wholesaler exists.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Wholesaler{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) SetStatus(ctx context.Context, id string, status enums.AccountStatus) (bool, error) {
	return r.Update(ctx, id, map[string]any{"status": status})
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	return r.Update(ctx, id, map[string]any{"is_active": active})
}

func (r *Repository) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).Model(&models.Wholesaler{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Wholesaler{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountByStatus(ctx context.Context, status enums.AccountStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Wholesaler{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// CreatedSince loads creation times of wholesalers registered at or after since.
// Bucketing happens in Go so the query stays portable across drivers.
func (r *Repository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.Wholesaler{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &stamps).Error
	return stamps, err
}
