package pharmacies

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// Repository persists pharmacy accounts.
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

func (r *Repository) Create(ctx context.Context, pharmacy *models.Pharmacy) error {
	return r.db.WithContext(ctx).Create(pharmacy).Error
}

// Exists reports whether a pharmacy id is taken.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Pharmacy{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Pharmacy, error) {
	var pharmacy models.Pharmacy
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&pharmacy).Error; err != nil {
		return nil, err
	}
	return &pharmacy, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.Pharmacy, error) {
	var pharmacy models.Pharmacy
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&pharmacy).Error; err != nil {
		return nil, err
	}
	return &pharmacy, nil
}

// UsernameTaken reports whether another pharmacy than excludeID uses username.
func (r *Repository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Pharmacy{}).Where("username = ?", username)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(ctx context.Context) ([]models.Pharmacy, error) {
	var rows []models.Pharmacy
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// Update writes the given columns and reports whether the pharmacy exists.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Pharmacy{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) SetStatus(ctx context.Context, id string, status enums.AccountStatus) (bool, error) {
	return r.Update(ctx, id, map[string]any{"status": status})
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	return r.Update(ctx, id, map[string]any{"is_active": active})
}

func (r *Repository) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).Model(&models.Pharmacy{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Pharmacy{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountByStatus(ctx context.Context, status enums.AccountStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Pharmacy{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
