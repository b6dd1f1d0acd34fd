package admins

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
)

// Repository persists administrator accounts.
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

func (r *Repository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindMain returns the persisted main administrator, or nil before bootstrap.
func (r *Repository) FindMain(ctx context.Context) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.WithContext(ctx).Where("is_main_admin = ?", true).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// ListIDs returns every administrator id, main admin included.
func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Admin{}).Order("created_at ASC").Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Admin, error) {
	var rows []models.Admin
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// UsernameTaken reports whether an administrator other than excludeID uses username.
func (r *Repository) UsernameTaken(ctx context.Context, username string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Admin{}).Where("username = ?", username)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// Delete never removes the main administrator.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND is_main_admin = ?", id, false).Delete(&models.Admin{})
	return result.RowsAffected > 0, result.Error
}
