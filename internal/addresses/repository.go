package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
)

// Repository defines persistence operations for user address books.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, address *models.Address) (*models.Address, error)
	Update(ctx context.Context, addressID uuid.UUID, updates map[string]any) error
	FindByID(ctx context.Context, addressID uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Delete(ctx context.Context, addressID uuid.UUID) error
	ClearDefault(ctx context.Context, userID uuid.UUID) error
	SetDefault(ctx context.Context, addressID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, address *models.Address) (*models.Address, error) {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return nil, err
	}
	return address, nil
}

func (r *repository) Update(ctx context.Context, addressID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ?", addressID).
		Updates(updates).Error
}

func (r *repository) FindByID(ctx context.Context, addressID uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).First(&address, "id = ?", addressID).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Delete(ctx context.Context, addressID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", addressID).
		Delete(&models.Address{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearDefault unsets the default flag across a user's book. Always run
// inside the same transaction as the subsequent SetDefault.
func (r *repository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

func (r *repository) SetDefault(ctx context.Context, addressID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ?", addressID).
		Update("is_default", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
