package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// Repository defines persistence operations for product reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	Update(ctx context.Context, reviewID uuid.UUID, rating int, comment *string) error
	FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error)
	Delete(ctx context.Context, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error)
	Aggregate(ctx context.Context, productID uuid.UUID) (float64, int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reviews repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (r *repository) Update(ctx context.Context, reviewID uuid.UUID, rating int, comment *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", reviewID).
		Updates(map[string]any{"rating": rating, "comment": comment}).Error
}

func (r *repository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) Delete(ctx context.Context, reviewID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", reviewID).
		Delete(&models.Review{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("product_id = ?", productID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Review
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page, hasMore := pagination.TrimPage(rows, params.Limit)
	list := &ReviewList{Reviews: make([]ReviewDTO, 0, len(page))}
	for i := range page {
		list.Reviews = append(list.Reviews, *FromModel(&page[i]))
	}
	if hasMore && len(page) > 0 {
		last := page[len(page)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

// Aggregate recomputes the product's rating with a full scan. Runs in
// the same transaction as the mutation that triggered it.
func (r *repository) Aggregate(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	var result struct {
		Average float64
		Count   int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}
	return result.Average, result.Count, nil
}
