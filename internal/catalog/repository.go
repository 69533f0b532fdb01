package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// Repository defines persistence operations for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, productID uuid.UUID, updates map[string]any) error
	FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error)
	List(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	DistinctCategories(ctx context.Context) ([]enums.ProductCategory, error)
	DecrementStockIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error
	UpdateRating(ctx context.Context, productID uuid.UUID, average string, count int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.ImageURLs == nil {
		product.ImageURLs = pq.StringArray{}
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, productID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(updates).Error
}

func (r *repository) FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if !filters.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.SellerID != nil {
		query = query.Where("seller_id = ?", *filters.SellerID)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}

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

	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page, hasMore := pagination.TrimPage(rows, params.Limit)
	list := &ProductList{Products: make([]ProductDTO, 0, len(page))}
	for i := range page {
		list.Products = append(list.Products, *FromModel(&page[i]))
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

// DistinctCategories returns the categories that currently have at
// least one active product.
func (r *repository) DistinctCategories(ctx context.Context) ([]enums.ProductCategory, error) {
	var categories []enums.ProductCategory
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("category").
		Where("is_active = ?", true).
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// DecrementStockIfAvailable performs the atomic conditional decrement that
// guards order placement. The WHERE clause is the only stock check; callers
// must treat a false return as insufficient stock, never retry a read.
func (r *repository) DecrementStockIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active = ? AND stock >= ?
	`, qty, productID, true, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock adds quantity back after a cancellation or failed placement.
func (r *repository) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateRating(ctx context.Context, productID uuid.UUID, average string, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"rating_average": average,
			"rating_count":   count,
		}).Error
}
