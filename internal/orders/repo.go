package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "payment_reference = ?", reference).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIf is the optimistic guard for the status workflow: the
// WHERE clause re-checks the current status so two concurrent
// transitions can never both win.
func (r *repository) UpdateStatusIf(ctx context.Context, orderID uuid.UUID, current enums.OrderStatus, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "no status updates provided")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, current).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SellerHasItems reports whether any line item of the order references
// a product sold by the given seller ("any item matches" semantics).
func (r *repository) SellerHasItems(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Joins("JOIN products ON products.id = order_line_items.product_id").
		Where("order_line_items.order_id = ? AND products.seller_id = ?", orderID, sellerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("customer_id = ?", customerID)
	return r.page(ctx, query, params)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where(`EXISTS (
			SELECT 1 FROM order_line_items
			JOIN products ON products.id = order_line_items.product_id
			WHERE order_line_items.order_id = orders.id AND products.seller_id = ?
		)`, sellerID)
	return r.page(ctx, query, params)
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	return r.page(ctx, query, params)
}

func (r *repository) page(ctx context.Context, query *gorm.DB, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err = query.
		Preload("Items").
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page, hasMore := pagination.TrimPage(rows, params.Limit)
	list := &OrderList{Orders: make([]OrderDTO, 0, len(page))}
	for i := range page {
		list.Orders = append(list.Orders, *FromModel(&page[i]))
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
