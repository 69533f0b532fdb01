package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/types"
)

// Actor identifies who is driving an order operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// OrderItemInput is one product/quantity pair from the cart.
type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

// PlaceOrderInput is the full cart submission. PaymentReference is the
// gateway intent captured upstream; nil for cash on delivery or when
// payment settles later.
type PlaceOrderInput struct {
	Items            []OrderItemInput
	ShippingAddress  types.Address
	PaymentMethod    enums.PaymentMethod
	PaymentReference *string
}

// AdvanceInput carries the target state for a status transition.
type AdvanceInput struct {
	Status         enums.OrderStatus
	TrackingNumber *string
}

// LineItemDTO is the snapshot view of one ordered product.
type LineItemDTO struct {
	ID        uuid.UUID         `json:"id"`
	ProductID uuid.UUID         `json:"product_id"`
	Name      string            `json:"name"`
	Unit      enums.ProductUnit `json:"unit"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Qty       int               `json:"qty"`
	LineTotal decimal.Decimal   `json:"line_total"`
}

// OrderDTO is the API-facing order shape.
type OrderDTO struct {
	ID               uuid.UUID           `json:"id"`
	CustomerID       uuid.UUID           `json:"customer_id"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	ShippingAddress  types.Address       `json:"shipping_address"`
	TrackingNumber   *string             `json:"tracking_number,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	Items            []LineItemDTO       `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
			LineTotal: item.LineTotal,
		})
	}
	return &OrderDTO{
		ID:               order.ID,
		CustomerID:       order.CustomerID,
		Status:           order.Status,
		PaymentStatus:    order.PaymentStatus,
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		TotalAmount:      order.TotalAmount,
		ShippingAddress:  order.ShippingAddress,
		TrackingNumber:   order.TrackingNumber,
		DeliveredAt:      order.DeliveredAt,
		CancelledAt:      order.CancelledAt,
		Items:            items,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
