package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when an order is placed and stock reserved.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
}

// OrderStatusChangedEvent signals a single forward step in the order lifecycle.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	ActorID    uuid.UUID         `json:"actor_id"`
	ActorRole  enums.UserRole    `json:"actor_role"`
}

// OrderCancelledEvent is emitted when a pending or confirmed order is cancelled
// and its stock restored.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// StockRestoredEvent reports per-product stock compensation after a cancel.
type StockRestoredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// PaymentCompletedEvent is emitted once per order when the gateway confirms payment.
type PaymentCompletedEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
}

// PaymentFailedEvent is emitted when the gateway reports a failed charge.
type PaymentFailedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	PaymentReference string    `json:"payment_reference"`
	Reason           string    `json:"reason,omitempty"`
}
