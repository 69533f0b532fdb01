package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/types"
)

// Order is the ledger record for a placed order. TotalAmount and the
// line-item snapshots are immutable after creation; only the status
// workflow may touch status, payment status, and tracking fields.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status           enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentReference *string             `gorm:"column:payment_reference;index"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb"`
	TrackingNumber   *string             `gorm:"column:tracking_number"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	Items            []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Customer         *User               `gorm:"foreignKey:CustomerID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
