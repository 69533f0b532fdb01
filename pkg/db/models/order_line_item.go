package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/enums"
)

// OrderLineItem captures the snapshot of each item within an order.
// Name and UnitPrice are copied from the catalog at placement time so
// later product edits never alter historical orders.
type OrderLineItem struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string            `gorm:"column:name;not null"`
	Unit      enums.ProductUnit `gorm:"column:unit;type:unit;not null"`
	UnitPrice decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Qty       int               `gorm:"column:qty;not null"`
	LineTotal decimal.Decimal   `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
