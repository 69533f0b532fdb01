package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/enums"
)

// Product represents the canonical catalog listing. Stock is the only
// hot mutable field; every mutation goes through the conditional
// update in the catalog repository.
type Product struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID        uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	Name            string                `gorm:"column:name;not null"`
	Description     *string               `gorm:"column:description"`
	Category        enums.ProductCategory `gorm:"column:category;type:category;not null"`
	Unit            enums.ProductUnit     `gorm:"column:unit;type:unit;not null"`
	Price           decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent int                   `gorm:"column:discount_percent;not null;default:0"`
	Stock           int                   `gorm:"column:stock;not null;default:0"`
	ImageURLs       pq.StringArray        `gorm:"column:image_urls;type:text[];not null;default:ARRAY[]::text[]"`
	IsActive        bool                  `gorm:"column:is_active;not null;default:true"`
	RatingAverage   decimal.Decimal       `gorm:"column:rating_average;type:numeric(3,2);not null;default:0"`
	RatingCount     int                   `gorm:"column:rating_count;not null;default:0"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice applies the discount percentage to the list price.
// Computed at read time, never stored.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPercent <= 0 {
		return p.Price
	}
	discount := decimal.NewFromInt(int64(100 - p.DiscountPercent)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(discount).Round(2)
}
