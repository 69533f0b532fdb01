package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
)

// ProductFilters describe the inputs supported by the catalog list.
type ProductFilters struct {
	Category        *enums.ProductCategory
	SellerID        *uuid.UUID
	Query           string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	IncludeInactive bool
}

// ProductDTO is the catalog read shape returned to clients.
type ProductDTO struct {
	ID              uuid.UUID             `json:"id"`
	SellerID        uuid.UUID             `json:"seller_id"`
	Name            string                `json:"name"`
	Description     *string               `json:"description,omitempty"`
	Category        enums.ProductCategory `json:"category"`
	Unit            enums.ProductUnit     `json:"unit"`
	Price           decimal.Decimal       `json:"price"`
	DiscountPercent int                   `json:"discount_percent"`
	EffectivePrice  decimal.Decimal       `json:"effective_price"`
	Stock           int                   `json:"stock"`
	ImageURLs       []string              `json:"image_urls"`
	IsActive        bool                  `json:"is_active"`
	RatingAverage   decimal.Decimal       `json:"rating_average"`
	RatingCount     int                   `json:"rating_count"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ProductList wraps the paginated products plus the next page cursor.
type ProductList struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// CreateProductInput carries the fields a seller may set on a new listing.
type CreateProductInput struct {
	SellerID        uuid.UUID
	Name            string
	Description     *string
	Category        enums.ProductCategory
	Unit            enums.ProductUnit
	Price           decimal.Decimal
	DiscountPercent int
	Stock           int
	ImageURLs       []string
}

// UpdateProductInput carries the mutable listing fields. Nil means unchanged.
type UpdateProductInput struct {
	Name            *string
	Description     *string
	Category        *enums.ProductCategory
	Unit            *enums.ProductUnit
	Price           *decimal.Decimal
	DiscountPercent *int
	Stock           *int
	ImageURLs       []string
	IsActive        *bool
}

// FromModel converts the persistence model into the read shape.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:              p.ID,
		SellerID:        p.SellerID,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		Unit:            p.Unit,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent,
		EffectivePrice:  p.EffectivePrice(),
		Stock:           p.Stock,
		ImageURLs:       append([]string(nil), p.ImageURLs...),
		IsActive:        p.IsActive,
		RatingAverage:   p.RatingAverage,
		RatingCount:     p.RatingCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
