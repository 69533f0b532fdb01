package catalog

import (
	"github.com/lib/pq"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
)

func newProductModel(input CreateProductInput, name string) *models.Product {
	return &models.Product{
		SellerID:        input.SellerID,
		Name:            name,
		Description:     input.Description,
		Category:        input.Category,
		Unit:            input.Unit,
		Price:           input.Price,
		DiscountPercent: input.DiscountPercent,
		Stock:           input.Stock,
		ImageURLs:       toStringArray(input.ImageURLs),
		IsActive:        true,
	}
}

func toStringArray(urls []string) pq.StringArray {
	if urls == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(urls)
}
