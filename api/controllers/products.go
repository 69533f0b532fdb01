package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshlane/freshlane-backend/api/middleware"
	"github.com/freshlane/freshlane-backend/api/responses"
	"github.com/freshlane/freshlane-backend/api/validators"
	"github.com/freshlane/freshlane-backend/internal/catalog"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// ListProducts serves the public storefront catalog with optional filters.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListCategories returns the categories with active products.
func ListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

// GetProduct returns a single product by id.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// SellerCreateProduct creates a listing owned by the authenticated seller.
func SellerCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		sellerID := middleware.UserIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput(sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// SellerUpdateProduct applies a partial update to an owned listing.
func SellerUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productID, actorID, middleware.RoleFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// SellerDeleteProduct deactivates a listing so history keeps its snapshot.
func SellerDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		if err := svc.Deactivate(r.Context(), productID, actorID, middleware.RoleFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type createProductRequest struct {
	Name            string   `json:"name" validate:"required,min=2,max=200"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category        string   `json:"category" validate:"required"`
	Unit            string   `json:"unit" validate:"required"`
	Price           string   `json:"price" validate:"required"`
	DiscountPercent int      `json:"discount_percent" validate:"omitempty,min=0,max=90"`
	Stock           int      `json:"stock" validate:"omitempty,min=0"`
	ImageURLs       []string `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
}

func (p createProductRequest) toCreateInput(sellerID uuid.UUID) (catalog.CreateProductInput, error) {
	category, err := enums.ParseProductCategory(strings.TrimSpace(p.Category))
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	unit, err := enums.ParseProductUnit(strings.TrimSpace(p.Unit))
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
	}
	price, err := parsePrice(p.Price, "price")
	if err != nil {
		return catalog.CreateProductInput{}, err
	}

	description := p.Description
	if description != nil {
		cleaned := validators.SanitizeString(*description, 2000)
		description = &cleaned
	}

	return catalog.CreateProductInput{
		SellerID:        sellerID,
		Name:            validators.SanitizeString(p.Name, 200),
		Description:     description,
		Category:        category,
		Unit:            unit,
		Price:           price,
		DiscountPercent: p.DiscountPercent,
		Stock:           p.Stock,
		ImageURLs:       p.ImageURLs,
	}, nil
}

type updateProductRequest struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category        *string  `json:"category,omitempty"`
	Unit            *string  `json:"unit,omitempty"`
	Price           *string  `json:"price,omitempty"`
	DiscountPercent *int     `json:"discount_percent,omitempty" validate:"omitempty,min=0,max=90"`
	Stock           *int     `json:"stock,omitempty" validate:"omitempty,min=0"`
	ImageURLs       []string `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
	IsActive        *bool    `json:"is_active,omitempty"`
}

func (p updateProductRequest) toUpdateInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:            p.Name,
		Description:     p.Description,
		DiscountPercent: p.DiscountPercent,
		Stock:           p.Stock,
		ImageURLs:       p.ImageURLs,
		IsActive:        p.IsActive,
	}

	if p.Category != nil {
		category, err := enums.ParseProductCategory(strings.TrimSpace(*p.Category))
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	if p.Unit != nil {
		unit, err := enums.ParseProductUnit(strings.TrimSpace(*p.Unit))
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
		}
		input.Unit = &unit
	}
	if p.Price != nil {
		price, err := parsePrice(*p.Price, "price")
		if err != nil {
			return catalog.UpdateProductInput{}, err
		}
		input.Price = &price
	}
	return input, nil
}

func parseProductFilters(r *http.Request) (catalog.ProductFilters, error) {
	query := r.URL.Query()
	filters := catalog.ProductFilters{Query: strings.TrimSpace(query.Get("q"))}

	if raw := strings.TrimSpace(query.Get("category")); raw != "" {
		category, err := enums.ParseProductCategory(raw)
		if err != nil {
			return catalog.ProductFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		filters.Category = &category
	}
	if raw := strings.TrimSpace(query.Get("seller_id")); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			return catalog.ProductFilters{}, pkgerrors.New(pkgerrors.CodeValidation, "seller_id must be a uuid")
		}
		filters.SellerID = &sellerID
	}
	if raw := strings.TrimSpace(query.Get("min_price")); raw != "" {
		minPrice, err := parsePrice(raw, "min_price")
		if err != nil {
			return catalog.ProductFilters{}, err
		}
		filters.MinPrice = &minPrice
	}
	if raw := strings.TrimSpace(query.Get("max_price")); raw != "" {
		maxPrice, err := parsePrice(raw, "max_price")
		if err != nil {
			return catalog.ProductFilters{}, err
		}
		filters.MaxPrice = &maxPrice
	}
	return filters, nil
}

func parsePrice(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string").WithDetails(map[string]any{"field": field})
	}
	if value.IsNegative() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
