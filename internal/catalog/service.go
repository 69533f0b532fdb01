package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// Service exposes catalog operations for sellers and shoppers.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, productID, actorID uuid.UUID, actorRole enums.UserRole, input UpdateProductInput) (*ProductDTO, error)
	Deactivate(ctx context.Context, productID, actorID uuid.UUID, actorRole enums.UserRole) error
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	Categories(ctx context.Context) ([]enums.ProductCategory, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := newProductModel(input, name)
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(created), nil
}

func (s *service) Update(ctx context.Context, productID, actorID uuid.UUID, actorRole enums.UserRole, input UpdateProductInput) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.SellerID != actorID && actorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to seller")
	}

	updates, err := buildUpdates(input)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return FromModel(product), nil
	}

	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	reloaded, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	return FromModel(reloaded), nil
}

func (s *service) Deactivate(ctx context.Context, productID, actorID uuid.UUID, actorRole enums.UserRole) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.SellerID != actorID && actorRole != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to seller")
	}
	if !product.IsActive {
		return nil
	}
	if err := s.repo.Update(ctx, productID, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return FromModel(product), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

// Categories lists the categories with live stock on the storefront.
func (s *service) Categories(ctx context.Context) ([]enums.ProductCategory, error) {
	categories, err := s.repo.DistinctCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

func buildUpdates(input UpdateProductInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		updates["category"] = *input.Category
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
		}
		updates["unit"] = *input.Unit
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.DiscountPercent != nil {
		if *input.DiscountPercent < 0 || *input.DiscountPercent > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
		}
		updates["discount_percent"] = *input.DiscountPercent
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock"] = *input.Stock
	}
	if input.ImageURLs != nil {
		updates["image_urls"] = toStringArray(input.ImageURLs)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	return updates, nil
}
