package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/catalog"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages product reviews. Every mutation recomputes the
// product's rating aggregate inside the same transaction.
type Service interface {
	Upsert(ctx context.Context, productID, userID uuid.UUID, input UpsertReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, productID, userID uuid.UUID) error
	List(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
}

// NewService builds a reviews service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx}, nil
}

func (s *service) Upsert(ctx context.Context, productID, userID uuid.UUID, input UpsertReviewInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	var review *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		product, err := catalogRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		existing, err := repo.FindByProductAndUser(ctx, productID, userID)
		switch {
		case err == nil:
			if err := repo.Update(ctx, existing.ID, input.Rating, input.Comment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
			}
			existing.Rating = input.Rating
			existing.Comment = input.Comment
			review = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			review, err = repo.Create(ctx, &models.Review{
				ProductID: productID,
				UserID:    userID,
				Rating:    input.Rating,
				Comment:   input.Comment,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
		}

		return recomputeRating(ctx, repo, catalogRepo, productID)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(review), nil
}

// Delete removes the caller's review of a product.
func (s *service) Delete(ctx context.Context, productID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		review, err := repo.FindByProductAndUser(ctx, productID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
		}

		if err := repo.Delete(ctx, review.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
		}
		return recomputeRating(ctx, repo, catalogRepo, productID)
	})
}

func (s *service) List(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	list, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return list, nil
}

func recomputeRating(ctx context.Context, repo Repository, catalogRepo catalog.Repository, productID uuid.UUID) error {
	average, count, err := repo.Aggregate(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
	}
	rounded := decimal.NewFromFloat(average).Round(2).StringFixed(2)
	if err := catalogRepo.UpdateRating(ctx, productID, rounded, count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product rating")
	}
	return nil
}
