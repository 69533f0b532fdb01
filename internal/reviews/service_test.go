package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/catalog"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type reviewServiceSetup struct {
	svc     Service
	catalog catalog.Repository
	product *models.Product
}

func newReviewServiceSetup(t *testing.T) *reviewServiceSetup {
	t.Helper()
	db := setupReviewTestDB(t)
	repo := NewRepository(db)
	catalogRepo := catalog.NewRepository(db)

	svc, err := NewService(repo, catalogRepo, gormTxRunner{db: db})
	require.NoError(t, err)

	product, err := catalogRepo.Create(context.Background(), &models.Product{
		SellerID: uuid.New(),
		Name:     "Sourdough Loaf",
		Category: enums.CategoryBakery,
		Unit:     enums.UnitPiece,
		Price:    decimal.RequireFromString("6.00"),
		Stock:    10,
		IsActive: true,
	})
	require.NoError(t, err)

	return &reviewServiceSetup{svc: svc, catalog: catalogRepo, product: product}
}

func (s *reviewServiceSetup) reloadProduct(t *testing.T) *models.Product {
	t.Helper()
	product, err := s.catalog.FindByID(context.Background(), s.product.ID)
	require.NoError(t, err)
	return product
}

func TestUpsertCreatesAndRecomputesRating(t *testing.T) {
	setup := newReviewServiceSetup(t)
	ctx := context.Background()

	_, err := setup.svc.Upsert(ctx, setup.product.ID, uuid.New(), UpsertReviewInput{Rating: 5})
	require.NoError(t, err)
	_, err = setup.svc.Upsert(ctx, setup.product.ID, uuid.New(), UpsertReviewInput{Rating: 2})
	require.NoError(t, err)

	product := setup.reloadProduct(t)
	assert.Equal(t, 2, product.RatingCount)
	assert.True(t, product.RatingAverage.Equal(decimal.RequireFromString("3.50")),
		"got %s", product.RatingAverage)
}

func TestUpsertReplacesExistingReview(t *testing.T) {
	setup := newReviewServiceSetup(t)
	ctx := context.Background()

	userID := uuid.New()
	_, err := setup.svc.Upsert(ctx, setup.product.ID, userID, UpsertReviewInput{Rating: 1})
	require.NoError(t, err)

	comment := "restocked and fresh"
	dto, err := setup.svc.Upsert(ctx, setup.product.ID, userID, UpsertReviewInput{Rating: 4, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, 4, dto.Rating)

	product := setup.reloadProduct(t)
	assert.Equal(t, 1, product.RatingCount, "second upsert must not add a row")
	assert.True(t, product.RatingAverage.Equal(decimal.RequireFromString("4.00")))
}

func TestUpsertValidatesRating(t *testing.T) {
	setup := newReviewServiceSetup(t)

	for _, rating := range []int{0, 6, -1} {
		_, err := setup.svc.Upsert(context.Background(), setup.product.ID, uuid.New(), UpsertReviewInput{Rating: rating})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "rating %d", rating)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestUpsertUnknownOrInactiveProduct(t *testing.T) {
	setup := newReviewServiceSetup(t)
	ctx := context.Background()

	_, err := setup.svc.Upsert(ctx, uuid.New(), uuid.New(), UpsertReviewInput{Rating: 3})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	require.NoError(t, setup.catalog.Update(ctx, setup.product.ID, map[string]any{"is_active": false}))
	_, err = setup.svc.Upsert(ctx, setup.product.ID, uuid.New(), UpsertReviewInput{Rating: 3})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestDeleteRecomputesRating(t *testing.T) {
	setup := newReviewServiceSetup(t)
	ctx := context.Background()

	userID := uuid.New()
	_, err := setup.svc.Upsert(ctx, setup.product.ID, userID, UpsertReviewInput{Rating: 5})
	require.NoError(t, err)
	_, err = setup.svc.Upsert(ctx, setup.product.ID, uuid.New(), UpsertReviewInput{Rating: 1})
	require.NoError(t, err)

	require.NoError(t, setup.svc.Delete(ctx, setup.product.ID, userID))

	product := setup.reloadProduct(t)
	assert.Equal(t, 1, product.RatingCount)
	assert.True(t, product.RatingAverage.Equal(decimal.RequireFromString("1.00")))

	// Deleting a review that does not exist is a not-found.
	err = setup.svc.Delete(ctx, setup.product.ID, userID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
