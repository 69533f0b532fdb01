package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
)

// ReviewDTO is the API-facing shape of one review.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewList is one page of a product's reviews.
type ReviewList struct {
	Reviews    []ReviewDTO `json:"reviews"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// UpsertReviewInput creates or replaces the caller's review of a product.
type UpsertReviewInput struct {
	Rating  int
	Comment *string
}

func FromModel(review *models.Review) *ReviewDTO {
	if review == nil {
		return nil
	}
	return &ReviewDTO{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}
