package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// Repository is the order ledger. Inserted orders are immutable except
// for the fields the status workflow touches through UpdateStatusIf
// and UpdatePayment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	// UpdateStatusIf flips status only when the row still holds the
	// expected current status. Returns false when another writer won.
	UpdateStatusIf(ctx context.Context, orderID uuid.UUID, current enums.OrderStatus, updates map[string]any) (bool, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	SellerHasItems(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params) (*OrderList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
