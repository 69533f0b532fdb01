package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/catalog"
	"github.com/freshlane/freshlane-backend/internal/payments"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
	"github.com/freshlane/freshlane-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// recordingOutbox collects events in memory so tests can assert on what was
// emitted without an outbox_events table.
type recordingOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (o *recordingOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

func (o *recordingOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, existing := range o.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	o.events = append(o.events, event)
	return nil
}

func (o *recordingOutbox) typesEmitted() []enums.OutboxEventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	types := make([]enums.OutboxEventType, 0, len(o.events))
	for _, event := range o.events {
		types = append(types, event.EventType)
	}
	return types
}

type stubGateway struct {
	confirmFn func(intentID string) (*payments.ConfirmResult, error)
	calls     []string
}

func (g *stubGateway) ConfirmIntent(_ context.Context, intentID string) (*payments.ConfirmResult, error) {
	g.calls = append(g.calls, intentID)
	if g.confirmFn != nil {
		return g.confirmFn(intentID)
	}
	return &payments.ConfirmResult{Succeeded: true}, nil
}

type orderServiceHarness struct {
	svc     Service
	db      *gorm.DB
	catalog catalog.Repository
	repo    Repository
	outbox  *recordingOutbox
	gateway *stubGateway
}

func newOrderServiceHarness(t *testing.T) *orderServiceHarness {
	t.Helper()

	db := setupOrderTestDB(t)
	catalogRepo := catalog.NewRepository(db)
	orderRepo := NewRepository(db)
	events := &recordingOutbox{}
	gateway := &stubGateway{}

	svc, err := NewService(ServiceParams{
		Repo:    orderRepo,
		Catalog: catalogRepo,
		Tx:      gormTxRunner{db: db},
		Outbox:  events,
		Gateway: gateway,
	})
	require.NoError(t, err)

	return &orderServiceHarness{
		svc:     svc,
		db:      db,
		catalog: catalogRepo,
		repo:    orderRepo,
		outbox:  events,
		gateway: gateway,
	}
}

func (h *orderServiceHarness) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	product, err := h.catalog.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return product.Stock
}

func (h *orderServiceHarness) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Table("orders").Count(&count).Error)
	return count
}

func codOrder(items ...OrderItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	}
}

func customerActor() Actor {
	return Actor{ID: uuid.New(), Role: enums.UserRoleCustomer}
}

func TestPlaceOrderDecrementsStockAndComputesTotal(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 5, "10.00")
	actor := customerActor()

	dto, err := h.svc.Place(ctx, actor, codOrder(OrderItemInput{ProductID: product.ID, Qty: 2}))
	require.NoError(t, err)

	assert.Equal(t, "20.00", dto.TotalAmount.StringFixed(2))
	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.Equal(t, enums.PaymentStatusPending, dto.PaymentStatus)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "10.00", dto.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, 2, dto.Items[0].Qty)

	assert.Equal(t, 3, h.stockOf(t, product.ID))
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderCreated}, h.outbox.typesEmitted())
}

func TestPlaceOrderUsesDiscountedPrice(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 10, "10.00")
	require.NoError(t, h.catalog.Update(ctx, product.ID, map[string]any{"discount_percent": 25}))

	dto, err := h.svc.Place(ctx, customerActor(), codOrder(OrderItemInput{ProductID: product.ID, Qty: 2}))
	require.NoError(t, err)

	assert.Equal(t, "7.50", dto.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "15.00", dto.TotalAmount.StringFixed(2))
}

func TestPlaceOrderInsufficientStockLeavesNothingBehind(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 5, "10.00")

	_, err := h.svc.Place(ctx, customerActor(), codOrder(OrderItemInput{ProductID: product.ID, Qty: 10}))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	assert.Equal(t, 5, h.stockOf(t, product.ID))
	assert.Equal(t, int64(0), h.orderCount(t))
	assert.Empty(t, h.outbox.typesEmitted())
}

func TestPlaceOrderRollsBackEarlierDecrements(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	// First line succeeds then the second fails; the whole cart must revert.
	healthy := seedOrderProduct(t, h.db, uuid.New(), 5, "3.00")
	starved := seedOrderProduct(t, h.db, uuid.New(), 1, "4.00")

	_, err := h.svc.Place(ctx, customerActor(), codOrder(
		OrderItemInput{ProductID: healthy.ID, Qty: 2},
		OrderItemInput{ProductID: starved.ID, Qty: 3},
	))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	assert.Equal(t, 5, h.stockOf(t, healthy.ID))
	assert.Equal(t, 1, h.stockOf(t, starved.ID))
	assert.Equal(t, int64(0), h.orderCount(t))
}

func TestPlaceOrderMergesDuplicateLines(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 10, "2.00")

	dto, err := h.svc.Place(ctx, customerActor(), codOrder(
		OrderItemInput{ProductID: product.ID, Qty: 2},
		OrderItemInput{ProductID: product.ID, Qty: 3},
	))
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	assert.Equal(t, 5, dto.Items[0].Qty)
	assert.Equal(t, 5, h.stockOf(t, product.ID))
}

func TestPlaceOrderRejectsInactiveProduct(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 10, "2.00")
	require.NoError(t, h.catalog.Update(ctx, product.ID, map[string]any{"is_active": false}))

	_, err := h.svc.Place(ctx, customerActor(), codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	assert.Equal(t, int64(0), h.orderCount(t))
}

func TestPlaceOrderValidation(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()
	product := seedOrderProduct(t, h.db, uuid.New(), 10, "2.00")

	tests := []struct {
		name  string
		actor Actor
		input PlaceOrderInput
		code  pkgerrors.Code
	}{
		{
			name:  "missing actor",
			actor: Actor{},
			input: codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}),
			code:  pkgerrors.CodeUnauthorized,
		},
		{
			name:  "empty cart",
			actor: customerActor(),
			input: codOrder(),
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "zero quantity",
			actor: customerActor(),
			input: codOrder(OrderItemInput{ProductID: product.ID, Qty: 0}),
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "invalid payment method",
			actor: customerActor(),
			input: PlaceOrderInput{
				Items:           []OrderItemInput{{ProductID: product.ID, Qty: 1}},
				ShippingAddress: testAddress(),
				PaymentMethod:   enums.PaymentMethod("barter"),
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name:  "incomplete address",
			actor: customerActor(),
			input: PlaceOrderInput{
				Items:           []OrderItemInput{{ProductID: product.ID, Qty: 1}},
				ShippingAddress: types.Address{Street: "12 Market St"},
				PaymentMethod:   enums.PaymentMethodCOD,
			},
			code: pkgerrors.CodeValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Place(ctx, tc.actor, tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
		})
	}
	assert.Equal(t, int64(0), h.orderCount(t))
}

func TestPlaceOrderConfirmsGatewayPayment(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 5, "10.00")
	ref := "pi_" + uuid.NewString()

	dto, err := h.svc.Place(ctx, customerActor(), PlaceOrderInput{
		Items:            []OrderItemInput{{ProductID: product.ID, Qty: 1}},
		ShippingAddress:  testAddress(),
		PaymentMethod:    enums.PaymentMethodCard,
		PaymentReference: &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusCompleted, dto.PaymentStatus)
	require.NotNil(t, dto.PaymentReference)
	assert.Equal(t, ref, *dto.PaymentReference)
	assert.Equal(t, []string{ref}, h.gateway.calls)
	assert.ElementsMatch(t,
		[]enums.OutboxEventType{enums.EventOrderCreated, enums.EventPaymentCompleted},
		h.outbox.typesEmitted())
}

func TestPlaceOrderDeclinedPaymentLeavesNoOrder(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 5, "10.00")
	ref := "pi_" + uuid.NewString()
	h.gateway.confirmFn = func(string) (*payments.ConfirmResult, error) {
		return &payments.ConfirmResult{Succeeded: false}, nil
	}

	_, err := h.svc.Place(ctx, customerActor(), PlaceOrderInput{
		Items:            []OrderItemInput{{ProductID: product.ID, Qty: 1}},
		ShippingAddress:  testAddress(),
		PaymentMethod:    enums.PaymentMethodCard,
		PaymentReference: &ref,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePaymentFailed, pkgerrors.As(err).Code())

	assert.Equal(t, 5, h.stockOf(t, product.ID))
	assert.Equal(t, int64(0), h.orderCount(t))
}

func TestAdvanceWalksForwardTransitions(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedOrderProduct(t, h.db, sellerID, 5, "10.00")
	customer := customerActor()
	placed, err := h.svc.Place(ctx, customer, codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	seller := Actor{ID: sellerID, Role: enums.UserRoleSeller}

	confirmed, err := h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{Status: enums.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)

	_, err = h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{Status: enums.OrderStatusProcessing})
	require.NoError(t, err)

	tracking := "TRK-1001"
	shipped, err := h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{
		Status:         enums.OrderStatusShipped,
		TrackingNumber: &tracking,
	})
	require.NoError(t, err)
	require.NotNil(t, shipped.TrackingNumber)
	assert.Equal(t, tracking, *shipped.TrackingNumber)

	delivered, err := h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
	// COD orders settle on delivery.
	assert.Equal(t, enums.PaymentStatusCompleted, delivered.PaymentStatus)
	assert.Contains(t, h.outbox.typesEmitted(), enums.EventPaymentCompleted)
}

func TestAdvanceRejectsSkippedAndBackwardSteps(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedOrderProduct(t, h.db, sellerID, 5, "10.00")
	placed, err := h.svc.Place(ctx, customerActor(), codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	seller := Actor{ID: sellerID, Role: enums.UserRoleSeller}

	// pending -> shipped skips confirmed and processing.
	_, err = h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{Status: enums.OrderStatusShipped})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	_, err = h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{Status: enums.OrderStatusConfirmed})
	require.NoError(t, err)

	// confirmed -> pending is backward.
	_, err = h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{Status: enums.OrderStatusPending})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestAdvanceNeverReachesCancelled(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedOrderProduct(t, h.db, sellerID, 5, "10.00")
	placed, err := h.svc.Place(ctx, customerActor(), codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	_, err = h.svc.Advance(ctx, placed.ID, Actor{ID: sellerID, Role: enums.UserRoleSeller},
		AdvanceInput{Status: enums.OrderStatusCancelled})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAdvanceAuthorization(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedOrderProduct(t, h.db, sellerID, 5, "10.00")
	customer := customerActor()
	placed, err := h.svc.Place(ctx, customer, codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	// Customers cannot advance, even their own orders.
	_, err = h.svc.Advance(ctx, placed.ID, customer, AdvanceInput{Status: enums.OrderStatusConfirmed})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// A seller with no items on the order cannot either.
	_, err = h.svc.Advance(ctx, placed.ID, Actor{ID: uuid.New(), Role: enums.UserRoleSeller},
		AdvanceInput{Status: enums.OrderStatusConfirmed})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// Admins may advance any order.
	_, err = h.svc.Advance(ctx, placed.ID, Actor{ID: uuid.New(), Role: enums.UserRoleAdmin},
		AdvanceInput{Status: enums.OrderStatusConfirmed})
	require.NoError(t, err)
}

func TestCancelRestoresStock(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 5, "10.00")
	customer := customerActor()
	placed, err := h.svc.Place(ctx, customer, codOrder(OrderItemInput{ProductID: product.ID, Qty: 2}))
	require.NoError(t, err)
	require.Equal(t, 3, h.stockOf(t, product.ID))

	cancelled, err := h.svc.Cancel(ctx, placed.ID, customer, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	assert.Equal(t, 5, h.stockOf(t, product.ID))
	assert.Contains(t, h.outbox.typesEmitted(), enums.EventOrderCancelled)
	assert.Contains(t, h.outbox.typesEmitted(), enums.EventStockRestored)
}

func TestCancelShippedOrderFails(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedOrderProduct(t, h.db, sellerID, 5, "10.00")
	customer := customerActor()
	placed, err := h.svc.Place(ctx, customer, codOrder(OrderItemInput{ProductID: product.ID, Qty: 2}))
	require.NoError(t, err)

	seller := Actor{ID: sellerID, Role: enums.UserRoleSeller}
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
	} {
		_, err = h.svc.Advance(ctx, placed.ID, seller, AdvanceInput{Status: status})
		require.NoError(t, err)
	}

	_, err = h.svc.Cancel(ctx, placed.ID, customer, "too late")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// Stock stays committed to the shipped order.
	assert.Equal(t, 3, h.stockOf(t, product.ID))
}

func TestCancelAuthorization(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 5, "10.00")
	placed, err := h.svc.Place(ctx, customerActor(), codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	_, err = h.svc.Cancel(ctx, placed.ID, customerActor(), "not mine")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestGetAuthorization(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	sellerID := uuid.New()
	product := seedOrderProduct(t, h.db, sellerID, 5, "10.00")
	customer := customerActor()
	placed, err := h.svc.Place(ctx, customer, codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	_, err = h.svc.Get(ctx, placed.ID, customer)
	assert.NoError(t, err, "owner can read")

	_, err = h.svc.Get(ctx, placed.ID, Actor{ID: sellerID, Role: enums.UserRoleSeller})
	assert.NoError(t, err, "seller with items can read")

	_, err = h.svc.Get(ctx, placed.ID, Actor{ID: uuid.New(), Role: enums.UserRoleAdmin})
	assert.NoError(t, err, "admin can read")

	_, err = h.svc.Get(ctx, placed.ID, customerActor())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestListMineScopesToCustomer(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 50, "10.00")
	mine := customerActor()
	other := customerActor()

	for i := 0; i < 2; i++ {
		_, err := h.svc.Place(ctx, mine, codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
		require.NoError(t, err)
	}
	_, err := h.svc.Place(ctx, other, codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	list, err := h.svc.ListMine(ctx, mine, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
}

func TestSnapshotSurvivesPriceChange(t *testing.T) {
	h := newOrderServiceHarness(t)
	ctx := context.Background()

	product := seedOrderProduct(t, h.db, uuid.New(), 5, "10.00")
	customer := customerActor()
	placed, err := h.svc.Place(ctx, customer, codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
	require.NoError(t, err)

	require.NoError(t, h.catalog.Update(ctx, product.ID, map[string]any{
		"price": decimal.RequireFromString("99.00"),
		"name":  "Renamed Tomatoes",
	}))

	reloaded, err := h.svc.Get(ctx, placed.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, "10.00", reloaded.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "Heirloom Tomatoes", reloaded.Items[0].Name)
	assert.Equal(t, "10.00", reloaded.TotalAmount.StringFixed(2))
}

// memoryCatalog is an in-process catalog repository whose conditional
// decrement is atomic under a mutex, mirroring the conditional UPDATE
// the SQL repository issues. It lets two placements race on the same
// goroutine schedule the runtime picks without a shared database file.
type memoryCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]models.Product
}

func (c *memoryCatalog) WithTx(*gorm.DB) catalog.Repository { return c }

func (c *memoryCatalog) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	c.products[product.ID] = *product
	return product, nil
}

func (c *memoryCatalog) Update(context.Context, uuid.UUID, map[string]any) error { return nil }

func (c *memoryCatalog) FindByID(_ context.Context, productID uuid.UUID) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	product, ok := c.products[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

func (c *memoryCatalog) FindByIDs(_ context.Context, productIDs []uuid.UUID) ([]models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := make([]models.Product, 0, len(productIDs))
	for _, id := range productIDs {
		if product, ok := c.products[id]; ok {
			found = append(found, product)
		}
	}
	return found, nil
}

func (c *memoryCatalog) List(context.Context, pagination.Params, catalog.ProductFilters) (*catalog.ProductList, error) {
	return nil, nil
}

func (c *memoryCatalog) DistinctCategories(context.Context) ([]enums.ProductCategory, error) {
	return nil, nil
}

func (c *memoryCatalog) DecrementStockIfAvailable(_ context.Context, productID uuid.UUID, qty int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	product, ok := c.products[productID]
	if !ok || product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	c.products[productID] = product
	return true, nil
}

func (c *memoryCatalog) RestoreStock(_ context.Context, productID uuid.UUID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	product := c.products[productID]
	product.Stock += qty
	c.products[productID] = product
	return nil
}

func (c *memoryCatalog) UpdateRating(context.Context, uuid.UUID, string, int) error { return nil }

// memoryOrders accepts inserts and nothing else; the racing placements
// only need somewhere for the winner's row to land.
type memoryOrders struct {
	mu     sync.Mutex
	orders []models.Order
}

func (r *memoryOrders) WithTx(*gorm.DB) Repository { return r }

func (r *memoryOrders) Insert(_ context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.orders = append(r.orders, *order)
	return order, nil
}

func (r *memoryOrders) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryOrders) FindByPaymentReference(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryOrders) UpdateStatusIf(context.Context, uuid.UUID, enums.OrderStatus, map[string]any) (bool, error) {
	return false, nil
}

func (r *memoryOrders) UpdatePayment(context.Context, uuid.UUID, map[string]any) error { return nil }

func (r *memoryOrders) SellerHasItems(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memoryOrders) ListByCustomer(context.Context, uuid.UUID, pagination.Params) (*OrderList, error) {
	return nil, nil
}

func (r *memoryOrders) ListBySeller(context.Context, uuid.UUID, pagination.Params) (*OrderList, error) {
	return nil, nil
}

func (r *memoryOrders) ListAll(context.Context, pagination.Params) (*OrderList, error) {
	return nil, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func TestPlaceOrderConcurrentBuyersNeverOversell(t *testing.T) {
	catalogRepo := &memoryCatalog{products: map[uuid.UUID]models.Product{}}
	orderRepo := &memoryOrders{}

	product, err := catalogRepo.Create(context.Background(), &models.Product{
		SellerID: uuid.New(),
		Name:     "Heirloom Tomatoes",
		Category: enums.CategoryProduce,
		Unit:     enums.UnitKilogram,
		Price:    decimal.RequireFromString("10.00"),
		Stock:    1,
		IsActive: true,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:    orderRepo,
		Catalog: catalogRepo,
		Tx:      passthroughTx{},
		Outbox:  &recordingOutbox{},
		Gateway: &stubGateway{},
	})
	require.NoError(t, err)

	// Two customers race for the last unit. The conditional decrement
	// admits exactly one of them no matter how the goroutines interleave.
	start := make(chan struct{})
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := svc.Place(context.Background(), customerActor(),
				codOrder(OrderItemInput{ProductID: product.ID, Qty: 1}))
			results <- err
		}()
	}
	close(start)

	var placed, starved int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			placed++
			continue
		}
		assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
		starved++
	}

	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, starved)

	remaining, err := catalogRepo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, remaining.Stock, 0)
	assert.Equal(t, 0, remaining.Stock)
	assert.Len(t, orderRepo.orders, 1)
}
