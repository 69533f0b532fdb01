package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/internal/catalog"
	"github.com/freshlane/freshlane-backend/internal/payments"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/metrics"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
	"github.com/freshlane/freshlane-backend/pkg/outbox/payloads"
	"github.com/freshlane/freshlane-backend/pkg/pagination"
)

// paymentConfirmer is the slice of the gateway the placement workflow
// needs: confirm a capture before the ledger write.
type paymentConfirmer interface {
	ConfirmIntent(ctx context.Context, intentID string) (*payments.ConfirmResult, error)
}

// Service is the order placement and lifecycle workflow.
type Service interface {
	Place(ctx context.Context, actor Actor, input PlaceOrderInput) (*OrderDTO, error)
	Advance(ctx context.Context, orderID uuid.UUID, actor Actor, input AdvanceInput) (*OrderDTO, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDTO, error)
	ListMine(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
	ListSeller(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
}

// ServiceParams bundles the order workflow dependencies.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Gateway paymentConfirmer
	Metrics *metrics.OrderMetrics
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
	gateway paymentConfirmer
	metrics *metrics.OrderMetrics
}

// NewService builds the order workflow with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		tx:      params.Tx,
		outbox:  params.Outbox,
		gateway: params.Gateway,
		metrics: params.Metrics,
	}, nil
}

// Place validates the cart, confirms any upstream payment capture, and
// then runs the ledger insert plus every stock decrement in a single
// transaction. Any failure rolls back everything; no partial state is
// ever observable.
func (s *service) Place(ctx context.Context, actor Actor, input PlaceOrderInput) (*OrderDTO, error) {
	start := time.Now()

	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	cart, err := mergeCart(input.Items)
	if err != nil {
		return nil, err
	}

	paymentStatus := enums.PaymentStatusPending
	paymentReference := input.PaymentReference
	if input.PaymentMethod == enums.PaymentMethodCOD {
		// Cash on delivery settles at the door; never via the gateway.
		paymentReference = nil
	} else if paymentReference != nil {
		confirmation, err := s.gateway.ConfirmIntent(ctx, *paymentReference)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment intent")
		}
		if !confirmation.Succeeded {
			s.metrics.IncPaymentFailed()
			return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment was not captured").
				WithDetails(map[string]any{"payment_reference": *paymentReference})
		}
		paymentStatus = enums.PaymentStatusCompleted
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		products, err := catalogRepo.FindByIDs(ctx, cart.ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		index := make(map[uuid.UUID]*models.Product, len(products))
		for i := range products {
			index[products[i].ID] = &products[i]
		}

		total := decimal.Zero
		items := make([]models.OrderLineItem, 0, len(cart.ids))
		for _, productID := range cart.ids {
			qty := cart.qty[productID]
			product, ok := index[productID]
			if !ok || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": productID})
			}

			decremented, err := catalogRepo.DecrementStockIfAvailable(ctx, productID, qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !decremented {
				s.metrics.IncStockConflict()
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
					WithDetails(map[string]any{
						"product_id": productID,
						"requested":  qty,
					})
			}

			unitPrice := product.EffectivePrice()
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
			total = total.Add(lineTotal)
			items = append(items, models.OrderLineItem{
				ProductID: productID,
				Name:      product.Name,
				Unit:      product.Unit,
				UnitPrice: unitPrice,
				Qty:       qty,
				LineTotal: lineTotal,
			})
		}

		order, err = repo.Insert(ctx, &models.Order{
			CustomerID:       actor.ID,
			Status:           enums.OrderStatusPending,
			PaymentStatus:    paymentStatus,
			PaymentMethod:    input.PaymentMethod,
			PaymentReference: paymentReference,
			TotalAmount:      total,
			ShippingAddress:  input.ShippingAddress,
			Items:            items,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				CustomerID:    order.CustomerID,
				TotalAmount:   order.TotalAmount,
				PaymentMethod: order.PaymentMethod,
				ItemCount:     len(order.Items),
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		if paymentStatus == enums.PaymentStatusCompleted && paymentReference != nil {
			err = s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentCompleted,
				AggregateType: enums.AggregatePayment,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.PaymentCompletedEvent{
					OrderID:          order.ID,
					PaymentReference: *paymentReference,
					Amount:           order.TotalAmount,
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment completed")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPlaced(order.PaymentMethod.String())
	s.metrics.ObservePlacement(time.Since(start))
	return FromModel(order), nil
}

// Advance moves an order one step along the lifecycle. Cancellation has
// its own entry point because it compensates stock.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID, actor Actor, input AdvanceInput) (*OrderDTO, error) {
	if actor.Role != enums.UserRoleSeller && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "status changes are seller or admin only")
	}
	target := input.Status
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel endpoint to cancel an order")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if err := s.requireSellerOnOrder(ctx, repo, order.ID, actor.ID); err != nil {
				return err
			}
		}
		if !CanTransition(order.Status, target) {
			return transitionError(order.Status, target)
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": target}
		if input.TrackingNumber != nil {
			updates["tracking_number"] = *input.TrackingNumber
		}
		codSettled := false
		if target == enums.OrderStatusDelivered {
			updates["delivered_at"] = now
			if order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus == enums.PaymentStatusPending {
				updates["payment_status"] = enums.PaymentStatusCompleted
				codSettled = true
			}
		}

		flipped, err := repo.UpdateStatusIf(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				From:       order.Status,
				To:         target,
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status changed")
		}

		if codSettled {
			err = s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentCompleted,
				AggregateType: enums.AggregatePayment,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.PaymentCompletedEvent{
					OrderID: order.ID,
					Amount:  order.TotalAmount,
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment completed")
			}
		}

		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Cancel flips a pre-fulfillment order to cancelled and restores every
// line item's stock in the same transaction (the compensating action
// for placement's decrement).
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := s.authorizeOrderAccess(ctx, repo, order, actor); err != nil {
			return err
		}
		if !Cancellable(order.Status) {
			return transitionError(order.Status, enums.OrderStatusCancelled)
		}

		now := time.Now().UTC()
		flipped, err := repo.UpdateStatusIf(ctx, order.ID, order.Status, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		for _, item := range order.Items {
			if err := catalogRepo.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
			err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockRestored,
				AggregateType: enums.AggregateProduct,
				AggregateID:   item.ProductID,
				Actor:         actorRef(actor),
				Data: payloads.StockRestoredEvent{
					OrderID:   order.ID,
					ProductID: item.ProductID,
					Quantity:  item.Qty,
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock restored")
			}
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				CancelledAt: now,
				Reason:      reason,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled")
		}

		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCancelled()
	return FromModel(updated), nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOrderAccess(ctx, s.repo, order, actor); err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	return s.list(s.repo.ListByCustomer(ctx, actor.ID, params))
}

func (s *service) ListSeller(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if actor.Role != enums.UserRoleSeller && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller listing is seller or admin only")
	}
	return s.list(s.repo.ListBySeller(ctx, actor.ID, params))
}

func (s *service) ListAll(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unrestricted listing is admin only")
	}
	return s.list(s.repo.ListAll(ctx, params))
}

func (s *service) list(list *OrderList, err error) (*OrderList, error) {
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// authorizeOrderAccess admits the owning customer, any seller with a
// line item on the order, and admins.
func (s *service) authorizeOrderAccess(ctx context.Context, repo Repository, order *models.Order, actor Actor) error {
	if actor.IsAdmin() || order.CustomerID == actor.ID {
		return nil
	}
	if actor.Role == enums.UserRoleSeller {
		return s.requireSellerOnOrder(ctx, repo, order.ID, actor.ID)
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
}

func (s *service) requireSellerOnOrder(ctx context.Context, repo Repository, orderID, sellerID uuid.UUID) error {
	match, err := repo.SellerHasItems(ctx, orderID, sellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check seller items")
	}
	if !match {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order has no items sold by you")
	}
	return nil
}

type cart struct {
	ids []uuid.UUID
	qty map[uuid.UUID]int
}

// mergeCart collapses duplicate product lines, preserving first-seen order.
func mergeCart(items []OrderItemInput) (*cart, error) {
	merged := &cart{qty: make(map[uuid.UUID]int, len(items))}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if _, seen := merged.qty[item.ProductID]; !seen {
			merged.ids = append(merged.ids, item.ProductID)
		}
		merged.qty[item.ProductID] += item.Qty
	}
	return merged, nil
}

func transitionError(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal status transition").
		WithDetails(map[string]any{"from": from, "to": to})
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.ID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.ID, Role: actor.Role.String()}
}
