package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
	"github.com/freshlane/freshlane-backend/pkg/outbox/payloads"
)

// orderLedger is the slice of the order repository the webhook needs.
// The orders package satisfies it structurally; injecting a factory
// keeps payments from importing orders.
type orderLedger interface {
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

// LedgerFactory binds an order ledger to the webhook transaction.
type LedgerFactory func(tx *gorm.DB) OrderLedger

// OrderLedger is the exported alias consumed by wiring code.
type OrderLedger = orderLedger

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type WebhookServiceParams struct {
	Ledger LedgerFactory
	Tx     txRunner
	Outbox outboxPublisher
	Guard  *IdempotencyGuard
	Logger *logger.Logger
}

// WebhookService applies Stripe payment events to the order ledger.
type WebhookService struct {
	ledger LedgerFactory
	tx     txRunner
	outbox outboxPublisher
	guard  *IdempotencyGuard
	logg   *logger.Logger
}

func NewWebhookService(params WebhookServiceParams) (*WebhookService, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger factory required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	return &WebhookService{
		ledger: params.Ledger,
		tx:     params.Tx,
		outbox: params.Outbox,
		guard:  params.Guard,
		logg:   params.Logger,
	}, nil
}

// HandleEvent processes one verified Stripe event. Duplicate deliveries
// are dropped before any work happens; a processing failure releases
// the event so Stripe's retry can land.
func (s *WebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
	}
	if duplicate {
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("duplicate stripe event %s dropped", event.ID))
		}
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		if releaseErr := s.guard.Release(ctx, event.ID); releaseErr != nil && s.logg != nil {
			s.logg.Error(ctx, fmt.Sprintf("release webhook key for %s", event.ID), releaseErr)
		}
		return err
	}
	return nil
}

func (s *WebhookService) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.settle(ctx, intent.ID, decimal.NewFromInt(intent.AmountReceived).Div(minorUnits))
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.fail(ctx, intent.ID, failureReason(intent))
	default:
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "payment declined"
}

func (s *WebhookService) settle(ctx context.Context, reference string, amount decimal.Decimal) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.ledger(tx)
		order, err := s.lookup(ctx, ledger, reference)
		if err != nil || order == nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			return nil
		}
		if err := ledger.UpdatePayment(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusCompleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle order payment")
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCompleted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   order.ID,
			Data: payloads.PaymentCompletedEvent{
				OrderID:          order.ID,
				PaymentReference: reference,
				Amount:           amount,
			},
			OccurredAt: time.Now().UTC(),
		})
	})
}

func (s *WebhookService) fail(ctx context.Context, reference, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.ledger(tx)
		order, err := s.lookup(ctx, ledger, reference)
		if err != nil || order == nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusFailed {
			return nil
		}
		// A settled order never flips back to failed on a late event.
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			return nil
		}
		if err := ledger.UpdatePayment(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order payment failed")
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   order.ID,
			Data: payloads.PaymentFailedEvent{
				OrderID:          order.ID,
				PaymentReference: reference,
				Reason:           reason,
			},
			OccurredAt: time.Now().UTC(),
		})
	})
}

// lookup resolves the order carrying the payment reference. Unknown
// references are acknowledged and dropped so Stripe stops retrying
// events for orders that were never written.
func (s *WebhookService) lookup(ctx context.Context, ledger OrderLedger, reference string) (*models.Order, error) {
	order, err := ledger.FindByPaymentReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("no order for payment reference %s", reference))
			}
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order by payment reference")
	}
	return order, nil
}
