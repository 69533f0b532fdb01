package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
)

const defaultCurrency = "usd"

// CreateIntentInput is the client's payment authorization request.
// Amount is in major currency units.
type CreateIntentInput struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Service authorizes payments ahead of order placement.
type Service interface {
	CreateIntent(ctx context.Context, userID uuid.UUID, input CreateIntentInput) (*IntentResult, error)
}

type ServiceParams struct {
	Gateway        Gateway
	GatewayTimeout time.Duration
}

type service struct {
	gateway Gateway
	timeout time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.GatewayTimeout <= 0 {
		return nil, fmt.Errorf("gateway timeout must be positive")
	}
	return &service{
		gateway: params.Gateway,
		timeout: params.GatewayTimeout,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, userID uuid.UUID, input CreateIntentInput) (*IntentResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Amount.Exponent() < -2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount precision exceeds minor units")
	}

	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.gateway.CreateIntent(ctx, input.Amount, currency)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	return result, nil
}
