package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

// IntentResult is returned when the gateway authorizes a new payment.
type IntentResult struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// ConfirmResult reports the outcome of a capture confirmation.
type ConfirmResult struct {
	Succeeded      bool
	CapturedAmount decimal.Decimal
}

// Gateway is the abstract payment-processor contract. The order
// workflow only ever records the resulting reference and status;
// cash on delivery bypasses the gateway entirely.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*IntentResult, error)
	ConfirmIntent(ctx context.Context, intentID string) (*ConfirmResult, error)
}
