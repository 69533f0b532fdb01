package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	pkgstripe "github.com/freshlane/freshlane-backend/pkg/stripe"
)

var minorUnits = decimal.NewFromInt(100)

type stripeGateway struct {
	client *pkgstripe.Client
}

// NewStripeGateway adapts the shared Stripe client to the Gateway contract.
func NewStripeGateway(client *pkgstripe.Client) (Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	return &stripeGateway{client: client}, nil
}

func (g *stripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*IntentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount.Mul(minorUnits).IntPart()),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (g *stripeGateway) ConfirmIntent(ctx context.Context, intentID string) (*ConfirmResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment intent")
	}
	return &ConfirmResult{
		Succeeded:      intent.Status == stripe.PaymentIntentStatusSucceeded,
		CapturedAmount: decimal.NewFromInt(intent.AmountReceived).Div(minorUnits),
	}, nil
}
