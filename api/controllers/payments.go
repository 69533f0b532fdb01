package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/api/middleware"
	"github.com/freshlane/freshlane-backend/api/responses"
	"github.com/freshlane/freshlane-backend/api/validators"
	"github.com/freshlane/freshlane-backend/internal/payments"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
)

type createIntentRequest struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// CreatePaymentIntent opens a gateway payment intent for the caller.
func CreatePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var body createIntentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parsePrice(body.Amount, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), userID, payments.CreateIntentInput{
			Amount:   amount,
			Currency: body.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}
