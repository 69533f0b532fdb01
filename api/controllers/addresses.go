package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/api/middleware"
	"github.com/freshlane/freshlane-backend/api/responses"
	"github.com/freshlane/freshlane-backend/api/validators"
	"github.com/freshlane/freshlane-backend/internal/addresses"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
)

type createAddressRequest struct {
	Street    string   `json:"street" validate:"required,min=3,max=200"`
	City      string   `json:"city" validate:"required,min=2,max=100"`
	State     string   `json:"state" validate:"required,min=2,max=100"`
	Zip       string   `json:"zip" validate:"required,min=3,max=20"`
	Country   string   `json:"country" validate:"required,min=2,max=100"`
	Lat       *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng       *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	IsDefault bool     `json:"is_default"`
}

type updateAddressRequest struct {
	Street  *string  `json:"street,omitempty" validate:"omitempty,min=3,max=200"`
	City    *string  `json:"city,omitempty" validate:"omitempty,min=2,max=100"`
	State   *string  `json:"state,omitempty" validate:"omitempty,min=2,max=100"`
	Zip     *string  `json:"zip,omitempty" validate:"omitempty,min=3,max=20"`
	Country *string  `json:"country,omitempty" validate:"omitempty,min=2,max=100"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// CreateAddress adds a new entry to the caller's address book.
func CreateAddress(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var body createAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address, err := svc.Create(r.Context(), userID, addresses.CreateAddressInput{
			Street:    body.Street,
			City:      body.City,
			State:     body.State,
			Zip:       body.Zip,
			Country:   body.Country,
			Lat:       body.Lat,
			Lng:       body.Lng,
			IsDefault: body.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, address)
	}
}

// ListAddresses returns the caller's address book, default entry first.
func ListAddresses(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"addresses": list})
	}
}

// UpdateAddress applies a partial update to an owned address.
func UpdateAddress(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		addressID, err := validators.ParsePathUUID(chi.URLParam(r, "addressId"), "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var body updateAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address, err := svc.Update(r.Context(), addressID, userID, addresses.UpdateAddressInput{
			Street:  body.Street,
			City:    body.City,
			State:   body.State,
			Zip:     body.Zip,
			Country: body.Country,
			Lat:     body.Lat,
			Lng:     body.Lng,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, address)
	}
}

// DeleteAddress removes an owned address.
func DeleteAddress(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		addressID, err := validators.ParsePathUUID(chi.URLParam(r, "addressId"), "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		if err := svc.Delete(r.Context(), addressID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// SetDefaultAddress marks one owned address as the default shipping target.
func SetDefaultAddress(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		addressID, err := validators.ParsePathUUID(chi.URLParam(r, "addressId"), "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		if err := svc.SetDefault(r.Context(), addressID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
