package addresses

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
)

// AddressDTO is the API-facing shape of one address-book entry.
type AddressDTO struct {
	ID        uuid.UUID `json:"id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Country   string    `json:"country"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAddressInput carries the fields for a new address-book entry.
type CreateAddressInput struct {
	Street    string
	City      string
	State     string
	Zip       string
	Country   string
	Lat       *float64
	Lng       *float64
	IsDefault bool
}

// UpdateAddressInput carries the mutable fields. Nil means unchanged.
type UpdateAddressInput struct {
	Street  *string
	City    *string
	State   *string
	Zip     *string
	Country *string
	Lat     *float64
	Lng     *float64
}

func FromModel(address *models.Address) *AddressDTO {
	if address == nil {
		return nil
	}
	return &AddressDTO{
		ID:        address.ID,
		Street:    address.Street,
		City:      address.City,
		State:     address.State,
		Zip:       address.Zip,
		Country:   address.Country,
		Lat:       address.Lat,
		Lng:       address.Lng,
		IsDefault: address.IsDefault,
		CreatedAt: address.CreatedAt,
		UpdatedAt: address.UpdatedAt,
	}
}
