package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a user's address book. At most one entry per user
// carries the default flag; SetDefault swaps it transactionally.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateAddressInput) (*AddressDTO, error)
	Update(ctx context.Context, addressID, userID uuid.UUID, input UpdateAddressInput) (*AddressDTO, error)
	Delete(ctx context.Context, addressID, userID uuid.UUID) error
	SetDefault(ctx context.Context, addressID, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an address service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateAddressInput) (*AddressDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateAddressFields(input.Street, input.City, input.State, input.Zip); err != nil {
		return nil, err
	}
	if err := validateCoordinates(input.Lat, input.Lng); err != nil {
		return nil, err
	}

	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = "US"
	}

	address := &models.Address{
		UserID:    userID,
		Street:    strings.TrimSpace(input.Street),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Zip:       strings.TrimSpace(input.Zip),
		Country:   country,
		Lat:       input.Lat,
		Lng:       input.Lng,
		IsDefault: input.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if _, err := repo.Create(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(address), nil
}

func (s *service) Update(ctx context.Context, addressID, userID uuid.UUID, input UpdateAddressInput) (*AddressDTO, error) {
	address, err := s.loadOwned(ctx, addressID, userID)
	if err != nil {
		return nil, err
	}
	if err := validateCoordinates(input.Lat, input.Lng); err != nil {
		return nil, err
	}

	updates, err := buildUpdates(input)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return FromModel(address), nil
	}
	if err := s.repo.Update(ctx, addressID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}

	address, err = s.repo.FindByID(ctx, addressID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload address")
	}
	return FromModel(address), nil
}

func (s *service) Delete(ctx context.Context, addressID, userID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, addressID, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, addressID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}

func (s *service) SetDefault(ctx context.Context, addressID, userID uuid.UUID) error {
	address, err := s.loadOwned(ctx, addressID, userID)
	if err != nil {
		return err
	}
	if address.IsDefault {
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
		}
		if err := repo.SetDefault(ctx, addressID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default address")
		}
		return nil
	})
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// loadOwned fetches an address and hides other users' entries behind a
// not-found so the book never leaks across accounts.
func (s *service) loadOwned(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	address, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return address, nil
}

func validateAddressFields(street, city, state, zip string) error {
	if strings.TrimSpace(street) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "street is required")
	}
	if strings.TrimSpace(city) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	}
	if strings.TrimSpace(state) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "state is required")
	}
	if strings.TrimSpace(zip) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "zip is required")
	}
	return nil
}

func validateCoordinates(lat, lng *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return pkgerrors.New(pkgerrors.CodeValidation, "lat out of range")
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return pkgerrors.New(pkgerrors.CodeValidation, "lng out of range")
	}
	return nil
}

func buildUpdates(input UpdateAddressInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Street != nil {
		street := strings.TrimSpace(*input.Street)
		if street == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "street cannot be blank")
		}
		updates["street"] = street
	}
	if input.City != nil {
		city := strings.TrimSpace(*input.City)
		if city == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "city cannot be blank")
		}
		updates["city"] = city
	}
	if input.State != nil {
		state := strings.TrimSpace(*input.State)
		if state == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "state cannot be blank")
		}
		updates["state"] = state
	}
	if input.Zip != nil {
		zip := strings.TrimSpace(*input.Zip)
		if zip == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "zip cannot be blank")
		}
		updates["zip"] = zip
	}
	if input.Country != nil {
		country := strings.ToUpper(strings.TrimSpace(*input.Country))
		if country == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "country cannot be blank")
		}
		updates["country"] = country
	}
	if input.Lat != nil {
		updates["lat"] = *input.Lat
	}
	if input.Lng != nil {
		updates["lng"] = *input.Lng
	}
	return updates, nil
}
