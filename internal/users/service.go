package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
)

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ListByRole(ctx context.Context, role enums.UserRole) ([]models.User, error)
}

// Service exposes profile and admin account operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	ListSellers(ctx context.Context) ([]SellerDTO, error)
	ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role enums.UserRole) (*UserDTO, error)
}

type service struct {
	repo repository
}

// NewService constructs a users service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// UpdateProfile changes the caller's own display fields. Email and
// role are not reachable from here.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = *input.AvatarURL
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no profile fields to update")
	}

	if err := s.repo.UpdateProfile(ctx, userID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Get(ctx, userID)
}

// ListSellers is the public storefront seller directory.
func (s *service) ListSellers(ctx context.Context) ([]SellerDTO, error) {
	accounts, err := s.repo.ListByRole(ctx, enums.UserRoleSeller)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
	}
	sellers := make([]SellerDTO, 0, len(accounts))
	for i := range accounts {
		sellers = append(sellers, SellerDTO{
			ID:        accounts[i].ID,
			FirstName: accounts[i].FirstName,
			LastName:  accounts[i].LastName,
			AvatarURL: accounts[i].AvatarURL,
		})
	}
	return sellers, nil
}

// ChangeRole is the admin role mutation. An admin cannot demote their
// own account; that guards against locking every admin out.
func (s *service) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role enums.UserRole) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if actorID == userID && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot change own admin role")
	}

	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	return s.Get(ctx, userID)
}
