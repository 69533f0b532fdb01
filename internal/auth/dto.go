package auth

import (
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/enums"
)

// RegisterRequest contains the payload for creating a new account.
// Role may be customer or seller; admin accounts are provisioned
// through the admin role-change endpoint, never self-service.
type RegisterRequest struct {
	FirstName string          `json:"first_name" validate:"required"`
	LastName  string          `json:"last_name" validate:"required"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8"`
	Phone     *string         `json:"phone,omitempty"`
	Role      *enums.UserRole `json:"role,omitempty"`
}

// LoginRequest carries the credential pair.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates a session. The access token may be expired;
// the refresh token must match the one stored for the user.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is one minted session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse returns the session and the authenticated profile.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
