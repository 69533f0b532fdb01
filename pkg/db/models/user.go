package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/pkg/enums"
)

// User represents the canonical identity entity. PasswordHash is nil
// for accounts created through federated login.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash *string        `gorm:"column:password_hash"`
	FirstName    string         `gorm:"column:first_name;not null"`
	LastName     string         `gorm:"column:last_name;not null"`
	Phone        *string        `gorm:"column:phone"`
	AvatarURL    *string        `gorm:"column:avatar_url"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:'customer'"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	Addresses    []Address      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
