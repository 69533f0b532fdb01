package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is one entry in a user's address book. At most one address
// per user carries IsDefault; the address service enforces that, not
// the store.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Street    string    `gorm:"column:street;not null"`
	City      string    `gorm:"column:city;not null"`
	State     string    `gorm:"column:state;not null"`
	Zip       string    `gorm:"column:zip;not null"`
	Country   string    `gorm:"column:country;not null;default:'US'"`
	Lat       *float64  `gorm:"column:lat;type:numeric(9,6)"`
	Lng       *float64  `gorm:"column:lng;type:numeric(9,6)"`
	IsDefault bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
