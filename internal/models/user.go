package models

import (
	"time"

	"github.com/google/uuid"
)

// Role values assignable to a user account.
const (
	RoleAdmin        = "admin"
	RoleFactoryOwner = "factory_owner"
	RoleOperator     = "operator"
	RoleViewer       = "viewer"
)

// User represents an enterprise user of the platform.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string     `gorm:"type:text;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:text;not null" json:"-"`
	FullName     string     `gorm:"type:text;not null" json:"full_name"`
	Role         string     `gorm:"type:text;not null;default:'viewer'" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	FactoryID    *uuid.UUID `gorm:"type:uuid;index" json:"factory_id"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime" json:"updated_at"`

	Factory *Factory `gorm:"foreignKey:FactoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"factory,omitempty"`
}

func (User) TableName() string { return "users" }

// ValidRole reports whether role is one of the known role values.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleFactoryOwner, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// CanManageDevices reports whether the role may register devices or feed
// simulated data.
func CanManageDevices(role string) bool {
	return role == RoleAdmin || role == RoleFactoryOwner
}
