package models

import (
	"time"

	"github.com/google/uuid"
)

// Factory is the tenant unit. Users and devices belong to exactly one factory.
type Factory struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string    `gorm:"type:text;not null" json:"name"`
	Location     string    `gorm:"type:text" json:"location"`
	Industry     string    `gorm:"type:text" json:"industry"`
	ContactEmail string    `gorm:"type:text" json:"contact_email"`
	ContactPhone string    `gorm:"type:text" json:"contact_phone"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime" json:"updated_at"`

	Devices []Device `gorm:"foreignKey:FactoryID" json:"-"`
}

func (Factory) TableName() string { return "factories" }
