package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is an ESP32 sensor node installed on a factory machine. DeviceID is
// the external identifier the firmware sends; ID is the database key.
type Device struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DeviceID        string     `gorm:"type:text;uniqueIndex;not null" json:"device_id"`
	DeviceName      string     `gorm:"type:text;not null" json:"device_name"`
	DeviceType      string     `gorm:"type:text;not null;default:'ESP32'" json:"device_type"`
	FactoryID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"factory_id"`
	MachineName     string     `gorm:"type:text" json:"machine_name"`
	Location        string     `gorm:"type:text" json:"location"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	LastSeen        *time.Time `gorm:"type:timestamptz" json:"last_seen"`
	FirmwareVersion string     `gorm:"type:text" json:"firmware_version"`
	APIKey          string     `gorm:"type:text;uniqueIndex;not null" json:"-"`
	CreatedAt       time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime" json:"updated_at"`

	Factory *Factory `gorm:"foreignKey:FactoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (Device) TableName() string { return "devices" }
