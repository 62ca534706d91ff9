package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Alert severities, ordered least to most urgent.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert lifecycle states.
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Alert records a threshold breach detected on a sensor reading. Context
// holds the reading snapshot that triggered it.
type Alert struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DeviceID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"device_id"`
	FactoryID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"factory_id"`
	AlertType      string            `gorm:"type:text;not null" json:"alert_type"`
	Severity       string            `gorm:"type:text;not null;default:'info'" json:"severity"`
	Status         string            `gorm:"type:text;not null;default:'active';index" json:"status"`
	Title          string            `gorm:"type:text;not null" json:"title"`
	Message        string            `gorm:"type:text;not null" json:"message"`
	MetricValue    *float64          `json:"metric_value"`
	ThresholdValue *float64          `json:"threshold_value"`
	Context        datatypes.JSONMap `gorm:"type:jsonb" json:"context"`
	TriggeredAt    time.Time         `gorm:"type:timestamptz;not null;index" json:"triggered_at"`
	AcknowledgedAt *time.Time        `gorm:"type:timestamptz" json:"acknowledged_at"`
	AcknowledgedBy *uuid.UUID        `gorm:"type:uuid" json:"acknowledged_by"`
	ResolvedAt     *time.Time        `gorm:"type:timestamptz" json:"resolved_at"`
	CreatedAt      time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"created_at"`

	Device *Device `gorm:"foreignKey:DeviceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (Alert) TableName() string { return "alerts" }

// ValidSeverity reports whether s is a known severity value.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

// ValidAlertStatus reports whether s is a known alert status value.
func ValidAlertStatus(s string) bool {
	switch s {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved:
		return true
	default:
		return false
	}
}
