package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Report types supported by the reporting endpoints.
const (
	ReportWeekly     = "weekly"
	ReportMonthly    = "monthly"
	ReportCompliance = "compliance"
)

// Report is a generated summary for a factory over a period. Summary holds
// the computed metrics; FilePath points at the exported workbook in object
// storage once one has been produced.
type Report struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FactoryID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"factory_id"`
	ReportType  string            `gorm:"type:text;not null" json:"report_type"`
	PeriodStart time.Time         `gorm:"type:timestamptz;not null" json:"period_start"`
	PeriodEnd   time.Time         `gorm:"type:timestamptz;not null" json:"period_end"`
	Summary     datatypes.JSONMap `gorm:"type:jsonb" json:"summary"`
	FilePath    string            `gorm:"type:text" json:"file_path"`
	GeneratedBy *uuid.UUID        `gorm:"type:uuid" json:"generated_by"`
	GeneratedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"generated_at"`

	Factory *Factory `gorm:"foreignKey:FactoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (Report) TableName() string { return "reports" }

// ValidReportType reports whether t names a supported report type.
func ValidReportType(t string) bool {
	switch t {
	case ReportWeekly, ReportMonthly, ReportCompliance:
		return true
	default:
		return false
	}
}
