package models

import (
	"time"

	"github.com/google/uuid"
)

// SensorReading is one time-series sample reported by a device. All metric
// fields are nullable because firmware revisions differ in which sensors they
// carry.
type SensorReading struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DeviceID         uuid.UUID `gorm:"type:uuid;not null;index:idx_readings_device_ts,priority:1" json:"device_id"`
	Timestamp        time.Time `gorm:"type:timestamptz;not null;index:idx_readings_device_ts,priority:2" json:"timestamp"`
	Temperature      *float64  `json:"temperature"`
	GasIndex         *float64  `json:"gas_index"`
	VibrationX       *float64  `json:"vibration_x"`
	VibrationY       *float64  `json:"vibration_y"`
	VibrationZ       *float64  `json:"vibration_z"`
	Humidity         *float64  `json:"humidity"`
	Pressure         *float64  `json:"pressure"`
	PowerConsumption *float64  `json:"power_consumption"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"created_at"`

	Device *Device `gorm:"foreignKey:DeviceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (SensorReading) TableName() string { return "sensor_readings" }

// MaxVibration returns the largest reported vibration magnitude across the
// three axes, treating missing axes as zero.
func (r SensorReading) MaxVibration() float64 {
	max := 0.0
	for _, v := range []*float64{r.VibrationX, r.VibrationY, r.VibrationZ} {
		if v != nil && *v > max {
			max = *v
		}
	}
	return max
}
