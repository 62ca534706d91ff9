package ingest

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"carbonseed/internal/models"
)

// Payload is the flat JSON object firmware posts once per interval. All
// metric fields are optional; a payload carrying none of them is rejected.
type Payload struct {
	DeviceID         string     `json:"device_id"`
	Timestamp        *time.Time `json:"timestamp"`
	Temperature      *float64   `json:"temperature"`
	GasIndex         *float64   `json:"gas_index"`
	VibrationX       *float64   `json:"vibration_x"`
	VibrationY       *float64   `json:"vibration_y"`
	VibrationZ       *float64   `json:"vibration_z"`
	Humidity         *float64   `json:"humidity"`
	Pressure         *float64   `json:"pressure"`
	PowerConsumption *float64   `json:"power_consumption"`
}

// Validation failures surfaced as 422s by the HTTP layer.
var (
	ErrMissingDeviceID = errors.New("device_id is required")
	ErrNoMetrics       = errors.New("payload carries no metric fields")
	ErrFutureTimestamp = errors.New("timestamp is too far in the future")
)

// futureSkew tolerates modest clock drift on edge devices.
const futureSkew = 5 * time.Minute

// Validate checks the payload shape before any database work.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.DeviceID) == "" {
		return ErrMissingDeviceID
	}
	if p.Temperature == nil && p.GasIndex == nil &&
		p.VibrationX == nil && p.VibrationY == nil && p.VibrationZ == nil &&
		p.Humidity == nil && p.Pressure == nil && p.PowerConsumption == nil {
		return ErrNoMetrics
	}
	if p.Timestamp != nil && p.Timestamp.After(time.Now().Add(futureSkew)) {
		return ErrFutureTimestamp
	}
	return nil
}

// EffectiveTimestamp returns the payload timestamp, defaulting to now.
func (p Payload) EffectiveTimestamp() time.Time {
	if p.Timestamp != nil {
		return p.Timestamp.UTC()
	}
	return time.Now().UTC()
}

func (p Payload) toReading(deviceID uuid.UUID) models.SensorReading {
	return models.SensorReading{
		ID:               uuid.New(),
		DeviceID:         deviceID,
		Timestamp:        p.EffectiveTimestamp(),
		Temperature:      p.Temperature,
		GasIndex:         p.GasIndex,
		VibrationX:       p.VibrationX,
		VibrationY:       p.VibrationY,
		VibrationZ:       p.VibrationZ,
		Humidity:         p.Humidity,
		Pressure:         p.Pressure,
		PowerConsumption: p.PowerConsumption,
	}
}
