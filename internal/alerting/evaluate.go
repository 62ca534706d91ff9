package alerting

import (
	"fmt"

	"carbonseed/internal/models"
)

// Alert types produced by the threshold engine.
const (
	TypeTemperatureHigh = "temperature_high"
	TypeGasIndexHigh    = "gas_index_high"
	TypeVibrationHigh   = "vibration_high"
	TypeHumidityRange   = "humidity_out_of_range"
	TypePowerHigh       = "power_consumption_high"
)

// Breach describes one threshold violated by a reading. The ingest path turns
// each breach into exactly one alert row.
type Breach struct {
	AlertType      string
	Severity       string
	Title          string
	Message        string
	MetricValue    float64
	ThresholdValue float64
}

// Engine evaluates readings against a fixed rule set.
type Engine struct {
	rules Rules
}

// NewEngine returns an Engine using the provided rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the thresholds the engine evaluates against.
func (e *Engine) Rules() Rules { return e.rules }

// Evaluate compares a reading against the thresholds and returns one Breach
// per violated rule. Missing metrics are skipped.
func (e *Engine) Evaluate(r models.SensorReading) []Breach {
	var breaches []Breach

	if r.Temperature != nil && *r.Temperature > e.rules.TemperatureHigh {
		severity := models.SeverityWarning
		// Running more than 10% over the furnace limit is treated as critical.
		if *r.Temperature > e.rules.TemperatureHigh*1.1 {
			severity = models.SeverityCritical
		}
		breaches = append(breaches, Breach{
			AlertType:      TypeTemperatureHigh,
			Severity:       severity,
			Title:          "High Temperature Alert",
			Message:        fmt.Sprintf("Temperature %.1f°C exceeds threshold of %.1f°C", *r.Temperature, e.rules.TemperatureHigh),
			MetricValue:    *r.Temperature,
			ThresholdValue: e.rules.TemperatureHigh,
		})
	}

	if r.GasIndex != nil && *r.GasIndex > e.rules.GasIndexHigh {
		breaches = append(breaches, Breach{
			AlertType:      TypeGasIndexHigh,
			Severity:       models.SeverityWarning,
			Title:          "Elevated Gas Index",
			Message:        fmt.Sprintf("Gas index %.1f exceeds threshold of %.1f", *r.GasIndex, e.rules.GasIndexHigh),
			MetricValue:    *r.GasIndex,
			ThresholdValue: e.rules.GasIndexHigh,
		})
	}

	if maxVib := r.MaxVibration(); maxVib > e.rules.VibrationWarning {
		if maxVib > e.rules.VibrationCritical {
			breaches = append(breaches, Breach{
				AlertType:      TypeVibrationHigh,
				Severity:       models.SeverityCritical,
				Title:          "Critical Vibration Detected",
				Message:        fmt.Sprintf("Vibration level %.2f exceeds critical threshold of %.2f", maxVib, e.rules.VibrationCritical),
				MetricValue:    maxVib,
				ThresholdValue: e.rules.VibrationCritical,
			})
		} else {
			breaches = append(breaches, Breach{
				AlertType:      TypeVibrationHigh,
				Severity:       models.SeverityWarning,
				Title:          "Elevated Vibration Warning",
				Message:        fmt.Sprintf("Vibration level %.2f exceeds warning threshold of %.2f", maxVib, e.rules.VibrationWarning),
				MetricValue:    maxVib,
				ThresholdValue: e.rules.VibrationWarning,
			})
		}
	}

	if r.Humidity != nil && (*r.Humidity > e.rules.HumidityHigh || *r.Humidity < e.rules.HumidityLow) {
		threshold := e.rules.HumidityHigh
		if *r.Humidity < e.rules.HumidityLow {
			threshold = e.rules.HumidityLow
		}
		breaches = append(breaches, Breach{
			AlertType:      TypeHumidityRange,
			Severity:       models.SeverityInfo,
			Title:          "Humidity Out of Range",
			Message:        fmt.Sprintf("Humidity %.1f%% is outside the %.0f-%.0f%% operating band", *r.Humidity, e.rules.HumidityLow, e.rules.HumidityHigh),
			MetricValue:    *r.Humidity,
			ThresholdValue: threshold,
		})
	}

	if r.PowerConsumption != nil && *r.PowerConsumption > e.rules.PowerConsumptionHigh {
		breaches = append(breaches, Breach{
			AlertType:      TypePowerHigh,
			Severity:       models.SeverityInfo,
			Title:          "High Power Consumption",
			Message:        fmt.Sprintf("Power consumption %.1f kWh exceeds threshold of %.1f kWh", *r.PowerConsumption, e.rules.PowerConsumptionHigh),
			MetricValue:    *r.PowerConsumption,
			ThresholdValue: e.rules.PowerConsumptionHigh,
		})
	}

	return breaches
}
