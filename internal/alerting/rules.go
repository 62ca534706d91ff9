package alerting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules holds the numeric thresholds compared against each incoming reading.
// Zero values mean "use the default"; a YAML rules file may override any
// subset.
type Rules struct {
	TemperatureHigh      float64 `yaml:"temperature_high"`
	TemperatureLow       float64 `yaml:"temperature_low"`
	GasIndexHigh         float64 `yaml:"gas_index_high"`
	VibrationCritical    float64 `yaml:"vibration_critical"`
	VibrationWarning     float64 `yaml:"vibration_warning"`
	HumidityHigh         float64 `yaml:"humidity_high"`
	HumidityLow          float64 `yaml:"humidity_low"`
	PowerConsumptionHigh float64 `yaml:"power_consumption_high"`
}

// DefaultRules returns the stock thresholds tuned for furnace-heavy MSME
// installations.
func DefaultRules() Rules {
	return Rules{
		TemperatureHigh:      900,
		TemperatureLow:       20,
		GasIndexHigh:         400,
		VibrationCritical:    8.0,
		VibrationWarning:     5.0,
		HumidityHigh:         80,
		HumidityLow:          20,
		PowerConsumptionHigh: 50,
	}
}

// LoadRules reads a YAML rules file and merges it over the defaults. An empty
// path returns the defaults unchanged.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}

	rules.merge(override)
	return rules, nil
}

func (r *Rules) merge(o Rules) {
	if o.TemperatureHigh > 0 {
		r.TemperatureHigh = o.TemperatureHigh
	}
	if o.TemperatureLow > 0 {
		r.TemperatureLow = o.TemperatureLow
	}
	if o.GasIndexHigh > 0 {
		r.GasIndexHigh = o.GasIndexHigh
	}
	if o.VibrationCritical > 0 {
		r.VibrationCritical = o.VibrationCritical
	}
	if o.VibrationWarning > 0 {
		r.VibrationWarning = o.VibrationWarning
	}
	if o.HumidityHigh > 0 {
		r.HumidityHigh = o.HumidityHigh
	}
	if o.HumidityLow > 0 {
		r.HumidityLow = o.HumidityLow
	}
	if o.PowerConsumptionHigh > 0 {
		r.PowerConsumptionHigh = o.PowerConsumptionHigh
	}
}
