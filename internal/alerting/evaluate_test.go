package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonseed/internal/models"
)

func f(v float64) *float64 { return &v }

func TestEvaluate(t *testing.T) {
	engine := NewEngine(DefaultRules())

	tests := []struct {
		name         string
		reading      models.SensorReading
		wantTypes    []string
		wantSeverity []string
	}{
		{
			name:    "all nominal",
			reading: models.SensorReading{Temperature: f(850), GasIndex: f(120), VibrationX: f(1.2), Humidity: f(45), PowerConsumption: f(30)},
		},
		{
			name:         "temperature warning just over threshold",
			reading:      models.SensorReading{Temperature: f(910)},
			wantTypes:    []string{TypeTemperatureHigh},
			wantSeverity: []string{models.SeverityWarning},
		},
		{
			name:         "temperature critical beyond ten percent",
			reading:      models.SensorReading{Temperature: f(1000)},
			wantTypes:    []string{TypeTemperatureHigh},
			wantSeverity: []string{models.SeverityCritical},
		},
		{
			name:         "gas index breach",
			reading:      models.SensorReading{GasIndex: f(450)},
			wantTypes:    []string{TypeGasIndexHigh},
			wantSeverity: []string{models.SeverityWarning},
		},
		{
			name:         "vibration warning from max axis",
			reading:      models.SensorReading{VibrationX: f(1.0), VibrationY: f(6.2), VibrationZ: f(0.5)},
			wantTypes:    []string{TypeVibrationHigh},
			wantSeverity: []string{models.SeverityWarning},
		},
		{
			name:         "vibration critical",
			reading:      models.SensorReading{VibrationZ: f(9.1)},
			wantTypes:    []string{TypeVibrationHigh},
			wantSeverity: []string{models.SeverityCritical},
		},
		{
			name:         "humidity low",
			reading:      models.SensorReading{Humidity: f(10)},
			wantTypes:    []string{TypeHumidityRange},
			wantSeverity: []string{models.SeverityInfo},
		},
		{
			name:         "power consumption info",
			reading:      models.SensorReading{PowerConsumption: f(62)},
			wantTypes:    []string{TypePowerHigh},
			wantSeverity: []string{models.SeverityInfo},
		},
		{
			name:         "multiple breaches yield one each",
			reading:      models.SensorReading{Temperature: f(950), GasIndex: f(500), VibrationY: f(8.5)},
			wantTypes:    []string{TypeTemperatureHigh, TypeGasIndexHigh, TypeVibrationHigh},
			wantSeverity: []string{models.SeverityWarning, models.SeverityWarning, models.SeverityCritical},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaches := engine.Evaluate(tt.reading)
			require.Len(t, breaches, len(tt.wantTypes))
			for i, b := range breaches {
				assert.Equal(t, tt.wantTypes[i], b.AlertType)
				assert.Equal(t, tt.wantSeverity[i], b.Severity)
				assert.NotEmpty(t, b.Title)
				assert.NotEmpty(t, b.Message)
			}
		})
	}
}

func TestEvaluateMissingMetrics(t *testing.T) {
	engine := NewEngine(DefaultRules())

	// A reading with no metric fields at all must not trip any rule.
	breaches := engine.Evaluate(models.SensorReading{})
	assert.Empty(t, breaches)
}

func TestEvaluateCarriesThresholdValues(t *testing.T) {
	engine := NewEngine(DefaultRules())

	breaches := engine.Evaluate(models.SensorReading{Temperature: f(950)})
	require.Len(t, breaches, 1)
	assert.Equal(t, 950.0, breaches[0].MetricValue)
	assert.Equal(t, 900.0, breaches[0].ThresholdValue)
}
