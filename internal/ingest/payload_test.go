package ingest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadValidate(t *testing.T) {
	temp := 850.0
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name    string
		payload Payload
		wantErr error
	}{
		{
			name:    "valid minimal",
			payload: Payload{DeviceID: "ESP32-001", Temperature: &temp},
		},
		{
			name:    "missing device id",
			payload: Payload{Temperature: &temp},
			wantErr: ErrMissingDeviceID,
		},
		{
			name:    "whitespace device id",
			payload: Payload{DeviceID: "   ", Temperature: &temp},
			wantErr: ErrMissingDeviceID,
		},
		{
			name:    "no metrics at all",
			payload: Payload{DeviceID: "ESP32-001"},
			wantErr: ErrNoMetrics,
		},
		{
			name:    "timestamp too far ahead",
			payload: Payload{DeviceID: "ESP32-001", Temperature: &temp, Timestamp: &future},
			wantErr: ErrFutureTimestamp,
		},
		{
			name:    "past timestamp accepted",
			payload: Payload{DeviceID: "ESP32-001", Temperature: &temp, Timestamp: &past},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEffectiveTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	p := Payload{DeviceID: "ESP32-001", Timestamp: &ts}
	assert.Equal(t, ts.UTC(), p.EffectiveTimestamp())

	before := time.Now().UTC()
	got := Payload{DeviceID: "ESP32-001"}.EffectiveTimestamp()
	assert.False(t, got.Before(before))
}

func TestToReadingCopiesAllMetrics(t *testing.T) {
	temp, gas, vx, hum := 850.0, 120.0, 2.2, 55.0
	ts := time.Now().UTC().Add(-time.Minute)
	deviceID := uuid.New()

	reading := Payload{
		DeviceID:    "ESP32-001",
		Timestamp:   &ts,
		Temperature: &temp,
		GasIndex:    &gas,
		VibrationX:  &vx,
		Humidity:    &hum,
	}.toReading(deviceID)

	assert.Equal(t, deviceID, reading.DeviceID)
	assert.Equal(t, ts, reading.Timestamp)
	require.NotNil(t, reading.Temperature)
	assert.Equal(t, temp, *reading.Temperature)
	require.NotNil(t, reading.GasIndex)
	assert.Equal(t, gas, *reading.GasIndex)
	assert.Nil(t, reading.VibrationY)
	assert.Nil(t, reading.PowerConsumption)
	assert.NotEqual(t, uuid.Nil, reading.ID)
}
