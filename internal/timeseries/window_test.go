package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		period string
		start  time.Time
	}{
		{"", now.Add(-24 * time.Hour)},
		{"24h", now.Add(-24 * time.Hour)},
		{"7d", now.AddDate(0, 0, -7)},
		{"30d", now.AddDate(0, 0, -30)},
	}
	for _, tc := range cases {
		w, err := ParseWindow(tc.period, now)
		require.NoError(t, err, tc.period)
		assert.Equal(t, tc.start, w.Start)
		assert.Equal(t, now, w.End)
	}

	_, err := ParseWindow("90d", now)
	assert.Error(t, err)
}

func TestParseBucket(t *testing.T) {
	d, err := ParseBucket("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	d, err = ParseBucket("1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	for _, raw := range []string{"10s", "48h", "bogus"} {
		_, err := ParseBucket(raw)
		assert.Error(t, err, raw)
	}
}

func TestVibrationHealthScore(t *testing.T) {
	assert.InDelta(t, 100.0, VibrationHealthScore(0), 0.001)
	assert.InDelta(t, 88.0, VibrationHealthScore(2), 0.001)
	assert.InDelta(t, 54.0, VibrationHealthScore(7), 0.001)
	assert.InDelta(t, 15.0, VibrationHealthScore(15), 0.001)
	assert.Equal(t, 0.0, VibrationHealthScore(50))
}
