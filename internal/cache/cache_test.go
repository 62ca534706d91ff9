package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonseed/internal/models"
)

func newTestCache(t *testing.T) *Latest {
	t.Helper()
	srv := miniredis.RunT(t)

	cache, err := New(context.Background(), srv.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return cache
}

func TestLatestRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	temp := 845.2
	reading := models.SensorReading{
		ID:          uuid.New(),
		DeviceID:    uuid.New(),
		Timestamp:   time.Now().UTC().Truncate(time.Second),
		Temperature: &temp,
	}

	require.NoError(t, cache.SetLatest(ctx, "ESP32-001", reading))

	got, err := cache.GetLatest(ctx, "ESP32-001")
	require.NoError(t, err)
	assert.Equal(t, reading.ID, got.ID)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, temp, *got.Temperature)
}

func TestLatestMiss(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.GetLatest(context.Background(), "ESP32-UNKNOWN")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLatestInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetLatest(ctx, "ESP32-001", models.SensorReading{ID: uuid.New()}))
	require.NoError(t, cache.Invalidate(ctx, "ESP32-001"))

	_, err := cache.GetLatest(ctx, "ESP32-001")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNilCacheIsPassThrough(t *testing.T) {
	var cache *Latest

	require.NoError(t, cache.SetLatest(context.Background(), "x", models.SensorReading{}))
	_, err := cache.GetLatest(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMiss)
	require.NoError(t, cache.Close())
}
