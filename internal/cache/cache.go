package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"carbonseed/internal/models"
)

// ErrMiss is returned when no cached reading exists for a device.
var ErrMiss = errors.New("cache miss")

const latestTTL = 10 * time.Minute

// Latest caches the most recent reading per device so dashboard polls avoid
// hitting the readings table. A nil *Latest degrades to pass-through.
type Latest struct {
	client *redis.Client
}

// New connects a Latest cache to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int) (*Latest, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Latest{client: client}, nil
}

// Close releases the Redis connection.
func (l *Latest) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}

func latestKey(deviceID string) string {
	return "carbonseed:latest:" + deviceID
}

// SetLatest stores the reading as the device's most recent sample.
func (l *Latest) SetLatest(ctx context.Context, deviceID string, reading models.SensorReading) error {
	if l == nil {
		return nil
	}
	data, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, latestKey(deviceID), data, latestTTL).Err()
}

// GetLatest fetches the most recent cached reading for a device.
func (l *Latest) GetLatest(ctx context.Context, deviceID string) (models.SensorReading, error) {
	if l == nil {
		return models.SensorReading{}, ErrMiss
	}

	data, err := l.client.Get(ctx, latestKey(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.SensorReading{}, ErrMiss
	}
	if err != nil {
		return models.SensorReading{}, err
	}

	var reading models.SensorReading
	if err := json.Unmarshal(data, &reading); err != nil {
		return models.SensorReading{}, err
	}
	return reading, nil
}

// Invalidate drops the cached reading for a device.
func (l *Latest) Invalidate(ctx context.Context, deviceID string) error {
	if l == nil {
		return nil
	}
	return l.client.Del(ctx, latestKey(deviceID)).Err()
}
