package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carbonseed/internal/alerting"
	"carbonseed/internal/bus"
	"carbonseed/internal/cache"
	"carbonseed/internal/models"
)

// Ingest sources reported in metrics and events.
const (
	SourceHTTP      = "http"
	SourceMQTT      = "mqtt"
	SourceSimulator = "simulator"
)

var (
	// ErrDeviceNotFound is returned when the external device id is unknown.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceInactive is returned for readings from deactivated devices.
	ErrDeviceInactive = errors.New("device is inactive")
	// ErrBadAPIKey is returned when the device key does not match.
	ErrBadAPIKey = errors.New("invalid device api key")
)

// Service runs the ingestion pipeline: validate, persist, evaluate
// thresholds, then fan out cache updates and events. Each call is one
// synchronous unit of work.
type Service struct {
	orm    *gorm.DB
	engine *alerting.Engine
	cache  *cache.Latest
	events *bus.Bus
	log    zerolog.Logger
}

// NewService wires the pipeline dependencies. cache and events may be nil.
func NewService(orm *gorm.DB, engine *alerting.Engine, latest *cache.Latest, events *bus.Bus, log zerolog.Logger) (*Service, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if engine == nil {
		return nil, errors.New("alert engine is required")
	}
	return &Service{orm: orm, engine: engine, cache: latest, events: events, log: log}, nil
}

// DeviceByExternalID looks up a device by the identifier firmware sends.
func (s *Service) DeviceByExternalID(ctx context.Context, externalID string) (models.Device, error) {
	var device models.Device
	err := s.orm.WithContext(ctx).Where("device_id = ?", strings.TrimSpace(externalID)).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Device{}, ErrDeviceNotFound
	}
	if err != nil {
		return models.Device{}, err
	}
	return device, nil
}

// Ingest authenticates the payload against the device API key and runs the
// pipeline. Used by the public firmware-facing endpoints.
func (s *Service) Ingest(ctx context.Context, p Payload, apiKey, source string) (models.SensorReading, []models.Alert, error) {
	if err := p.Validate(); err != nil {
		readingsRejected.WithLabelValues("invalid_payload").Inc()
		return models.SensorReading{}, nil, err
	}

	device, err := s.DeviceByExternalID(ctx, p.DeviceID)
	if err != nil {
		readingsRejected.WithLabelValues("unknown_device").Inc()
		return models.SensorReading{}, nil, err
	}
	if device.APIKey != apiKey {
		readingsRejected.WithLabelValues("bad_api_key").Inc()
		return models.SensorReading{}, nil, ErrBadAPIKey
	}

	return s.IngestForDevice(ctx, device, p, source)
}

// IngestForDevice runs the pipeline for an already-authorized device. The
// caller is responsible for access checks.
func (s *Service) IngestForDevice(ctx context.Context, device models.Device, p Payload, source string) (models.SensorReading, []models.Alert, error) {
	if err := p.Validate(); err != nil {
		readingsRejected.WithLabelValues("invalid_payload").Inc()
		return models.SensorReading{}, nil, err
	}
	if !device.IsActive {
		readingsRejected.WithLabelValues("inactive_device").Inc()
		return models.SensorReading{}, nil, ErrDeviceInactive
	}

	reading := p.toReading(device.ID)
	breaches := s.engine.Evaluate(reading)

	alerts := make([]models.Alert, 0, len(breaches))
	for _, b := range breaches {
		metric := b.MetricValue
		threshold := b.ThresholdValue
		alerts = append(alerts, models.Alert{
			ID:             uuid.New(),
			DeviceID:       device.ID,
			FactoryID:      device.FactoryID,
			AlertType:      b.AlertType,
			Severity:       b.Severity,
			Status:         models.AlertStatusActive,
			Title:          b.Title,
			Message:        b.Message,
			MetricValue:    &metric,
			ThresholdValue: &threshold,
			Context:        readingContext(reading),
			TriggeredAt:    reading.Timestamp,
		})
	}

	// One transaction per reading: the row, the device heartbeat, and any
	// alert rows land together or not at all.
	err := s.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reading).Error; err != nil {
			return fmt.Errorf("insert reading: %w", err)
		}
		if err := tx.Model(&models.Device{}).Where("id = ?", device.ID).
			Update("last_seen", reading.Timestamp).Error; err != nil {
			return fmt.Errorf("update last_seen: %w", err)
		}
		if len(alerts) > 0 {
			if err := tx.Create(&alerts).Error; err != nil {
				return fmt.Errorf("insert alerts: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.SensorReading{}, nil, err
	}

	readingsIngested.WithLabelValues(source).Inc()
	for _, a := range alerts {
		alertsTriggered.WithLabelValues(a.Severity).Inc()
	}

	if err := s.cache.SetLatest(ctx, device.DeviceID, reading); err != nil {
		s.log.Warn().Err(err).Str("device", device.DeviceID).Msg("cache latest reading")
	}

	s.publish(ctx, bus.SubjectReadingIngested, map[string]any{
		"reading_id": reading.ID,
		"device_id":  device.DeviceID,
		"factory_id": device.FactoryID,
		"timestamp":  reading.Timestamp,
		"source":     source,
	})
	for _, a := range alerts {
		s.publish(ctx, bus.SubjectAlertTriggered, map[string]any{
			"alert_id":   a.ID,
			"device_id":  device.DeviceID,
			"factory_id": a.FactoryID,
			"alert_type": a.AlertType,
			"severity":   a.Severity,
			"title":      a.Title,
			"message":    a.Message,
		})
	}

	return reading, alerts, nil
}

// BatchItemError reports a single failed item in a batch ingest.
type BatchItemError struct {
	DeviceID string `json:"device_id"`
	Error    string `json:"error"`
}

// BatchResult summarizes a batch ingest.
type BatchResult struct {
	Ingested int              `json:"ingested_count"`
	Total    int              `json:"total_readings"`
	Errors   []BatchItemError `json:"errors,omitempty"`
}

// IngestBatch runs the pipeline per item, collecting per-item errors instead
// of failing the whole batch. authorize gates each device before ingest.
func (s *Service) IngestBatch(ctx context.Context, items []Payload, authorize func(models.Device) error) BatchResult {
	result := BatchResult{Total: len(items)}

	for _, item := range items {
		device, err := s.DeviceByExternalID(ctx, item.DeviceID)
		if err != nil {
			result.Errors = append(result.Errors, BatchItemError{DeviceID: item.DeviceID, Error: err.Error()})
			continue
		}
		if authorize != nil {
			if err := authorize(device); err != nil {
				result.Errors = append(result.Errors, BatchItemError{DeviceID: item.DeviceID, Error: err.Error()})
				continue
			}
		}
		if _, _, err := s.IngestForDevice(ctx, device, item, SourceSimulator); err != nil {
			result.Errors = append(result.Errors, BatchItemError{DeviceID: item.DeviceID, Error: err.Error()})
			continue
		}
		result.Ingested++
	}

	return result
}

// GenerateSample inserts count realistic readings for a device at 5-minute
// spacing walking back from now. Furnace-named devices get furnace-range
// temperatures.
func (s *Service) GenerateSample(ctx context.Context, device models.Device, count int) (int, error) {
	if count <= 0 {
		count = 10
	}

	baseTemp := 45.0
	if strings.Contains(strings.ToLower(device.DeviceName), "furnace") {
		baseTemp = 850.0
	}

	now := time.Now().UTC()
	generated := 0
	for i := 0; i < count; i++ {
		ts := now.Add(-time.Duration(i) * 5 * time.Minute)
		p := Payload{
			DeviceID:         device.DeviceID,
			Timestamp:        &ts,
			Temperature:      ptr(baseTemp + rand.Float64()*40 - 20),
			GasIndex:         ptr(100 + rand.Float64()*400),
			VibrationX:       ptr(0.5 + rand.Float64()*3),
			VibrationY:       ptr(0.5 + rand.Float64()*3),
			VibrationZ:       ptr(0.5 + rand.Float64()*3),
			Humidity:         ptr(30 + rand.Float64()*40),
			Pressure:         ptr(990 + rand.Float64()*30),
			PowerConsumption: ptr(15 + rand.Float64()*30),
		}
		if _, _, err := s.IngestForDevice(ctx, device, p, SourceSimulator); err != nil {
			return generated, err
		}
		generated++
	}

	return generated, nil
}

func (s *Service) publish(ctx context.Context, subject string, payload map[string]any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}

func readingContext(r models.SensorReading) datatypes.JSONMap {
	ctx := datatypes.JSONMap{}
	put := func(key string, v *float64) {
		if v != nil {
			ctx[key] = *v
		}
	}
	put("temperature", r.Temperature)
	put("gas_index", r.GasIndex)
	put("vibration_x", r.VibrationX)
	put("vibration_y", r.VibrationY)
	put("vibration_z", r.VibrationZ)
	put("humidity", r.Humidity)
	put("pressure", r.Pressure)
	put("power_consumption", r.PowerConsumption)
	return ctx
}

func ptr(v float64) *float64 { return &v }
