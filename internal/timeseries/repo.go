package timeseries

import (
	"context"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"carbonseed/internal/db"
	"carbonseed/internal/models"
)

// ErrNoData indicates the requested device has no readings in range.
var ErrNoData = errors.New("timeseries: no data")

// Repo answers aggregate questions over the readings and alerts tables. It
// runs raw SQL through the pgx pool rather than the ORM; every query here is
// a scan or group-by that GORM would only obscure.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Point is one bucketed aggregate row of a device timeseries.
type Point struct {
	Bucket           time.Time `json:"bucket"`
	Samples          int64     `json:"samples"`
	Temperature      *float64  `json:"temperature"`
	Humidity         *float64  `json:"humidity"`
	GasIndex         *float64  `json:"gas_index"`
	VibrationX       *float64  `json:"vibration_x"`
	VibrationY       *float64  `json:"vibration_y"`
	VibrationZ       *float64  `json:"vibration_z"`
	PowerConsumption *float64  `json:"power_consumption"`
	Pressure         *float64  `json:"pressure"`
}

// Series returns per-bucket averages for every metric of a device inside the
// window, oldest bucket first.
func (r *Repo) Series(ctx context.Context, deviceID uuid.UUID, w Window, bucket time.Duration) ([]Point, error) {
	const q = `
SELECT
    to_timestamp(floor(extract(epoch FROM timestamp) / $4) * $4) AS bucket,
    count(*)                AS samples,
    avg(temperature)        AS temperature,
    avg(humidity)           AS humidity,
    avg(gas_index)          AS gas_index,
    avg(vibration_x)        AS vibration_x,
    avg(vibration_y)        AS vibration_y,
    avg(vibration_z)        AS vibration_z,
    avg(power_consumption)  AS power_consumption,
    avg(pressure)           AS pressure
FROM sensor_readings
WHERE device_id = $1 AND timestamp >= $2 AND timestamp < $3
GROUP BY 1
ORDER BY 1`

	var points []Point
	if err := db.Select(ctx, r.pool, &points, q, deviceID, w.Start, w.End, bucket.Seconds()); err != nil {
		return nil, err
	}
	return points, nil
}

// LatestReading returns the most recent stored reading for a device. Used as
// the fallback when the cache has no entry.
func (r *Repo) LatestReading(ctx context.Context, deviceID uuid.UUID) (models.SensorReading, error) {
	const q = `
SELECT id, device_id, timestamp, temperature, gas_index,
       vibration_x, vibration_y, vibration_z, humidity, pressure, power_consumption,
       created_at
FROM sensor_readings
WHERE device_id = $1
ORDER BY timestamp DESC
LIMIT 1`

	var reading models.SensorReading
	err := db.Get(ctx, r.pool, &reading, q, deviceID)
	if pgxscan.NotFound(err) {
		return models.SensorReading{}, ErrNoData
	}
	return reading, err
}

// uptimeBuckets is the number of 5 minute reporting slots in 24 hours.
const uptimeBuckets = 288

// UptimePercent measures how many of the past day's 5 minute reporting slots
// contain at least one reading. A device posting on schedule scores 100.
func (r *Repo) UptimePercent(ctx context.Context, deviceID uuid.UUID, now time.Time) (float64, error) {
	const q = `
SELECT count(DISTINCT floor(extract(epoch FROM timestamp) / 300))
FROM sensor_readings
WHERE device_id = $1 AND timestamp >= $2`

	var slots int64
	if err := db.Get(ctx, r.pool, &slots, q, deviceID, now.UTC().Add(-24*time.Hour)); err != nil {
		return 0, err
	}
	pct := float64(slots) / uptimeBuckets * 100
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

// Aggregates are the factory-level rollups backing reports and dashboards.
type Aggregates struct {
	Readings       int64    `json:"readings"`
	AvgTemperature *float64 `json:"avg_temperature"`
	MaxTemperature *float64 `json:"max_temperature"`
	MinTemperature *float64 `json:"min_temperature"`
	AvgGasIndex    *float64 `json:"avg_gas_index"`
	MaxGasIndex    *float64 `json:"max_gas_index"`
	AvgVibration   *float64 `json:"avg_vibration"`
	TotalPowerKWh  *float64 `json:"total_power_kwh"`
	AvgHumidity    *float64 `json:"avg_humidity"`
}

// FactoryAggregates rolls up readings for every device of a factory inside
// the window.
func (r *Repo) FactoryAggregates(ctx context.Context, factoryID uuid.UUID, w Window) (Aggregates, error) {
	const q = `
SELECT
    count(*)                           AS readings,
    avg(sr.temperature)                AS avg_temperature,
    max(sr.temperature)                AS max_temperature,
    min(sr.temperature)                AS min_temperature,
    avg(sr.gas_index)                  AS avg_gas_index,
    max(sr.gas_index)                  AS max_gas_index,
    avg(greatest(abs(coalesce(sr.vibration_x, 0)),
                 abs(coalesce(sr.vibration_y, 0)),
                 abs(coalesce(sr.vibration_z, 0)))) AS avg_vibration,
    sum(sr.power_consumption)          AS total_power_kwh,
    avg(sr.humidity)                   AS avg_humidity
FROM sensor_readings sr
JOIN devices d ON d.id = sr.device_id
WHERE d.factory_id = $1 AND sr.timestamp >= $2 AND sr.timestamp < $3`

	var agg Aggregates
	err := db.Get(ctx, r.pool, &agg, q, factoryID, w.Start, w.End)
	return agg, err
}

// DeviceAggregates rolls up readings for a single device inside the window.
func (r *Repo) DeviceAggregates(ctx context.Context, deviceID uuid.UUID, w Window) (Aggregates, error) {
	const q = `
SELECT
    count(*)                           AS readings,
    avg(temperature)                   AS avg_temperature,
    max(temperature)                   AS max_temperature,
    min(temperature)                   AS min_temperature,
    avg(gas_index)                     AS avg_gas_index,
    max(gas_index)                     AS max_gas_index,
    avg(greatest(abs(coalesce(vibration_x, 0)),
                 abs(coalesce(vibration_y, 0)),
                 abs(coalesce(vibration_z, 0)))) AS avg_vibration,
    sum(power_consumption)             AS total_power_kwh,
    avg(humidity)                      AS avg_humidity
FROM sensor_readings
WHERE device_id = $1 AND timestamp >= $2 AND timestamp < $3`

	var agg Aggregates
	err := db.Get(ctx, r.pool, &agg, q, deviceID, w.Start, w.End)
	return agg, err
}

// FactoryStats are the per-factory rollups decorating factory listings.
type FactoryStats struct {
	FactoryID    uuid.UUID `json:"-"`
	DeviceCount  int64     `json:"device_count"`
	UserCount    int64     `json:"user_count"`
	ActiveAlerts int64     `json:"active_alerts"`
}

// FactoryStatsByID counts devices, users, and active alerts for each of the
// given factories.
func (r *Repo) FactoryStatsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]FactoryStats, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]FactoryStats{}, nil
	}

	const q = `
SELECT f.id AS factory_id,
       (SELECT count(*) FROM devices d WHERE d.factory_id = f.id) AS device_count,
       (SELECT count(*) FROM users u WHERE u.factory_id = f.id)   AS user_count,
       (SELECT count(*) FROM alerts a
         WHERE a.factory_id = f.id AND a.status = 'active')       AS active_alerts
FROM factories f
WHERE f.id = ANY($1)`

	var rows []FactoryStats
	if err := db.Select(ctx, r.pool, &rows, q, ids); err != nil {
		return nil, err
	}

	stats := make(map[uuid.UUID]FactoryStats, len(rows))
	for _, row := range rows {
		stats[row.FactoryID] = row
	}
	return stats, nil
}

// AlertCounts breaks down a factory's alerts by severity and status.
type AlertCounts struct {
	Total        int64 `json:"total"`
	Critical     int64 `json:"critical"`
	Warning      int64 `json:"warning"`
	Info         int64 `json:"info"`
	Active       int64 `json:"active"`
	Acknowledged int64 `json:"acknowledged"`
	Resolved     int64 `json:"resolved"`
}

func (r *Repo) FactoryAlertCounts(ctx context.Context, factoryID uuid.UUID, w Window) (AlertCounts, error) {
	const q = `
SELECT
    count(*)                                            AS total,
    count(*) FILTER (WHERE a.severity = 'critical')     AS critical,
    count(*) FILTER (WHERE a.severity = 'warning')      AS warning,
    count(*) FILTER (WHERE a.severity = 'info')         AS info,
    count(*) FILTER (WHERE a.status = 'active')         AS active,
    count(*) FILTER (WHERE a.status = 'acknowledged')   AS acknowledged,
    count(*) FILTER (WHERE a.status = 'resolved')       AS resolved
FROM alerts a
JOIN devices d ON d.id = a.device_id
WHERE d.factory_id = $1 AND a.created_at >= $2 AND a.created_at < $3`

	var counts AlertCounts
	err := db.Get(ctx, r.pool, &counts, q, factoryID, w.Start, w.End)
	return counts, err
}

// DeviceStatusRow describes a device's recent activity for the fleet view.
type DeviceStatusRow struct {
	DeviceID    uuid.UUID  `json:"device_id"`
	LastReading *time.Time `json:"last_reading"`
	Readings24h int64      `json:"readings_24h"`
}

// FactoryDeviceActivity returns per-device reading recency for a factory.
func (r *Repo) FactoryDeviceActivity(ctx context.Context, factoryID uuid.UUID, now time.Time) ([]DeviceStatusRow, error) {
	const q = `
SELECT d.id AS device_id,
       max(sr.timestamp) AS last_reading,
       count(sr.id) FILTER (WHERE sr.timestamp >= $2) AS readings_24h
FROM devices d
LEFT JOIN sensor_readings sr ON sr.device_id = d.id
WHERE d.factory_id = $1
GROUP BY d.id`

	var rows []DeviceStatusRow
	err := db.Select(ctx, r.pool, &rows, q, factoryID, now.UTC().Add(-24*time.Hour))
	return rows, err
}

// DashboardMetrics is the factory dashboard summary payload.
type DashboardMetrics struct {
	Devices        int64    `json:"devices"`
	OnlineDevices  int64    `json:"online_devices"`
	Readings24h    int64    `json:"readings_24h"`
	ActiveAlerts   int64    `json:"active_alerts"`
	AvgTemperature *float64 `json:"avg_temperature"`
	HealthScore    float64  `json:"health_score"`
}

// FactoryDashboard computes the headline numbers for a factory over the past
// 24 hours. A device counts as online when it reported inside the heartbeat
// window. The health score takes the mean of the per-axis vibration averages.
func (r *Repo) FactoryDashboard(ctx context.Context, factoryID uuid.UUID, heartbeat time.Duration, now time.Time) (DashboardMetrics, error) {
	now = now.UTC()
	dayAgo := now.Add(-24 * time.Hour)

	const q = `
SELECT
    (SELECT count(*) FROM devices WHERE factory_id = $1)                       AS devices,
    (SELECT count(*) FROM devices WHERE factory_id = $1 AND last_seen >= $3)   AS online_devices,
    (SELECT count(*)
       FROM sensor_readings sr JOIN devices d ON d.id = sr.device_id
      WHERE d.factory_id = $1 AND sr.timestamp >= $2)                          AS readings_24h,
    (SELECT count(*)
       FROM alerts a JOIN devices d ON d.id = a.device_id
      WHERE d.factory_id = $1 AND a.status = 'active')                         AS active_alerts,
    (SELECT avg(sr.temperature)
       FROM sensor_readings sr JOIN devices d ON d.id = sr.device_id
      WHERE d.factory_id = $1 AND sr.timestamp >= $2)                          AS avg_temperature,
    (SELECT (avg(coalesce(sr.vibration_x, 0)) +
             avg(coalesce(sr.vibration_y, 0)) +
             avg(coalesce(sr.vibration_z, 0))) / 3
       FROM sensor_readings sr JOIN devices d ON d.id = sr.device_id
      WHERE d.factory_id = $1 AND sr.timestamp >= $2)                          AS avg_vibration`

	var row struct {
		Devices        int64
		OnlineDevices  int64
		Readings24h    int64
		ActiveAlerts   int64
		AvgTemperature *float64
		AvgVibration   *float64
	}
	if err := db.Get(ctx, r.pool, &row, q, factoryID, dayAgo, now.Add(-heartbeat)); err != nil {
		return DashboardMetrics{}, err
	}

	health := 100.0
	if row.AvgVibration != nil {
		health = VibrationHealthScore(*row.AvgVibration)
	}

	return DashboardMetrics{
		Devices:        row.Devices,
		OnlineDevices:  row.OnlineDevices,
		Readings24h:    row.Readings24h,
		ActiveAlerts:   row.ActiveAlerts,
		AvgTemperature: row.AvgTemperature,
		HealthScore:    health,
	}, nil
}

// ExportRow is one CSV export line of raw readings.
type ExportRow struct {
	DeviceID         string    `json:"device_id"`
	Timestamp        time.Time `json:"timestamp"`
	Temperature      *float64  `json:"temperature"`
	Humidity         *float64  `json:"humidity"`
	GasIndex         *float64  `json:"gas_index"`
	VibrationX       *float64  `json:"vibration_x"`
	VibrationY       *float64  `json:"vibration_y"`
	VibrationZ       *float64  `json:"vibration_z"`
	PowerConsumption *float64  `json:"power_consumption"`
	Pressure         *float64  `json:"pressure"`
}

// Export streams raw readings for a factory in the window limited to limit
// rows, newest first.
func (r *Repo) Export(ctx context.Context, factoryID uuid.UUID, w Window, limit int) ([]ExportRow, error) {
	const q = `
SELECT d.device_id AS device_id, sr.timestamp, sr.temperature, sr.humidity,
       sr.gas_index, sr.vibration_x, sr.vibration_y, sr.vibration_z,
       sr.pressure, sr.power_consumption
FROM sensor_readings sr
JOIN devices d ON d.id = sr.device_id
WHERE d.factory_id = $1 AND sr.timestamp >= $2 AND sr.timestamp < $3
ORDER BY sr.timestamp DESC
LIMIT $4`

	var rows []ExportRow
	err := db.Select(ctx, r.pool, &rows, q, factoryID, w.Start, w.End, limit)
	return rows, err
}
