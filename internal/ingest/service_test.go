package ingest

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carbonseed/internal/alerting"
	"carbonseed/internal/models"
)

// newMockService backs the pipeline with a sqlmock connection so tests can
// assert exactly which rows a reading writes.
func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, PreferSimpleProtocol: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	svc, err := NewService(orm, alerting.NewEngine(alerting.DefaultRules()), nil, nil, zerolog.Nop())
	require.NoError(t, err)
	return svc, mock
}

func testDevice() models.Device {
	return models.Device{
		ID:        uuid.New(),
		DeviceID:  "ESP32-001",
		FactoryID: uuid.New(),
		APIKey:    "key",
		IsActive:  true,
	}
}

func TestIngestForDevicePersistsOneReadingAndOneAlertPerBreach(t *testing.T) {
	svc, mock := newMockService(t)
	device := testDevice()

	// 950 breaches the 900 warning threshold but stays below critical.
	temp := 950.0
	payload := Payload{DeviceID: device.DeviceID, Temperature: &temp}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "sensor_readings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectExec(`UPDATE "devices" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "alerts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	reading, alerts, err := svc.IngestForDevice(context.Background(), device, payload, SourceHTTP)
	require.NoError(t, err)

	assert.Equal(t, device.ID, reading.DeviceID)
	require.Len(t, alerts, 1)
	assert.Equal(t, alerting.TypeTemperatureHigh, alerts[0].AlertType)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, models.AlertStatusActive, alerts[0].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestForDeviceHealthyReadingWritesNoAlertRows(t *testing.T) {
	svc, mock := newMockService(t)
	device := testDevice()

	temp := 500.0
	payload := Payload{DeviceID: device.DeviceID, Temperature: &temp}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "sensor_readings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectExec(`UPDATE "devices" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, alerts, err := svc.IngestForDevice(context.Background(), device, payload, SourceHTTP)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestForDeviceInactiveDeviceTouchesNoTables(t *testing.T) {
	svc, mock := newMockService(t)
	device := testDevice()
	device.IsActive = false

	temp := 500.0
	payload := Payload{DeviceID: device.DeviceID, Temperature: &temp}

	_, _, err := svc.IngestForDevice(context.Background(), device, payload, SourceMQTT)
	require.ErrorIs(t, err, ErrDeviceInactive)

	require.NoError(t, mock.ExpectationsWereMet())
}
