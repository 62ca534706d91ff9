package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

// Model copies are frozen here so later changes to internal/models never
// rewrite history.

type Factory struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"type:text;not null"`
	Location     string    `gorm:"type:text"`
	Industry     string    `gorm:"type:text"`
	ContactEmail string    `gorm:"type:text"`
	ContactPhone string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string     `gorm:"type:text;not null"`
	FullName     string     `gorm:"type:text;not null"`
	Role         string     `gorm:"type:text;not null;default:'viewer'"`
	IsActive     bool       `gorm:"not null;default:true"`
	FactoryID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Factory      *Factory   `gorm:"foreignKey:FactoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

type Device struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DeviceID        string     `gorm:"type:text;uniqueIndex;not null"`
	DeviceName      string     `gorm:"type:text;not null"`
	DeviceType      string     `gorm:"type:text;not null;default:'ESP32'"`
	FactoryID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	MachineName     string     `gorm:"type:text"`
	Location        string     `gorm:"type:text"`
	IsActive        bool       `gorm:"not null;default:true"`
	LastSeen        *time.Time `gorm:"type:timestamptz"`
	FirmwareVersion string     `gorm:"type:text"`
	APIKey          string     `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt       time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Factory         Factory    `gorm:"foreignKey:FactoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type SensorReading struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DeviceID         uuid.UUID `gorm:"type:uuid;not null;index:idx_readings_device_ts,priority:1"`
	Timestamp        time.Time `gorm:"type:timestamptz;not null;index:idx_readings_device_ts,priority:2"`
	Temperature      *float64
	GasIndex         *float64
	VibrationX       *float64
	VibrationY       *float64
	VibrationZ       *float64
	Humidity         *float64
	Pressure         *float64
	PowerConsumption *float64
	CreatedAt        time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Device           Device    `gorm:"foreignKey:DeviceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Alert struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DeviceID       uuid.UUID `gorm:"type:uuid;not null;index"`
	FactoryID      uuid.UUID `gorm:"type:uuid;not null;index"`
	AlertType      string    `gorm:"type:text;not null"`
	Severity       string    `gorm:"type:text;not null;default:'info'"`
	Status         string    `gorm:"type:text;not null;default:'active';index"`
	Title          string    `gorm:"type:text;not null"`
	Message        string    `gorm:"type:text;not null"`
	MetricValue    *float64
	ThresholdValue *float64
	Context        datatypes.JSONMap `gorm:"type:jsonb"`
	TriggeredAt    time.Time         `gorm:"type:timestamptz;not null;index"`
	AcknowledgedAt *time.Time        `gorm:"type:timestamptz"`
	AcknowledgedBy *uuid.UUID        `gorm:"type:uuid"`
	ResolvedAt     *time.Time        `gorm:"type:timestamptz"`
	CreatedAt      time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Device         Device            `gorm:"foreignKey:DeviceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Report struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FactoryID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	ReportType  string            `gorm:"type:text;not null"`
	PeriodStart time.Time         `gorm:"type:timestamptz;not null"`
	PeriodEnd   time.Time         `gorm:"type:timestamptz;not null"`
	Summary     datatypes.JSONMap `gorm:"type:jsonb"`
	FilePath    string            `gorm:"type:text"`
	GeneratedBy *uuid.UUID        `gorm:"type:uuid"`
	GeneratedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Factory     Factory           `gorm:"foreignKey:FactoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&Factory{},
		&User{},
		&Device{},
		&SensorReading{},
		&Alert{},
		&Report{},
	); err != nil {
		return err
	}

	m := gormDB.WithContext(ctx).Migrator()
	if err := m.CreateConstraint(&Device{}, "Factory"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&SensorReading{}, "Device"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&Alert{}, "Device"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&Report{}, "Factory"); err != nil {
		return err
	}

	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&Report{},
		&Alert{},
		&SensorReading{},
		&Device{},
		&User{},
		&Factory{},
	)
}
