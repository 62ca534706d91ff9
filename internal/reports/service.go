package reports

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carbonseed/internal/models"
	"carbonseed/internal/storage"
	"carbonseed/internal/timeseries"
)

// freshness is how long a generated report is served as-is before a new
// request recomputes it.
const freshness = time.Hour

// gridEmissionFactor converts metered energy to CO2 mass, in kg CO2 per kWh.
const gridEmissionFactor = 0.82

// Service generates factory reports and exports them as workbooks.
type Service struct {
	orm    *gorm.DB
	agg    *timeseries.Repo
	store  *storage.Client
	bucket string
	log    zerolog.Logger
}

func NewService(orm *gorm.DB, agg *timeseries.Repo, store *storage.Client, bucket string, log zerolog.Logger) *Service {
	return &Service{orm: orm, agg: agg, store: store, bucket: bucket, log: log}
}

// ErrUnknownType is returned for report types outside weekly, monthly, and
// compliance.
var ErrUnknownType = errors.New("reports: unknown report type")

// periodFor returns the covered window for a report type ending at now.
func periodFor(reportType string, now time.Time) (timeseries.Window, error) {
	now = now.UTC()
	switch reportType {
	case models.ReportWeekly:
		return timeseries.Window{Start: now.AddDate(0, 0, -7), End: now}, nil
	case models.ReportMonthly, models.ReportCompliance:
		return timeseries.Window{Start: now.AddDate(0, 0, -30), End: now}, nil
	default:
		return timeseries.Window{}, ErrUnknownType
	}
}

// Generate produces a report for the factory, reusing a recent one of the
// same type when available.
func (s *Service) Generate(ctx context.Context, factory models.Factory, reportType string, generatedBy *uuid.UUID) (models.Report, error) {
	window, err := periodFor(reportType, time.Now())
	if err != nil {
		return models.Report{}, err
	}

	var existing models.Report
	err = s.orm.WithContext(ctx).
		Where("factory_id = ? AND report_type = ? AND generated_at >= ?",
			factory.ID, reportType, time.Now().UTC().Add(-freshness)).
		Order("generated_at DESC").
		First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Report{}, err
	}

	agg, err := s.agg.FactoryAggregates(ctx, factory.ID, window)
	if err != nil {
		return models.Report{}, err
	}
	alerts, err := s.agg.FactoryAlertCounts(ctx, factory.ID, window)
	if err != nil {
		return models.Report{}, err
	}

	report := models.Report{
		FactoryID:   factory.ID,
		ReportType:  reportType,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		Summary:     buildSummary(reportType, agg, alerts),
		GeneratedBy: generatedBy,
	}
	if err := s.orm.WithContext(ctx).Create(&report).Error; err != nil {
		return models.Report{}, err
	}

	if err := s.exportWorkbook(ctx, &report, factory.Name); err != nil {
		// The report row stands on its own; the workbook can be rebuilt
		// on the next download.
		s.log.Warn().Err(err).Str("report_id", report.ID.String()).Msg("workbook export failed")
	}

	return report, nil
}

// DownloadURL returns a presigned link for a report's workbook, exporting it
// first if it has not been uploaded yet.
func (s *Service) DownloadURL(ctx context.Context, report *models.Report, factoryName string, ttl time.Duration) (string, error) {
	if report.FilePath == "" {
		if err := s.exportWorkbook(ctx, report, factoryName); err != nil {
			return "", err
		}
	}
	return s.store.PresignGet(ctx, s.bucket, report.FilePath, ttl)
}

func (s *Service) exportWorkbook(ctx context.Context, report *models.Report, factoryName string) error {
	data, err := Workbook(*report, factoryName)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("reports/%s/%s-%s.xlsx",
		report.FactoryID, report.ReportType, report.ID)
	const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if err := s.store.Put(ctx, s.bucket, key, data, xlsxContentType); err != nil {
		return err
	}

	report.FilePath = key
	return s.orm.WithContext(ctx).Model(report).Update("file_path", key).Error
}

// buildSummary computes the report body for the given type. Weekly and
// monthly reports share a shape; compliance adds regulatory sections.
func buildSummary(reportType string, agg timeseries.Aggregates, alerts timeseries.AlertCounts) datatypes.JSONMap {
	summary := datatypes.JSONMap{
		"readings":        agg.Readings,
		"avg_temperature": round1(agg.AvgTemperature),
		"max_temperature": round1(agg.MaxTemperature),
		"min_temperature": round1(agg.MinTemperature),
		"avg_gas_index":   round1(agg.AvgGasIndex),
		"avg_humidity":    round1(agg.AvgHumidity),
		"total_power_kwh": round1(agg.TotalPowerKWh),
		"alerts": map[string]any{
			"total":    alerts.Total,
			"critical": alerts.Critical,
			"warning":  alerts.Warning,
			"info":     alerts.Info,
			"resolved": alerts.Resolved,
		},
	}

	if reportType != models.ReportCompliance {
		return summary
	}

	gasLimit := 400.0
	powerLimit := 50.0
	var totalEnergy float64
	if agg.TotalPowerKWh != nil {
		totalEnergy = *agg.TotalPowerKWh
	}

	summary["spcb"] = map[string]any{
		"label":         "SPCB Gas Emission Compliance",
		"avg_gas_index": round1(agg.AvgGasIndex),
		"max_gas_index": round1(agg.MaxGasIndex),
		"limit":         gasLimit,
		"compliant":     agg.MaxGasIndex == nil || *agg.MaxGasIndex <= gasLimit,
	}
	summary["pat"] = map[string]any{
		"label":            "PAT Energy Efficiency",
		"total_energy_kwh": round1(agg.TotalPowerKWh),
		"power_limit_kw":   powerLimit,
	}
	summary["cbam"] = map[string]any{
		"label":           "CBAM Carbon Intensity",
		"emissions_kgco2": roundVal(totalEnergy * gridEmissionFactor),
		"emission_factor": gridEmissionFactor,
	}
	return summary
}

func round1(v *float64) any {
	if v == nil {
		return nil
	}
	return roundVal(*v)
}

func roundVal(v float64) float64 {
	return math.Round(v*100) / 100
}
