package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"carbonseed/internal/models"
	"carbonseed/internal/timeseries"
)

func f64(v float64) *float64 { return &v }

func TestPeriodFor(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	w, err := periodFor(models.ReportWeekly, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), w.Start)

	w, err = periodFor(models.ReportCompliance, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -30), w.Start)

	_, err = periodFor("daily", now)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestBuildSummaryWeekly(t *testing.T) {
	agg := timeseries.Aggregates{
		Readings:       2016,
		AvgTemperature: f64(851.237),
		MaxTemperature: f64(912.5),
		MinTemperature: f64(799.1),
		AvgGasIndex:    f64(213.4),
		TotalPowerKWh:  f64(1204.88),
	}
	alerts := timeseries.AlertCounts{Total: 12, Critical: 2, Warning: 7, Info: 3, Resolved: 9}

	summary := buildSummary(models.ReportWeekly, agg, alerts)

	assert.Equal(t, int64(2016), summary["readings"])
	assert.Equal(t, 851.24, summary["avg_temperature"])
	assert.Equal(t, 912.5, summary["max_temperature"])
	assert.Nil(t, summary["avg_humidity"])
	assert.NotContains(t, summary, "spcb")

	alertBlock := summary["alerts"].(map[string]any)
	assert.Equal(t, int64(2), alertBlock["critical"])
}

func TestBuildSummaryCompliance(t *testing.T) {
	agg := timeseries.Aggregates{
		Readings:      8640,
		AvgGasIndex:   f64(180),
		MaxGasIndex:   f64(420),
		TotalPowerKWh: f64(1000),
	}

	summary := buildSummary(models.ReportCompliance, agg, timeseries.AlertCounts{})

	spcb := summary["spcb"].(map[string]any)
	assert.Equal(t, false, spcb["compliant"])
	assert.Equal(t, 420.0, spcb["max_gas_index"])

	cbam := summary["cbam"].(map[string]any)
	assert.Equal(t, 820.0, cbam["emissions_kgco2"])
}

func TestWorkbook(t *testing.T) {
	agg := timeseries.Aggregates{
		Readings:      100,
		AvgGasIndex:   f64(150),
		MaxGasIndex:   f64(390),
		TotalPowerKWh: f64(50),
	}

	report := models.Report{
		ReportType:  models.ReportCompliance,
		PeriodStart: time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Summary:     buildSummary(models.ReportCompliance, agg, timeseries.AlertCounts{}),
	}

	data, err := Workbook(report, "Demo Steel Works")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(summarySheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Demo Steel Works compliance report", title)

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)

	var labels []string
	for _, row := range rows {
		if len(row) > 0 {
			labels = append(labels, row[0])
		}
	}
	assert.Contains(t, labels, "SPCB Gas Emission Compliance")
	assert.Contains(t, labels, "CBAM Carbon Intensity")
	assert.Contains(t, labels, "readings")
}
