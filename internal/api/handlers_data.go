package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"carbonseed/internal/cache"
	"carbonseed/internal/timeseries"
)

func (a *API) handleLatestData(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		respondError(w, http.StatusUnprocessableEntity, errors.New("device_id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	device, err := a.deviceForClaims(ctx, c, deviceID)
	if err != nil {
		respondError(w, ingestStatus(err), err)
		return
	}

	cached := true
	reading, err := a.store.Cache.GetLatest(ctx, device.DeviceID)
	if errors.Is(err, cache.ErrMiss) {
		cached = false
		reading, err = a.agg.LatestReading(ctx, device.ID)
	}
	if errors.Is(err, timeseries.ErrNoData) {
		respondError(w, http.StatusNotFound, errors.New("no readings for device"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"device_id": device.DeviceID,
		"reading":   reading,
		"cached":    cached,
	})
}

func (a *API) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	deviceID := q.Get("device_id")
	if deviceID == "" {
		respondError(w, http.StatusUnprocessableEntity, errors.New("device_id is required"))
		return
	}

	window, err := timeseries.ParseWindow(q.Get("period"), time.Now())
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	bucket, err := timeseries.ParseBucket(q.Get("bucket"))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	device, err := a.deviceForClaims(ctx, c, deviceID)
	if err != nil {
		respondError(w, ingestStatus(err), err)
		return
	}

	points, err := a.agg.Series(ctx, device.ID, window, bucket)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"device_id": device.DeviceID,
		"period": map[string]any{
			"start":  window.Start,
			"end":    window.End,
			"bucket": bucket.String(),
		},
		"points": points,
	})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	factoryID, err := scopeFactory(c, q.Get("factory_id"))
	if err != nil {
		respondError(w, scopeStatus(err), err)
		return
	}

	window, err := timeseries.ParseWindow(q.Get("period"), time.Now())
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	// Export reads can exceed the standard query timeout.
	rows, err := a.agg.Export(r.Context(), factoryID, window, exportRowLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	filename := fmt.Sprintf("readings-%s.csv.gz", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)

	gz := gzip.NewWriter(w)
	defer gz.Close()

	if err := writeExportCSV(gz, rows); err != nil {
		a.log.Error().Err(err).Msg("csv export failed mid-stream")
	}
}

func writeExportCSV(w *gzip.Writer, rows []timeseries.ExportRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"device_id", "timestamp", "temperature", "gas_index",
		"vibration_x", "vibration_y", "vibration_z",
		"humidity", "pressure", "power_consumption",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.DeviceID,
			row.Timestamp.UTC().Format(time.RFC3339),
			csvFloat(row.Temperature),
			csvFloat(row.GasIndex),
			csvFloat(row.VibrationX),
			csvFloat(row.VibrationY),
			csvFloat(row.VibrationZ),
			csvFloat(row.Humidity),
			csvFloat(row.Pressure),
			csvFloat(row.PowerConsumption),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// scopeStatus maps factory scoping errors onto HTTP status codes.
func scopeStatus(err error) int {
	switch {
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, errNoFactory), errors.Is(err, errBadFactoryID):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusUnprocessableEntity
	}
}
