package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonseed/internal/auth"
	"carbonseed/internal/ingest"
	"carbonseed/internal/models"
	"carbonseed/internal/timeseries"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	assert.Error(t, decodeJSON(r, &dest))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, decodeJSON(r, &dest))
	assert.Equal(t, "x", dest.Name)
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusUnprocessableEntity, ingest.ErrNoMetrics)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "no metric fields")
}

func TestIngestStatus(t *testing.T) {
	cases := map[error]int{
		ingest.ErrDeviceNotFound:  http.StatusNotFound,
		ingest.ErrBadAPIKey:       http.StatusUnauthorized,
		ingest.ErrDeviceInactive:  http.StatusUnprocessableEntity,
		ingest.ErrMissingDeviceID: http.StatusUnprocessableEntity,
		ingest.ErrNoMetrics:       http.StatusUnprocessableEntity,
		ingest.ErrFutureTimestamp: http.StatusUnprocessableEntity,
		errForbidden:              http.StatusForbidden,
		assert.AnError:            http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, ingestStatus(err), err.Error())
	}
}

func TestWriteExportCSV(t *testing.T) {
	temp := 845.2
	rows := []timeseries.ExportRow{
		{
			DeviceID:    "ESP32-001",
			Timestamp:   time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
			Temperature: &temp,
		},
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	require.NoError(t, writeExportCSV(gz, rows))
	require.NoError(t, gz.Close())

	gr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	records, err := csv.NewReader(gr).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "device_id", records[0][0])
	assert.Equal(t, "ESP32-001", records[1][0])
	assert.Equal(t, "2026-08-28T10:00:00Z", records[1][1])
	assert.Equal(t, "845.2", records[1][2])
	// Missing metrics stay empty rather than zero.
	assert.Equal(t, "", records[1][3])
}

func TestHandleIngestRejectsMalformedBody(t *testing.T) {
	a := &API{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	a.handleIngest(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing api key")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(`{not json`))
	req.Header.Set("X-API-Key", "key")
	rec = httptest.NewRecorder()
	a.handleIngest(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "unparseable payload")
}

func TestHandleGetAlertRejectsBadRequests(t *testing.T) {
	a := &API{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/abc", nil)
	rec := httptest.NewRecorder()
	a.handleGetAlert(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing claims")

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("alertID", "not-a-uuid")
	ctx := auth.WithClaims(context.Background(), &auth.Claims{UserID: uuid.New(), Role: models.RoleAdmin})
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts/not-a-uuid", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	a.handleGetAlert(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "malformed alert id")
}

func TestMergeFactoryStats(t *testing.T) {
	busy := models.Factory{ID: uuid.New(), Name: "Demo Steel Works"}
	idle := models.Factory{ID: uuid.New(), Name: "Idle Foundry"}
	stats := map[uuid.UUID]timeseries.FactoryStats{
		busy.ID: {FactoryID: busy.ID, DeviceCount: 3, UserCount: 2, ActiveAlerts: 1},
	}

	merged := mergeFactoryStats([]models.Factory{busy, idle}, stats)
	require.Len(t, merged, 2)
	assert.Equal(t, int64(3), merged[0].DeviceCount)
	assert.Equal(t, int64(1), merged[0].ActiveAlerts)
	// Factories without rows still report explicit zeros.
	assert.Equal(t, int64(0), merged[1].DeviceCount)

	data, err := json.Marshal(merged[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"Demo Steel Works"`)
	assert.Contains(t, string(data), `"device_count":3`)
	assert.Contains(t, string(data), `"user_count":2`)
	assert.Contains(t, string(data), `"active_alerts":1`)
}
