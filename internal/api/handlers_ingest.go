package api

import (
	"errors"
	"net/http"

	"carbonseed/internal/ingest"
	"carbonseed/internal/models"
)

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		respondError(w, http.StatusUnauthorized, errors.New("X-API-Key header is required"))
		return
	}

	// Firmware payload problems, including unparseable bodies, all report 422.
	var payload ingest.Payload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	reading, alerts, err := a.ingest.Ingest(ctx, payload, apiKey, ingest.SourceHTTP)
	if err != nil {
		respondError(w, ingestStatus(err), err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"reading":          reading,
		"alerts_triggered": len(alerts),
	})
}

func (a *API) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}
	if !models.CanManageDevices(c.Role) {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	var req struct {
		Readings []ingest.Payload `json:"readings"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Readings) == 0 {
		respondError(w, http.StatusUnprocessableEntity, errors.New("readings must not be empty"))
		return
	}

	// Batches bypass the per-call timeout; large simulator runs take a while.
	result := a.ingest.IngestBatch(r.Context(), req.Readings, func(device models.Device) error {
		if !canAccessFactory(c, device.FactoryID) {
			return errForbidden
		}
		return nil
	})

	respondJSON(w, http.StatusOK, result)
}

func (a *API) handleSimulatorSample(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}
	if !models.CanManageDevices(c.Role) {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	var req struct {
		DeviceID string `json:"device_id"`
		Count    int    `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.DeviceID == "" {
		respondError(w, http.StatusUnprocessableEntity, errors.New("device_id is required"))
		return
	}
	if req.Count > 500 {
		respondError(w, http.StatusUnprocessableEntity, errors.New("count must be 500 or fewer"))
		return
	}

	device, err := a.deviceForClaims(r.Context(), c, req.DeviceID)
	if err != nil {
		respondError(w, ingestStatus(err), err)
		return
	}

	generated, err := a.ingest.GenerateSample(r.Context(), device, req.Count)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"device_id": device.DeviceID,
		"generated": generated,
	})
}

// ingestStatus maps pipeline errors onto HTTP status codes.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, ingest.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrBadAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, ingest.ErrDeviceInactive),
		errors.Is(err, ingest.ErrMissingDeviceID),
		errors.Is(err, ingest.ErrNoMetrics),
		errors.Is(err, ingest.ErrFutureTimestamp):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
