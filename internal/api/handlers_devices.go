package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carbonseed/internal/models"
)

func (a *API) handleListDevices(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	factoryID, err := scopeFactory(c, r.URL.Query().Get("factory_id"))
	if err != nil {
		respondError(w, scopeStatus(err), err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var devices []models.Device
	if err := a.store.ORM.WithContext(ctx).
		Where("factory_id = ?", factoryID).
		Order("device_id").
		Find(&devices).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	heartbeat := time.Now().UTC().Add(-a.config.HeartbeatWindow)
	online := 0
	for _, d := range devices {
		if d.LastSeen != nil && d.LastSeen.After(heartbeat) {
			online++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"total":   len(devices),
		"online":  online,
	})
}

func (a *API) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}
	if !models.CanManageDevices(c.Role) {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	var req struct {
		DeviceID        string     `json:"device_id"`
		DeviceName      string     `json:"device_name"`
		DeviceType      string     `json:"device_type"`
		FactoryID       *uuid.UUID `json:"factory_id"`
		MachineName     string     `json:"machine_name"`
		Location        string     `json:"location"`
		FirmwareVersion string     `json:"firmware_version"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	switch {
	case req.DeviceID == "":
		respondError(w, http.StatusUnprocessableEntity, errors.New("device_id is required"))
		return
	case req.DeviceName == "":
		respondError(w, http.StatusUnprocessableEntity, errors.New("device_name is required"))
		return
	}

	factoryID := req.FactoryID
	if c.Role != models.RoleAdmin {
		// Owners register devices into their own factory only.
		factoryID = c.FactoryID
	}
	if factoryID == nil {
		respondError(w, http.StatusUnprocessableEntity, errors.New("factory_id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var count int64
	if err := orm.Model(&models.Device{}).Where("device_id = ?", req.DeviceID).Count(&count).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if count > 0 {
		respondError(w, http.StatusConflict, errors.New("device_id already registered"))
		return
	}

	deviceType := req.DeviceType
	if deviceType == "" {
		deviceType = "ESP32"
	}

	device := models.Device{
		DeviceID:        req.DeviceID,
		DeviceName:      req.DeviceName,
		DeviceType:      deviceType,
		FactoryID:       *factoryID,
		MachineName:     req.MachineName,
		Location:        req.Location,
		IsActive:        true,
		FirmwareVersion: req.FirmwareVersion,
		APIKey:          uuid.NewString(),
	}
	if err := orm.Create(&device).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.log.Info().Str("device", device.DeviceID).Str("factory", factoryID.String()).Msg("device registered")

	// The key is shown exactly once, at registration.
	respondJSON(w, http.StatusCreated, map[string]any{
		"device":  device,
		"api_key": device.APIKey,
	})
}

func (a *API) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	device, err := a.deviceForClaims(ctx, c, chi.URLParam(r, "deviceID"))
	if err != nil {
		respondError(w, ingestStatus(err), err)
		return
	}

	now := time.Now().UTC()
	uptime, err := a.agg.UptimePercent(ctx, device.ID, now)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	online := device.LastSeen != nil && device.LastSeen.After(now.Add(-a.config.HeartbeatWindow))

	respondJSON(w, http.StatusOK, map[string]any{
		"device_id":      device.DeviceID,
		"device_name":    device.DeviceName,
		"is_active":      device.IsActive,
		"online":         online,
		"last_seen":      device.LastSeen,
		"uptime_percent": uptime,
	})
}
