package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"carbonseed/internal/models"
	"carbonseed/internal/timeseries"
)

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
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

	if s := q.Get("severity"); s != "" && !models.ValidSeverity(s) {
		respondError(w, http.StatusUnprocessableEntity, errors.New("unknown severity"))
		return
	}
	if s := q.Get("status"); s != "" && !models.ValidAlertStatus(s) {
		respondError(w, http.StatusUnprocessableEntity, errors.New("unknown status"))
		return
	}

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondError(w, http.StatusUnprocessableEntity, errors.New("limit must be between 1 and 1000"))
			return
		}
		limit = parsed
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	query := a.store.ORM.WithContext(ctx).
		Where("factory_id = ?", factoryID).
		Order("triggered_at DESC").
		Limit(limit)
	if s := q.Get("severity"); s != "" {
		query = query.Where("severity = ?", s)
	}
	if s := q.Get("status"); s != "" {
		query = query.Where("status = ?", s)
	}
	if external := q.Get("device_id"); external != "" {
		device, err := a.ingest.DeviceByExternalID(ctx, external)
		if err != nil {
			respondError(w, ingestStatus(err), err)
			return
		}
		query = query.Where("device_id = ?", device.ID)
	}

	var alerts []models.Alert
	if err := query.Find(&alerts).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

func (a *API) handleAlertSummary(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	counts, err := a.agg.FactoryAlertCounts(ctx, factoryID, window)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"factory_id": factoryID,
		"period": map[string]any{
			"start": window.Start,
			"end":   window.End,
		},
		"summary": counts,
	})
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, errors.New("invalid alert id"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var alert models.Alert
	err = a.store.ORM.WithContext(ctx).First(&alert, "id = ?", alertID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, errors.New("alert not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !canAccessFactory(c, alert.FactoryID) {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (a *API) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	a.transitionAlert(w, r, models.AlertStatusAcknowledged)
}

func (a *API) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	a.transitionAlert(w, r, models.AlertStatusResolved)
}

// transitionAlert moves an alert forward through its lifecycle. Acknowledge
// only applies to active alerts; resolve applies to anything unresolved.
func (a *API) transitionAlert(w http.ResponseWriter, r *http.Request, target string) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}
	if c.Role == models.RoleViewer {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, errors.New("invalid alert id"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var alert models.Alert
	err = orm.First(&alert, "id = ?", alertID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, errors.New("alert not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !canAccessFactory(c, alert.FactoryID) {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	now := time.Now().UTC()
	updates := map[string]any{"status": target}
	switch target {
	case models.AlertStatusAcknowledged:
		if alert.Status != models.AlertStatusActive {
			respondError(w, http.StatusConflict, errors.New("only active alerts can be acknowledged"))
			return
		}
		updates["acknowledged_at"] = now
		updates["acknowledged_by"] = c.UserID
	case models.AlertStatusResolved:
		if alert.Status == models.AlertStatusResolved {
			respondError(w, http.StatusConflict, errors.New("alert is already resolved"))
			return
		}
		updates["resolved_at"] = now
	}

	if err := orm.Model(&alert).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := orm.First(&alert, "id = ?", alert.ID).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.log.Info().
		Str("alert", alert.ID.String()).
		Str("status", target).
		Str("user", c.UserID.String()).
		Msg("alert status changed")
	respondJSON(w, http.StatusOK, map[string]any{"alert": alert})
}
