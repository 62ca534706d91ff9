package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"carbonseed/internal/models"
	"carbonseed/internal/storage"
)

func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
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

	var list []models.Report
	if err := a.store.ORM.WithContext(ctx).
		Where("factory_id = ?", factoryID).
		Order("generated_at DESC").
		Limit(50).
		Find(&list).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"reports": list,
		"total":   len(list),
	})
}

func (a *API) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}
	if c.Role == models.RoleViewer {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	reportType := chi.URLParam(r, "reportType")
	if !models.ValidReportType(reportType) {
		respondError(w, http.StatusUnprocessableEntity, errors.New("unknown report type"))
		return
	}

	var req struct {
		FactoryID string `json:"factory_id"`
	}
	// GET takes factory_id from the query; POST may carry it in the body.
	// Neither means "my own factory".
	req.FactoryID = r.URL.Query().Get("factory_id")
	if r.Method == http.MethodPost && r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
	}

	factoryID, err := scopeFactory(c, req.FactoryID)
	if err != nil {
		respondError(w, scopeStatus(err), err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var factory models.Factory
	err = a.store.ORM.WithContext(ctx).First(&factory, "id = ?", factoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, errors.New("factory not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	userID := c.UserID
	report, err := a.reports.Generate(r.Context(), factory, reportType, &userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.log.Info().
		Str("factory", factory.Name).
		Str("type", reportType).
		Msg("report generated")
	respondJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (a *API) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	reportID, err := uuid.Parse(chi.URLParam(r, "reportID"))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, errors.New("invalid report id"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var report models.Report
	err = orm.First(&report, "id = ?", reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, errors.New("report not found"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !canAccessFactory(c, report.FactoryID) {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	var factory models.Factory
	if err := orm.First(&factory, "id = ?", report.FactoryID).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	url, err := a.reports.DownloadURL(r.Context(), &report, factory.Name, presignURLExpiry)
	if errors.Is(err, storage.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, errors.New("report storage is not configured"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"report_id":    report.ID,
		"download_url": url,
		"expires_in":   presignURLExpiry.String(),
	})
}
