package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"carbonseed/internal/models"
	"carbonseed/internal/timeseries"
)

// factoryWithStats decorates a factory row with its listing rollups.
type factoryWithStats struct {
	models.Factory
	timeseries.FactoryStats
}

func mergeFactoryStats(factories []models.Factory, stats map[uuid.UUID]timeseries.FactoryStats) []factoryWithStats {
	merged := make([]factoryWithStats, len(factories))
	for i, f := range factories {
		merged[i] = factoryWithStats{Factory: f, FactoryStats: stats[f.ID]}
	}
	return merged
}

func (a *API) handleListFactories(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var factories []models.Factory
	query := orm.Order("name")
	if c.Role != models.RoleAdmin {
		if c.FactoryID == nil {
			respondError(w, http.StatusUnprocessableEntity, errNoFactory)
			return
		}
		query = query.Where("id = ?", *c.FactoryID)
	}
	if err := query.Find(&factories).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	ids := make([]uuid.UUID, len(factories))
	for i, f := range factories {
		ids[i] = f.ID
	}
	stats, err := a.agg.FactoryStatsByID(ctx, ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"factories": mergeFactoryStats(factories, stats),
		"total":     len(factories),
	})
}

func (a *API) handleCreateFactory(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}
	if c.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	var req struct {
		Name         string `json:"name"`
		Location     string `json:"location"`
		Industry     string `json:"industry"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, errors.New("name is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	factory := models.Factory{
		Name:         req.Name,
		Location:     req.Location,
		Industry:     req.Industry,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	}
	if err := a.store.ORM.WithContext(ctx).Create(&factory).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.log.Info().Str("factory", factory.Name).Msg("factory created")
	respondJSON(w, http.StatusCreated, map[string]any{"factory": factory})
}

// fetchFactory loads a factory by path param and enforces access.
func (a *API) fetchFactory(w http.ResponseWriter, r *http.Request) (models.Factory, bool) {
	c, ok := a.claims(w, r)
	if !ok {
		return models.Factory{}, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "factoryID"))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, errBadFactoryID)
		return models.Factory{}, false
	}
	if !canAccessFactory(c, id) {
		respondError(w, http.StatusForbidden, errForbidden)
		return models.Factory{}, false
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var factory models.Factory
	err = a.store.ORM.WithContext(ctx).First(&factory, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, errors.New("factory not found"))
		return models.Factory{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return models.Factory{}, false
	}
	return factory, true
}

func (a *API) handleGetFactory(w http.ResponseWriter, r *http.Request) {
	factory, ok := a.fetchFactory(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	stats, err := a.agg.FactoryStatsByID(ctx, []uuid.UUID{factory.ID})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	merged := mergeFactoryStats([]models.Factory{factory}, stats)
	respondJSON(w, http.StatusOK, map[string]any{"factory": merged[0]})
}

func (a *API) handleUpdateFactory(w http.ResponseWriter, r *http.Request) {
	c, _ := a.claims(w, r)
	if c == nil {
		return
	}
	if c.Role != models.RoleAdmin && c.Role != models.RoleFactoryOwner {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	factory, ok := a.fetchFactory(w, r)
	if !ok {
		return
	}

	var req struct {
		Name         *string `json:"name"`
		Location     *string `json:"location"`
		Industry     *string `json:"industry"`
		ContactEmail *string `json:"contact_email"`
		ContactPhone *string `json:"contact_phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		if *req.Name == "" {
			respondError(w, http.StatusUnprocessableEntity, errors.New("name must not be empty"))
			return
		}
		updates["name"] = *req.Name
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Industry != nil {
		updates["industry"] = *req.Industry
	}
	if req.ContactEmail != nil {
		updates["contact_email"] = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		updates["contact_phone"] = *req.ContactPhone
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	if err := orm.Model(&factory).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := orm.First(&factory, "id = ?", factory.ID).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"factory": factory})
}

func (a *API) handleDeleteFactory(w http.ResponseWriter, r *http.Request) {
	c, _ := a.claims(w, r)
	if c == nil {
		return
	}
	if c.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	factory, ok := a.fetchFactory(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	// Devices, readings, alerts, and reports cascade at the database level.
	if err := a.store.ORM.WithContext(ctx).Delete(&factory).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.log.Info().Str("factory", factory.Name).Msg("factory deleted")
	respondJSON(w, http.StatusOK, map[string]any{"deleted": factory.ID})
}

func (a *API) handleFactoryDashboard(w http.ResponseWriter, r *http.Request) {
	factory, ok := a.fetchFactory(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	metrics, err := a.agg.FactoryDashboard(ctx, factory.ID, a.config.HeartbeatWindow, time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	activity, err := a.agg.FactoryDeviceActivity(ctx, factory.ID, time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"factory": factory,
		"metrics": metrics,
		"devices": activity,
	})
}
