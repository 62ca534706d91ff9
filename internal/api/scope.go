package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"carbonseed/internal/auth"
	"carbonseed/internal/models"
)

var (
	errForbidden     = errors.New("insufficient permissions")
	errNoFactory     = errors.New("account is not assigned to a factory")
	errBadFactoryID  = errors.New("invalid factory id")
	errMissingClaims = errors.New("missing authentication")
)

// claims pulls the authenticated claims off the request, writing a 401 when
// the auth middleware did not run.
func (a *API) claims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	c, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingClaims)
		return nil, false
	}
	return c, true
}

// scopeFactory resolves which factory a request may read. Admins may name
// any factory via the query parameter; everyone else is pinned to their own.
func scopeFactory(c *auth.Claims, requested string) (uuid.UUID, error) {
	if c.Role == models.RoleAdmin {
		if requested == "" {
			if c.FactoryID != nil {
				return *c.FactoryID, nil
			}
			return uuid.Nil, errors.New("factory_id is required")
		}
		id, err := uuid.Parse(requested)
		if err != nil {
			return uuid.Nil, errBadFactoryID
		}
		return id, nil
	}

	if c.FactoryID == nil {
		return uuid.Nil, errNoFactory
	}
	if requested != "" {
		id, err := uuid.Parse(requested)
		if err != nil {
			return uuid.Nil, errBadFactoryID
		}
		if id != *c.FactoryID {
			return uuid.Nil, errForbidden
		}
	}
	return *c.FactoryID, nil
}

// canAccessFactory reports whether the claims may touch the named factory.
func canAccessFactory(c *auth.Claims, factoryID uuid.UUID) bool {
	if c.Role == models.RoleAdmin {
		return true
	}
	return c.FactoryID != nil && *c.FactoryID == factoryID
}

// deviceForClaims loads a device by external id and checks factory access.
func (a *API) deviceForClaims(ctx context.Context, c *auth.Claims, externalID string) (models.Device, error) {
	device, err := a.ingest.DeviceByExternalID(ctx, externalID)
	if err != nil {
		return models.Device{}, err
	}
	if !canAccessFactory(c, device.FactoryID) {
		return models.Device{}, errForbidden
	}
	return device, nil
}
