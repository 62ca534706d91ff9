package api

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonseed/internal/auth"
	"carbonseed/internal/models"
)

func TestScopeFactoryAdmin(t *testing.T) {
	target := uuid.New()
	c := &auth.Claims{Role: models.RoleAdmin}

	id, err := scopeFactory(c, target.String())
	require.NoError(t, err)
	assert.Equal(t, target, id)

	// Admin without an assignment must name a factory.
	_, err = scopeFactory(c, "")
	assert.Error(t, err)

	own := uuid.New()
	c.FactoryID = &own
	id, err = scopeFactory(c, "")
	require.NoError(t, err)
	assert.Equal(t, own, id)
}

func TestScopeFactoryNonAdmin(t *testing.T) {
	own := uuid.New()
	other := uuid.New()
	c := &auth.Claims{Role: models.RoleOperator, FactoryID: &own}

	id, err := scopeFactory(c, "")
	require.NoError(t, err)
	assert.Equal(t, own, id)

	id, err = scopeFactory(c, own.String())
	require.NoError(t, err)
	assert.Equal(t, own, id)

	_, err = scopeFactory(c, other.String())
	assert.ErrorIs(t, err, errForbidden)

	_, err = scopeFactory(c, "not-a-uuid")
	assert.ErrorIs(t, err, errBadFactoryID)

	unassigned := &auth.Claims{Role: models.RoleViewer}
	_, err = scopeFactory(unassigned, "")
	assert.ErrorIs(t, err, errNoFactory)
}

func TestCanAccessFactory(t *testing.T) {
	own := uuid.New()
	other := uuid.New()

	assert.True(t, canAccessFactory(&auth.Claims{Role: models.RoleAdmin}, other))
	assert.True(t, canAccessFactory(&auth.Claims{Role: models.RoleViewer, FactoryID: &own}, own))
	assert.False(t, canAccessFactory(&auth.Claims{Role: models.RoleViewer, FactoryID: &own}, other))
	assert.False(t, canAccessFactory(&auth.Claims{Role: models.RoleViewer}, own))
}
