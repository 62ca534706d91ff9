package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonseed/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokens("test-key", time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	factoryID := uuid.New()

	signed, err := tokens.Issue(userID, models.RoleOperator, &factoryID)
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, models.RoleOperator, claims.Role)
	require.NotNil(t, claims.FactoryID)
	assert.Equal(t, factoryID, *claims.FactoryID)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	issuer, err := NewTokens("key-one", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokens("key-two", time.Hour)
	require.NoError(t, err)

	signed, err := issuer.Issue(uuid.New(), models.RoleViewer, nil)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tokens, err := NewTokens("test-key", time.Hour)
	require.NoError(t, err)
	tokens.ttl = -time.Minute

	signed, err := tokens.Issue(uuid.New(), models.RoleViewer, nil)
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokensRequiresKey(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	require.NoError(t, CheckPassword(hash, "s3cret"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestMiddleware(t *testing.T) {
	tokens, err := NewTokens("test-key", time.Hour)
	require.NoError(t, err)

	var gotClaims *Claims
	handler := tokens.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		require.True(t, ok)
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		userID := uuid.New()
		signed, err := tokens.Issue(userID, models.RoleAdmin, nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/devices", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotClaims)
		assert.Equal(t, userID, gotClaims.UserID)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/devices", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/devices", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
