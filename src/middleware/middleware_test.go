package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famledger-server/src/logger"
	"famledger-server/src/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte{byte('0' + id.UserID), byte('0' + id.FamilyID)})
	})
}

func TestJWTAuthMiddleware(t *testing.T) {
	valid := jwt.MapClaims{"user_id": 3, "family_id": 7, "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + signToken(t, testSecret, valid), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"user_id": 3, "family_id": 7, "exp": time.Now().Add(-time.Hour).Unix(),
		}), http.StatusUnauthorized},
		{"missing family", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": 3}), http.StatusUnauthorized},
		{"non numeric user", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": "3", "family_id": 7}), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			JWTAuthMiddleware(testSecret)(identityEcho()).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "37", rec.Body.String())
			}
		})
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(httptest.NewRequest(http.MethodGet, "/", nil).Context(), models.Identity{UserID: 1, FamilyID: 2})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(2), id.FamilyID)
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadOnlyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	ReadOnlyMiddleware(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions/import", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	ReadOnlyMiddleware(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions/import", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadOnlyMiddleware(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/transactions/import", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	h := RequestLogger(logger.NewWithWriter(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info().Msg("inside handler")
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/account-types", nil))

	out := buf.String()
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, `"status":201`)
	assert.Contains(t, out, `"path":"/api/account-types"`)
}
