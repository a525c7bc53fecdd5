package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famledger-server/src/config"
	"famledger-server/src/db"
	"famledger-server/src/importer"
	"famledger-server/src/models"
)

// emptyStore answers every lookup with nothing.
type emptyStore struct{}

func (emptyStore) CreateAccountType(context.Context, *models.AccountType) (*models.AccountType, error) {
	return nil, db.ErrConflict
}
func (emptyStore) GetAccountType(context.Context, int64, int64) (*models.AccountType, error) {
	return nil, db.ErrNotFound
}
func (emptyStore) ListAccountTypes(context.Context, int64) ([]models.AccountType, error) {
	return nil, nil
}
func (emptyStore) UpdateAccountType(context.Context, *models.AccountType) (*models.AccountType, error) {
	return nil, db.ErrNotFound
}
func (emptyStore) DeleteAccountType(context.Context, int64, int64) error { return db.ErrNotFound }
func (emptyStore) CreateImportRule(context.Context, *models.ImportRule) (*models.ImportRule, error) {
	return nil, db.ErrConflict
}
func (emptyStore) GetImportRule(context.Context, int64, int64) (*models.ImportRule, error) {
	return nil, db.ErrNotFound
}
func (emptyStore) ListImportRules(context.Context, int64) ([]models.ImportRule, error) {
	return nil, nil
}
func (emptyStore) UpdateImportRule(context.Context, *models.ImportRule) (*models.ImportRule, error) {
	return nil, db.ErrNotFound
}
func (emptyStore) DeleteImportRule(context.Context, int64, int64) error { return db.ErrNotFound }
func (emptyStore) ApplyImportRule(context.Context, int64, int64) (int, error) {
	return 0, db.ErrNotFound
}
func (emptyStore) ListCategories(context.Context, int64) ([]models.Category, error) { return nil, nil }
func (emptyStore) GetCategory(context.Context, int64, int64) (*models.Category, error) {
	return nil, db.ErrNotFound
}
func (emptyStore) FindOrCreateCategory(context.Context, string, int64) (*models.Category, error) {
	return nil, db.ErrConflict
}
func (emptyStore) ListRules(context.Context, int64, string) ([]models.ImportRule, error) {
	return nil, nil
}
func (emptyStore) HasDuplicate(context.Context, int64, models.Candidate) (bool, error) {
	return false, nil
}
func (emptyStore) WithinTx(context.Context, func(importer.TxWriter) error) error { return nil }

func newTestRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	sessions, err := db.NewMemorySessionStore()
	require.NoError(t, err)
	t.Cleanup(sessions.Close)

	store := emptyStore{}
	svc := importer.NewService(importer.Stores{
		AccountTypes: store,
		Rules:        store,
		Categories:   store,
		Transactions: store,
		UnitOfWork:   store,
		Sessions:     sessions,
	}, zerolog.Nop())
	return NewRouter(cfg, zerolog.Nop(), store, svc)
}

func bearer(t *testing.T, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   1,
		"family_id": 7,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter(t *testing.T) {
	cfg := config.Config{JWTSecret: "s3cret", MaxUploadMB: 1}
	h := newTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", bearer(t, cfg.JWTSecret))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/transactions/import", nil)
	req.Header.Set("Authorization", bearer(t, cfg.JWTSecret))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterReadOnly(t *testing.T) {
	cfg := config.Config{JWTSecret: "s3cret", MaxUploadMB: 1, ReadOnly: true}
	h := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/import", nil)
	req.Header.Set("Authorization", bearer(t, cfg.JWTSecret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
