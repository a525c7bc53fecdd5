package pgstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"famledger-server/src/db"
)

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), db.ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), db.ErrNotFound)

	unique := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "account_types_family_id_name_key"}
	err := mapError(unique)
	assert.ErrorIs(t, err, db.ErrConflict)
	assert.Contains(t, err.Error(), "account_types_family_id_name_key")

	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: foreignKeyViolation}), db.ErrConflict)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
	assert.Nil(t, mapError(nil))
}
