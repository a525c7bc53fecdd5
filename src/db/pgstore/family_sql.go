package pgstore

import (
	"context"

	"famledger-server/src/models"
)

// GetIdentity confirms that userID belongs to familyID.
func GetIdentity(ctx context.Context, q DBTX, userID, familyID int64) (*models.Identity, error) {
	query := `SELECT id, family_id FROM users WHERE id = $1 AND family_id = $2`
	var id models.Identity
	if err := q.QueryRow(ctx, query, userID, familyID).Scan(&id.UserID, &id.FamilyID); err != nil {
		return nil, mapError(err)
	}
	return &id, nil
}
