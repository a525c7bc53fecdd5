package pgstore

import (
	"context"

	"famledger-server/src/models"
)

// HasDuplicate looks for a stored transaction of the same family on the same account
// with the same calendar date, description and amount to the cent.
func HasDuplicate(ctx context.Context, q DBTX, familyID int64, c models.Candidate) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id IN (SELECT id FROM users WHERE family_id = $1)
			  AND account_id = $2
			  AND "timestamp"::date = $3::date
			  AND description = $4
			  AND round(amount, 2) = $5::numeric
		)
	`
	var exists bool
	err := q.QueryRow(ctx, query, familyID, c.AccountID, c.Key.Date, c.Description, c.Key.Amount).Scan(&exists)
	return exists, err
}

func InsertTransaction(ctx context.Context, q DBTX, t *models.Transaction) (int64, error) {
	query := `
		INSERT INTO transactions (user_id, account_id, category_id, amount, description, "timestamp", is_transfer)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := q.QueryRow(ctx, query, t.UserID, t.AccountID, t.CategoryID, t.Amount.StringFixed(2),
		t.Description, t.Timestamp, t.IsTransfer).Scan(&id)
	return id, err
}
