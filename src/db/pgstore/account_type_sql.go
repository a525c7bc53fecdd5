package pgstore

import (
	"context"

	"famledger-server/src/db"
	"famledger-server/src/models"
)

const accountTypeColumns = `id, family_id, name, date_field, description_field, amount_field, category_field, positive_expense, created_at, updated_at`

func scanAccountType(row interface{ Scan(...any) error }) (*models.AccountType, error) {
	var a models.AccountType
	err := row.Scan(&a.ID, &a.FamilyID, &a.Name, &a.DateField, &a.DescriptionField, &a.AmountField,
		&a.CategoryField, &a.PositiveExpense, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

func CreateAccountType(ctx context.Context, q DBTX, at *models.AccountType) (*models.AccountType, error) {
	query := `
		INSERT INTO account_types (family_id, name, date_field, description_field, amount_field, category_field, positive_expense)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountTypeColumns
	return scanAccountType(q.QueryRow(ctx, query, at.FamilyID, at.Name, at.DateField, at.DescriptionField,
		at.AmountField, at.CategoryField, at.PositiveExpense))
}

func GetAccountTypeByID(ctx context.Context, q DBTX, familyID, id int64) (*models.AccountType, error) {
	query := `SELECT ` + accountTypeColumns + ` FROM account_types WHERE id = $1 AND family_id = $2`
	return scanAccountType(q.QueryRow(ctx, query, id, familyID))
}

func GetAllAccountTypes(ctx context.Context, q DBTX, familyID int64) ([]models.AccountType, error) {
	query := `SELECT ` + accountTypeColumns + ` FROM account_types WHERE family_id = $1 ORDER BY name`
	rows, err := q.Query(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AccountType
	for rows.Next() {
		a, err := scanAccountType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func UpdateAccountType(ctx context.Context, q DBTX, at *models.AccountType) (*models.AccountType, error) {
	query := `
		UPDATE account_types
		SET name = $1, date_field = $2, description_field = $3, amount_field = $4,
		    category_field = $5, positive_expense = $6, updated_at = NOW()
		WHERE id = $7 AND family_id = $8
		RETURNING ` + accountTypeColumns
	return scanAccountType(q.QueryRow(ctx, query, at.Name, at.DateField, at.DescriptionField, at.AmountField,
		at.CategoryField, at.PositiveExpense, at.ID, at.FamilyID))
}

func DeleteAccountType(ctx context.Context, q DBTX, familyID, id int64) error {
	query := `DELETE FROM account_types WHERE id = $1 AND family_id = $2`
	cmd, err := q.Exec(ctx, query, id, familyID)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
