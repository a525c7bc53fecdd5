package pgstore

import (
	"context"

	"famledger-server/src/models"
)

func GetAllCategories(ctx context.Context, q DBTX, familyID int64) ([]models.Category, error) {
	rows, err := q.Query(ctx, `SELECT id, family_id, name FROM categories WHERE family_id = $1 ORDER BY name`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func GetCategoryByID(ctx context.Context, q DBTX, familyID, id int64) (*models.Category, error) {
	var c models.Category
	err := q.QueryRow(ctx, `SELECT id, family_id, name FROM categories WHERE id = $1 AND family_id = $2`, id, familyID).
		Scan(&c.ID, &c.FamilyID, &c.Name)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// FindOrCreateCategory returns the family's category with that exact name, creating
// it first if needed. The no-op update makes RETURNING yield the existing row.
func FindOrCreateCategory(ctx context.Context, q DBTX, name string, familyID int64) (*models.Category, error) {
	query := `
		INSERT INTO categories (family_id, name)
		VALUES ($1, $2)
		ON CONFLICT (family_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, family_id, name
	`
	var c models.Category
	if err := q.QueryRow(ctx, query, familyID, name).Scan(&c.ID, &c.FamilyID, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}
