package pgstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"famledger-server/src/db"
	"famledger-server/src/importer"
	"famledger-server/src/models"
)

const importRuleSelect = `
	SELECT r.id, r.family_id, r.account_type, r.field_to_match, r.match_pattern, r.is_transfer,
	       r.override_category_id, COALESCE(c.name, ''), r.created_at, r.updated_at
	FROM import_rules r
	LEFT JOIN categories c ON c.id = r.override_category_id
`

func scanImportRule(row interface{ Scan(...any) error }) (*models.ImportRule, error) {
	var r models.ImportRule
	err := row.Scan(&r.ID, &r.FamilyID, &r.AccountType, &r.FieldToMatch, &r.MatchPattern, &r.IsTransfer,
		&r.OverrideCategoryID, &r.OverrideCategoryName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &r, nil
}

func collectImportRules(ctx context.Context, q DBTX, query string, args ...any) ([]models.ImportRule, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.ImportRule
	for rows.Next() {
		r, err := scanImportRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func CreateImportRule(ctx context.Context, q DBTX, rule *models.ImportRule) (*models.ImportRule, error) {
	query := `
		INSERT INTO import_rules (family_id, account_type, field_to_match, match_pattern, is_transfer, override_category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := q.QueryRow(ctx, query, rule.FamilyID, rule.AccountType, rule.FieldToMatch, rule.MatchPattern,
		rule.IsTransfer, rule.OverrideCategoryID).Scan(&id)
	if err != nil {
		return nil, mapError(err)
	}
	return GetImportRuleByID(ctx, q, rule.FamilyID, id)
}

func GetImportRuleByID(ctx context.Context, q DBTX, familyID, ruleID int64) (*models.ImportRule, error) {
	query := importRuleSelect + ` WHERE r.id = $1 AND r.family_id = $2`
	return scanImportRule(q.QueryRow(ctx, query, ruleID, familyID))
}

func GetAllImportRules(ctx context.Context, q DBTX, familyID int64) ([]models.ImportRule, error) {
	return collectImportRules(ctx, q, importRuleSelect+` WHERE r.family_id = $1 ORDER BY r.id`, familyID)
}

// GetImportRulesForAccountType returns the family's unscoped rules together with the
// ones scoped to accountType, in id order.
func GetImportRulesForAccountType(ctx context.Context, q DBTX, familyID int64, accountType string) ([]models.ImportRule, error) {
	query := importRuleSelect + `
		WHERE r.family_id = $1 AND (r.account_type IS NULL OR r.account_type = $2)
		ORDER BY r.id
	`
	return collectImportRules(ctx, q, query, familyID, accountType)
}

func UpdateImportRule(ctx context.Context, q DBTX, rule *models.ImportRule) (*models.ImportRule, error) {
	query := `
		UPDATE import_rules
		SET account_type = $1, field_to_match = $2, match_pattern = $3, is_transfer = $4,
		    override_category_id = $5, updated_at = NOW()
		WHERE id = $6 AND family_id = $7
	`
	cmd, err := q.Exec(ctx, query, rule.AccountType, rule.FieldToMatch, rule.MatchPattern, rule.IsTransfer,
		rule.OverrideCategoryID, rule.ID, rule.FamilyID)
	if err != nil {
		return nil, mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, db.ErrNotFound
	}
	return GetImportRuleByID(ctx, q, rule.FamilyID, rule.ID)
}

func DeleteImportRule(ctx context.Context, q DBTX, familyID, ruleID int64) error {
	cmd, err := q.Exec(ctx, `DELETE FROM import_rules WHERE id = $1 AND family_id = $2`, ruleID, familyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// ApplyImportRule runs one rule over the family's stored transactions: every match takes
// the rule's transfer flag and, when set, its override category. It returns how many
// transactions matched. Matching is the same substring test used during import.
func ApplyImportRule(ctx context.Context, q DBTX, log zerolog.Logger, familyID, ruleID int64) (int, error) {
	rule, err := GetImportRuleByID(ctx, q, familyID, ruleID)
	if err != nil {
		return 0, err
	}

	query := `
		SELECT t.id, t.description, c.name, t.is_transfer, t.category_id, a.name
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		JOIN account_types a ON a.id = t.account_id
		JOIN users u ON u.id = t.user_id
		WHERE u.family_id = $1
	`
	rows, err := q.Query(ctx, query, familyID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	type txnRow struct {
		ID          int64
		Description string
		Category    string
		IsTransfer  bool
		CategoryID  int64
		AccountType string
	}
	var txns []txnRow
	for rows.Next() {
		var t txnRow
		if err := rows.Scan(&t.ID, &t.Description, &t.Category, &t.IsTransfer, &t.CategoryID, &t.AccountType); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	matched := 0
	for _, t := range txns {
		if rule.AccountType != nil && *rule.AccountType != t.AccountType {
			continue
		}
		if !importer.Matches(*rule, t.Description, t.Category) {
			continue
		}
		matched++
		categoryID := t.CategoryID
		if rule.OverrideCategoryID != nil {
			categoryID = *rule.OverrideCategoryID
		}
		if rule.IsTransfer == t.IsTransfer && categoryID == t.CategoryID {
			continue
		}
		_, err := q.Exec(ctx, `UPDATE transactions SET is_transfer = $1, category_id = $2 WHERE id = $3`,
			rule.IsTransfer, categoryID, t.ID)
		if err != nil {
			return matched, fmt.Errorf("failed to update transaction %d: %w", t.ID, err)
		}
	}

	log.Info().Int64("rule_id", ruleID).Int("matched", matched).Msg("Applied import rule to stored transactions")
	return matched, nil
}
