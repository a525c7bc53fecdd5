package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"famledger-server/src/db"
	"famledger-server/src/logger"
	"famledger-server/src/models"
)

type ImportRuleStore interface {
	CreateImportRule(ctx context.Context, rule *models.ImportRule) (*models.ImportRule, error)
	GetImportRule(ctx context.Context, familyID, id int64) (*models.ImportRule, error)
	ListImportRules(ctx context.Context, familyID int64) ([]models.ImportRule, error)
	UpdateImportRule(ctx context.Context, rule *models.ImportRule) (*models.ImportRule, error)
	DeleteImportRule(ctx context.Context, familyID, id int64) error
	ApplyImportRule(ctx context.Context, familyID, id int64) (int, error)
	GetCategory(ctx context.Context, id, familyID int64) (*models.Category, error)
	FindOrCreateCategory(ctx context.Context, name string, familyID int64) (*models.Category, error)
}

// importRuleRequest names the override category either by id or, for a category that
// does not exist yet, by name.
type importRuleRequest struct {
	AccountType          *string `json:"account_type"`
	FieldToMatch         string  `json:"field_to_match"`
	MatchPattern         string  `json:"match_pattern"`
	IsTransfer           bool    `json:"is_transfer"`
	OverrideCategoryID   *int64  `json:"override_category_id"`
	OverrideCategoryName string  `json:"override_category_name"`
}

var errInvalidRule = errors.New("field_to_match must be description or category and match_pattern is required")

// rule validates the request and resolves its override category.
func (req importRuleRequest) rule(ctx context.Context, store ImportRuleStore, familyID int64) (*models.ImportRule, error) {
	field := strings.ToLower(strings.TrimSpace(req.FieldToMatch))
	if field != models.MatchFieldDescription && field != models.MatchFieldCategory {
		return nil, errInvalidRule
	}
	if req.MatchPattern == "" {
		return nil, errInvalidRule
	}

	rule := &models.ImportRule{
		FamilyID:     familyID,
		FieldToMatch: field,
		MatchPattern: req.MatchPattern,
		IsTransfer:   req.IsTransfer,
	}
	if req.AccountType != nil {
		if name := strings.TrimSpace(*req.AccountType); name != "" {
			rule.AccountType = &name
		}
	}

	switch name := strings.TrimSpace(req.OverrideCategoryName); {
	case req.OverrideCategoryID != nil:
		cat, err := store.GetCategory(ctx, *req.OverrideCategoryID, familyID)
		if err != nil {
			return nil, err
		}
		rule.OverrideCategoryID = &cat.ID
	case name != "":
		cat, err := store.FindOrCreateCategory(ctx, name, familyID)
		if err != nil {
			return nil, err
		}
		rule.OverrideCategoryID = &cat.ID
	}
	return rule, nil
}

func decodeImportRule(w http.ResponseWriter, r *http.Request, store ImportRuleStore, familyID int64) (*models.ImportRule, bool) {
	var req importRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Int64("family_id", familyID).Msg("Failed to decode import rule request body")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return nil, false
	}
	rule, err := req.rule(r.Context(), store, familyID)
	switch {
	case errors.Is(err, errInvalidRule):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "override category not found", http.StatusBadRequest)
		return nil, false
	case err != nil:
		writeStoreError(w, r, err, "import rule")
		return nil, false
	}
	return rule, true
}

func CreateImportRule(store ImportRuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		rule, ok := decodeImportRule(w, r, store, id.FamilyID)
		if !ok {
			return
		}
		created, err := store.CreateImportRule(r.Context(), rule)
		if err != nil {
			writeStoreError(w, r, err, "import rule")
			return
		}
		logger.FromContext(r.Context()).Info().
			Int64("rule_id", created.ID).
			Int64("family_id", id.FamilyID).
			Str("pattern", created.MatchPattern).
			Msg("Created import rule")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func GetImportRuleByID(store ImportRuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		ruleID, err := idParam(r, "rule_id")
		if err != nil {
			http.Error(w, "invalid rule id", http.StatusBadRequest)
			return
		}
		rule, err := store.GetImportRule(r.Context(), id.FamilyID, ruleID)
		if err != nil {
			writeStoreError(w, r, err, "import rule")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rule)
	}
}

func GetAllImportRules(store ImportRuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		rules, err := store.ListImportRules(r.Context(), id.FamilyID)
		if err != nil {
			writeStoreError(w, r, err, "import rules")
			return
		}
		if rules == nil {
			rules = []models.ImportRule{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rules)
	}
}

func UpdateImportRule(store ImportRuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		ruleID, err := idParam(r, "rule_id")
		if err != nil {
			http.Error(w, "invalid rule id", http.StatusBadRequest)
			return
		}
		rule, ok := decodeImportRule(w, r, store, id.FamilyID)
		if !ok {
			return
		}
		rule.ID = ruleID
		updated, err := store.UpdateImportRule(r.Context(), rule)
		if err != nil {
			writeStoreError(w, r, err, "import rule")
			return
		}
		logger.FromContext(r.Context()).Info().Int64("rule_id", updated.ID).Int64("family_id", id.FamilyID).Msg("Updated import rule")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func DeleteImportRule(store ImportRuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		ruleID, err := idParam(r, "rule_id")
		if err != nil {
			http.Error(w, "invalid rule id", http.StatusBadRequest)
			return
		}
		if err := store.DeleteImportRule(r.Context(), id.FamilyID, ruleID); err != nil {
			writeStoreError(w, r, err, "import rule")
			return
		}
		logger.FromContext(r.Context()).Info().Int64("rule_id", ruleID).Int64("family_id", id.FamilyID).Msg("Deleted import rule")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "import rule deleted"})
	}
}

// ApplyImportRule re-runs one rule over every transaction the family already stored.
func ApplyImportRule(store ImportRuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		ruleID, err := idParam(r, "rule_id")
		if err != nil {
			http.Error(w, "invalid rule id", http.StatusBadRequest)
			return
		}
		matched, err := store.ApplyImportRule(r.Context(), id.FamilyID, ruleID)
		if err != nil {
			writeStoreError(w, r, err, "import rule")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"matched": matched})
	}
}
