package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"famledger-server/src/db"
	"famledger-server/src/logger"
	"famledger-server/src/models"
)

type AccountTypeStore interface {
	CreateAccountType(ctx context.Context, at *models.AccountType) (*models.AccountType, error)
	GetAccountType(ctx context.Context, id, familyID int64) (*models.AccountType, error)
	ListAccountTypes(ctx context.Context, familyID int64) ([]models.AccountType, error)
	UpdateAccountType(ctx context.Context, at *models.AccountType) (*models.AccountType, error)
	DeleteAccountType(ctx context.Context, familyID, id int64) error
}

type accountTypeRequest struct {
	Name             string `json:"name"`
	DateField        string `json:"date_field"`
	DescriptionField string `json:"description_field"`
	AmountField      string `json:"amount_field"`
	CategoryField    string `json:"category_field"`
	PositiveExpense  bool   `json:"positive_expense"`
}

func (req accountTypeRequest) valid() bool {
	for _, v := range []string{req.Name, req.DateField, req.DescriptionField, req.AmountField, req.CategoryField} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (req accountTypeRequest) accountType(familyID int64) *models.AccountType {
	return &models.AccountType{
		FamilyID:         familyID,
		Name:             strings.TrimSpace(req.Name),
		DateField:        strings.TrimSpace(req.DateField),
		DescriptionField: strings.TrimSpace(req.DescriptionField),
		AmountField:      strings.TrimSpace(req.AmountField),
		CategoryField:    strings.TrimSpace(req.CategoryField),
		PositiveExpense:  req.PositiveExpense,
	}
}

func CreateAccountType(store AccountTypeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		id, ok := identity(w, r)
		if !ok {
			return
		}
		var req accountTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Int64("family_id", id.FamilyID).Msg("Failed to decode create account type request body")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if !req.valid() {
			http.Error(w, "name and every column mapping are required", http.StatusBadRequest)
			return
		}
		created, err := store.CreateAccountType(r.Context(), req.accountType(id.FamilyID))
		if err != nil {
			writeStoreError(w, r, err, "account type")
			return
		}
		log.Info().Int64("account_type_id", created.ID).Int64("family_id", id.FamilyID).Str("name", created.Name).Msg("Created account type")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func GetAccountTypeByID(store AccountTypeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		accountTypeID, err := idParam(r, "account_type_id")
		if err != nil {
			http.Error(w, "invalid account type id", http.StatusBadRequest)
			return
		}
		at, err := store.GetAccountType(r.Context(), accountTypeID, id.FamilyID)
		if err != nil {
			writeStoreError(w, r, err, "account type")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(at)
	}
}

func GetAllAccountTypes(store AccountTypeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		types, err := store.ListAccountTypes(r.Context(), id.FamilyID)
		if err != nil {
			writeStoreError(w, r, err, "account types")
			return
		}
		if types == nil {
			types = []models.AccountType{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(types)
	}
}

func UpdateAccountType(store AccountTypeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		id, ok := identity(w, r)
		if !ok {
			return
		}
		accountTypeID, err := idParam(r, "account_type_id")
		if err != nil {
			http.Error(w, "invalid account type id", http.StatusBadRequest)
			return
		}
		var req accountTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Int64("account_type_id", accountTypeID).Msg("Failed to decode update account type request body")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if !req.valid() {
			http.Error(w, "name and every column mapping are required", http.StatusBadRequest)
			return
		}
		at := req.accountType(id.FamilyID)
		at.ID = accountTypeID
		updated, err := store.UpdateAccountType(r.Context(), at)
		if err != nil {
			writeStoreError(w, r, err, "account type")
			return
		}
		log.Info().Int64("account_type_id", updated.ID).Int64("family_id", id.FamilyID).Msg("Updated account type")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func DeleteAccountType(store AccountTypeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		accountTypeID, err := idParam(r, "account_type_id")
		if err != nil {
			http.Error(w, "invalid account type id", http.StatusBadRequest)
			return
		}
		if err := store.DeleteAccountType(r.Context(), id.FamilyID, accountTypeID); err != nil {
			writeStoreError(w, r, err, "account type")
			return
		}
		logger.FromContext(r.Context()).Info().Int64("account_type_id", accountTypeID).Int64("family_id", id.FamilyID).Msg("Deleted account type")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "account type deleted"})
	}
}

func GetAccountTypePresets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.AccountTypePresets)
	}
}

// CreateAccountTypeFromPreset copies a known export format into the family's account types.
func CreateAccountTypeFromPreset(store AccountTypeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity(w, r)
		if !ok {
			return
		}
		name, err := url.PathUnescape(chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "invalid preset name", http.StatusBadRequest)
			return
		}
		preset, found := models.FindAccountTypePreset(name)
		if !found {
			http.Error(w, "preset not found", http.StatusNotFound)
			return
		}
		at := preset.AccountType(id.FamilyID)
		created, err := store.CreateAccountType(r.Context(), &at)
		if err != nil {
			writeStoreError(w, r, err, "account type")
			return
		}
		logger.FromContext(r.Context()).Info().Int64("account_type_id", created.ID).Str("preset", name).Msg("Created account type from preset")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

// writeStoreError answers 404 and 409 for the store sentinels and 500 for anything else.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, db.ErrConflict):
		http.Error(w, what+" conflicts with existing data", http.StatusConflict)
	default:
		logger.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msgf("Failed to access %s", what)
		http.Error(w, "failed to access "+what, http.StatusInternalServerError)
	}
}
