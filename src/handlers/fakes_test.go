package handlers

import (
	"context"
	"strings"

	"famledger-server/src/db"
	"famledger-server/src/importer"
	"famledger-server/src/models"
)

var testUser = models.Identity{UserID: 1, FamilyID: 7}

// fakeStore backs both the import pipeline and the CRUD handlers in memory.
type fakeStore struct {
	accountTypes []models.AccountType
	rules        []models.ImportRule
	categories   []models.Category
	transactions []models.Transaction
	applied      []int64
	progress     map[string]models.ImportProgress
}

func (s *fakeStore) GetAccountType(_ context.Context, id, familyID int64) (*models.AccountType, error) {
	for _, at := range s.accountTypes {
		if at.ID == id && at.FamilyID == familyID {
			return &at, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeStore) CreateAccountType(_ context.Context, at *models.AccountType) (*models.AccountType, error) {
	for _, existing := range s.accountTypes {
		if existing.FamilyID == at.FamilyID && existing.Name == at.Name {
			return nil, db.ErrConflict
		}
	}
	created := *at
	created.ID = int64(len(s.accountTypes) + 1)
	s.accountTypes = append(s.accountTypes, created)
	return &created, nil
}

func (s *fakeStore) ListAccountTypes(_ context.Context, familyID int64) ([]models.AccountType, error) {
	var out []models.AccountType
	for _, at := range s.accountTypes {
		if at.FamilyID == familyID {
			out = append(out, at)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateAccountType(_ context.Context, at *models.AccountType) (*models.AccountType, error) {
	for i, existing := range s.accountTypes {
		if existing.ID == at.ID && existing.FamilyID == at.FamilyID {
			s.accountTypes[i] = *at
			return at, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeStore) DeleteAccountType(_ context.Context, familyID, id int64) error {
	for i, existing := range s.accountTypes {
		if existing.ID == id && existing.FamilyID == familyID {
			s.accountTypes = append(s.accountTypes[:i], s.accountTypes[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) CreateImportRule(_ context.Context, rule *models.ImportRule) (*models.ImportRule, error) {
	created := *rule
	created.ID = int64(len(s.rules) + 1)
	if created.OverrideCategoryID != nil {
		cat, _ := s.GetCategory(context.Background(), *created.OverrideCategoryID, created.FamilyID)
		created.OverrideCategoryName = cat.Name
	}
	s.rules = append(s.rules, created)
	return &created, nil
}

func (s *fakeStore) GetImportRule(_ context.Context, familyID, id int64) (*models.ImportRule, error) {
	for _, r := range s.rules {
		if r.ID == id && r.FamilyID == familyID {
			return &r, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeStore) ListImportRules(_ context.Context, familyID int64) ([]models.ImportRule, error) {
	var out []models.ImportRule
	for _, r := range s.rules {
		if r.FamilyID == familyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateImportRule(ctx context.Context, rule *models.ImportRule) (*models.ImportRule, error) {
	for i, r := range s.rules {
		if r.ID == rule.ID && r.FamilyID == rule.FamilyID {
			s.rules[i] = *rule
			return rule, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeStore) DeleteImportRule(_ context.Context, familyID, id int64) error {
	for i, r := range s.rules {
		if r.ID == id && r.FamilyID == familyID {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) ApplyImportRule(ctx context.Context, familyID, id int64) (int, error) {
	rule, err := s.GetImportRule(ctx, familyID, id)
	if err != nil {
		return 0, err
	}
	s.applied = append(s.applied, rule.ID)
	matched := 0
	for _, t := range s.transactions {
		if importer.Matches(*rule, t.Description, t.Category) {
			matched++
		}
	}
	return matched, nil
}

func (s *fakeStore) ListRules(ctx context.Context, familyID int64, accountTypeName string) ([]models.ImportRule, error) {
	rules, _ := s.ListImportRules(ctx, familyID)
	return importer.ApplicableRules(rules, accountTypeName), nil
}

func (s *fakeStore) ListCategories(_ context.Context, familyID int64) ([]models.Category, error) {
	var out []models.Category
	for _, c := range s.categories {
		if c.FamilyID == familyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) GetCategory(_ context.Context, id, familyID int64) (*models.Category, error) {
	for _, c := range s.categories {
		if c.ID == id && c.FamilyID == familyID {
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *fakeStore) FindOrCreateCategory(_ context.Context, name string, familyID int64) (*models.Category, error) {
	for _, c := range s.categories {
		if c.FamilyID == familyID && c.Name == name {
			return &c, nil
		}
	}
	c := models.Category{ID: int64(len(s.categories) + 1), FamilyID: familyID, Name: name}
	s.categories = append(s.categories, c)
	return &c, nil
}

func (s *fakeStore) HasDuplicate(_ context.Context, _ int64, c models.Candidate) (bool, error) {
	for _, t := range s.transactions {
		if t.AccountID == c.AccountID && t.Description == c.Description &&
			t.Timestamp.Format("2006-01-02") == c.Key.Date && t.Amount.StringFixed(2) == c.Key.Amount {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) InsertTransaction(_ context.Context, t *models.Transaction) (int64, error) {
	t.ID = int64(len(s.transactions) + 1)
	s.transactions = append(s.transactions, *t)
	return t.ID, nil
}

func (s *fakeStore) ImportProgress(_ context.Context, importID string) (models.ImportProgress, error) {
	return s.progress[importID], nil
}

func (s *fakeStore) SaveImportProgress(_ context.Context, importID string, p models.ImportProgress) error {
	s.progress[importID] = p
	return nil
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(importer.TxWriter) error) error {
	return fn(s)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accountTypes: []models.AccountType{{
			ID:               1,
			FamilyID:         testUser.FamilyID,
			Name:             "Credit Union",
			DateField:        "Date",
			DescriptionField: "Description",
			AmountField:      "Amount",
			CategoryField:    "Category",
		}},
		progress: map[string]models.ImportProgress{},
	}
}

func csvBody(rows ...string) string {
	return "Date,Description,Amount,Category\n" + strings.Join(rows, "\n") + "\n"
}
