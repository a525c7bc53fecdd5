package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"famledger-server/src/db"
	"famledger-server/src/models"
)

var errInsertFailed = errors.New("insert failed")

// memStore is an in-memory stand-in for every storage interface of the pipeline.
type memStore struct {
	mu sync.Mutex

	accountTypes map[int64]models.AccountType
	rules        []models.ImportRule
	categories   []models.Category
	transactions []models.Transaction
	users        map[int64]int64 // user id -> family id
	sessions     map[string]models.ImportSession
	progress     map[string]models.ImportProgress

	// failInsertAt makes the n-th insert (1-based, counted per unit of work) fail.
	failInsertAt int
	// failLookups makes HasDuplicate fail outside a unit of work.
	failLookups bool
}

func newMemStore() *memStore {
	return &memStore{
		accountTypes: map[int64]models.AccountType{},
		users:        map[int64]int64{},
		sessions:     map[string]models.ImportSession{},
		progress:     map[string]models.ImportProgress{},
	}
}

func (s *memStore) addAccountType(at models.AccountType) {
	s.accountTypes[at.ID] = at
}

func (s *memStore) addCategory(familyID int64, name string) models.Category {
	c := models.Category{ID: int64(len(s.categories) + 1), FamilyID: familyID, Name: name}
	s.categories = append(s.categories, c)
	return c
}

func (s *memStore) GetAccountType(_ context.Context, id, familyID int64) (*models.AccountType, error) {
	at, ok := s.accountTypes[id]
	if !ok || at.FamilyID != familyID {
		return nil, db.ErrNotFound
	}
	return &at, nil
}

func (s *memStore) ListRules(_ context.Context, familyID int64, accountTypeName string) ([]models.ImportRule, error) {
	var out []models.ImportRule
	for _, r := range s.rules {
		if r.FamilyID == familyID && (r.AccountType == nil || *r.AccountType == accountTypeName) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ListCategories(_ context.Context, familyID int64) ([]models.Category, error) {
	var out []models.Category
	for _, c := range s.categories {
		if c.FamilyID == familyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) GetCategory(_ context.Context, id, familyID int64) (*models.Category, error) {
	for _, c := range s.categories {
		if c.ID == id && c.FamilyID == familyID {
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) HasDuplicate(_ context.Context, familyID int64, c models.Candidate) (bool, error) {
	if s.failLookups {
		return false, errors.New("lookup failed")
	}
	return hasDuplicate(s.transactions, s.users, familyID, c), nil
}

func hasDuplicate(txns []models.Transaction, users map[int64]int64, familyID int64, c models.Candidate) bool {
	for _, t := range txns {
		if users[t.UserID] != familyID {
			continue
		}
		if t.AccountID == c.AccountID &&
			t.Description == c.Description &&
			t.Timestamp.Format("2006-01-02") == c.Key.Date &&
			t.Amount.Round(2).StringFixed(2) == c.Key.Amount {
			return true
		}
	}
	return false
}

// WithinTx runs fn against a copy of the transactions, categories and progress
// records and only keeps the copy when fn succeeds.
func (s *memStore) WithinTx(ctx context.Context, fn func(TxWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:        s,
		transactions: append([]models.Transaction(nil), s.transactions...),
		categories:   append([]models.Category(nil), s.categories...),
		progress:     make(map[string]models.ImportProgress, len(s.progress)),
	}
	for k, v := range s.progress {
		tx.progress[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.transactions = tx.transactions
	s.categories = tx.categories
	s.progress = tx.progress
	return nil
}

type memTx struct {
	store        *memStore
	transactions []models.Transaction
	categories   []models.Category
	progress     map[string]models.ImportProgress
	inserts      int
}

func (t *memTx) HasDuplicate(_ context.Context, familyID int64, c models.Candidate) (bool, error) {
	return hasDuplicate(t.transactions, t.store.users, familyID, c), nil
}

func (t *memTx) FindOrCreateCategory(_ context.Context, name string, familyID int64) (*models.Category, error) {
	for _, c := range t.categories {
		if c.FamilyID == familyID && c.Name == name {
			return &c, nil
		}
	}
	c := models.Category{ID: int64(len(t.categories) + 1), FamilyID: familyID, Name: name}
	t.categories = append(t.categories, c)
	return &c, nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn *models.Transaction) (int64, error) {
	t.inserts++
	if t.store.failInsertAt > 0 && t.inserts == t.store.failInsertAt {
		return 0, errInsertFailed
	}
	txn.ID = int64(len(t.transactions) + 1)
	t.transactions = append(t.transactions, *txn)
	return txn.ID, nil
}

func (t *memTx) ImportProgress(_ context.Context, importID string) (models.ImportProgress, error) {
	return t.progress[importID], nil
}

func (t *memTx) SaveImportProgress(_ context.Context, importID string, p models.ImportProgress) error {
	t.progress[importID] = p
	return nil
}

func (s *memStore) Save(_ context.Context, key string, session *models.ImportSession, _ time.Duration) error {
	cp := *session
	cp.Candidates = append([]models.Candidate(nil), session.Candidates...)
	s.sessions[key] = cp
	return nil
}

func (s *memStore) Load(_ context.Context, key string) (*models.ImportSession, error) {
	session, ok := s.sessions[key]
	if !ok {
		return nil, db.ErrNotFound
	}
	session.Candidates = append([]models.Candidate(nil), session.Candidates...)
	return &session, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.sessions, key)
	return nil
}

func (s *memStore) stores() Stores {
	return Stores{
		AccountTypes: s,
		Rules:        s,
		Categories:   s,
		Transactions: s,
		UnitOfWork:   s,
		Sessions:     s,
	}
}

var errSessionDown = errors.New("session backend down")

// flakySessions is a session store whose n-th Save (1-based) fails.
type flakySessions struct {
	*memStore
	failSaveAt int
	saves      int
}

func (f *flakySessions) Save(ctx context.Context, key string, session *models.ImportSession, ttl time.Duration) error {
	f.saves++
	if f.saves == f.failSaveAt {
		return errSessionDown
	}
	return f.memStore.Save(ctx, key, session, ttl)
}
