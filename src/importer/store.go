package importer

import (
	"context"
	"time"

	"famledger-server/src/models"
)

// The pipeline only talks to storage through these interfaces. Lookups that find
// nothing return db.ErrNotFound.

type AccountTypeProvider interface {
	GetAccountType(ctx context.Context, id, familyID int64) (*models.AccountType, error)
}

type RuleStore interface {
	// ListRules returns the family's rules whose account type is unset or equal to
	// accountTypeName, in retrieval order.
	ListRules(ctx context.Context, familyID int64, accountTypeName string) ([]models.ImportRule, error)
}

type CategoryStore interface {
	ListCategories(ctx context.Context, familyID int64) ([]models.Category, error)
	GetCategory(ctx context.Context, id, familyID int64) (*models.Category, error)
}

// DuplicateFinder reports whether a transaction with the same calendar date, amount
// rounded to cents, account and description is already stored for the family.
type DuplicateFinder interface {
	HasDuplicate(ctx context.Context, familyID int64, c models.Candidate) (bool, error)
}

// TxWriter is the set of writes available inside one unit of work.
type TxWriter interface {
	DuplicateFinder
	FindOrCreateCategory(ctx context.Context, name string, familyID int64) (*models.Category, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) (int64, error)

	// ImportProgress returns the progress record of importID, creating an empty one
	// on first use. The record stays locked until the unit of work ends.
	ImportProgress(ctx context.Context, importID string) (models.ImportProgress, error)
	SaveImportProgress(ctx context.Context, importID string, p models.ImportProgress) error
}

// UnitOfWork runs fn in a single database transaction. If fn returns an error every
// write made through the TxWriter is rolled back.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(TxWriter) error) error
}

// SessionStore is a key-value store with expiry holding in-flight imports.
type SessionStore interface {
	Save(ctx context.Context, key string, s *models.ImportSession, ttl time.Duration) error
	Load(ctx context.Context, key string) (*models.ImportSession, error)
	Delete(ctx context.Context, key string) error
}
