package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"famledger-server/src/db"
	"famledger-server/src/importer"
	"famledger-server/src/logger"
	"famledger-server/src/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so every query function can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store adapts the query functions to the importer's storage interfaces.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// WithinTx commits when fn succeeds and rolls back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(importer.TxWriter) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txWriter{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors the callers branch on into the db sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == uniqueViolation || pgErr.Code == foreignKeyViolation) {
		return fmt.Errorf("%w: %s", db.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

type txWriter struct {
	q DBTX
}

func (w *txWriter) HasDuplicate(ctx context.Context, familyID int64, c models.Candidate) (bool, error) {
	return HasDuplicate(ctx, w.q, familyID, c)
}

func (w *txWriter) FindOrCreateCategory(ctx context.Context, name string, familyID int64) (*models.Category, error) {
	return FindOrCreateCategory(ctx, w.q, name, familyID)
}

func (w *txWriter) InsertTransaction(ctx context.Context, t *models.Transaction) (int64, error) {
	return InsertTransaction(ctx, w.q, t)
}

func (w *txWriter) ImportProgress(ctx context.Context, importID string) (models.ImportProgress, error) {
	return LockImportProgress(ctx, w.q, importID)
}

func (w *txWriter) SaveImportProgress(ctx context.Context, importID string, p models.ImportProgress) error {
	return SaveImportProgress(ctx, w.q, importID, p)
}

func (s *Store) GetAccountType(ctx context.Context, id, familyID int64) (*models.AccountType, error) {
	return GetAccountTypeByID(ctx, s.pool, familyID, id)
}

func (s *Store) ListRules(ctx context.Context, familyID int64, accountTypeName string) ([]models.ImportRule, error) {
	return GetImportRulesForAccountType(ctx, s.pool, familyID, accountTypeName)
}

func (s *Store) ListCategories(ctx context.Context, familyID int64) ([]models.Category, error) {
	return GetAllCategories(ctx, s.pool, familyID)
}

func (s *Store) GetCategory(ctx context.Context, id, familyID int64) (*models.Category, error) {
	return GetCategoryByID(ctx, s.pool, familyID, id)
}

// PurgeImportProgress removes progress records of imports idle for longer than olderThan.
func (s *Store) PurgeImportProgress(ctx context.Context, olderThan time.Duration) (int64, error) {
	return PurgeImportProgress(ctx, s.pool, olderThan)
}

func (s *Store) HasDuplicate(ctx context.Context, familyID int64, c models.Candidate) (bool, error) {
	return HasDuplicate(ctx, s.pool, familyID, c)
}

func (s *Store) CreateAccountType(ctx context.Context, at *models.AccountType) (*models.AccountType, error) {
	return CreateAccountType(ctx, s.pool, at)
}

func (s *Store) ListAccountTypes(ctx context.Context, familyID int64) ([]models.AccountType, error) {
	return GetAllAccountTypes(ctx, s.pool, familyID)
}

func (s *Store) UpdateAccountType(ctx context.Context, at *models.AccountType) (*models.AccountType, error) {
	return UpdateAccountType(ctx, s.pool, at)
}

func (s *Store) DeleteAccountType(ctx context.Context, familyID, id int64) error {
	return DeleteAccountType(ctx, s.pool, familyID, id)
}

func (s *Store) CreateImportRule(ctx context.Context, rule *models.ImportRule) (*models.ImportRule, error) {
	return CreateImportRule(ctx, s.pool, rule)
}

func (s *Store) GetImportRule(ctx context.Context, familyID, id int64) (*models.ImportRule, error) {
	return GetImportRuleByID(ctx, s.pool, familyID, id)
}

func (s *Store) ListImportRules(ctx context.Context, familyID int64) ([]models.ImportRule, error) {
	return GetAllImportRules(ctx, s.pool, familyID)
}

func (s *Store) UpdateImportRule(ctx context.Context, rule *models.ImportRule) (*models.ImportRule, error) {
	return UpdateImportRule(ctx, s.pool, rule)
}

func (s *Store) DeleteImportRule(ctx context.Context, familyID, id int64) error {
	return DeleteImportRule(ctx, s.pool, familyID, id)
}

// ApplyImportRule runs inside one transaction so a failure leaves no partial update.
func (s *Store) ApplyImportRule(ctx context.Context, familyID, id int64) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := ApplyImportRule(ctx, tx, *logger.FromContext(ctx), familyID, id)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

func (s *Store) FindOrCreateCategory(ctx context.Context, name string, familyID int64) (*models.Category, error) {
	return FindOrCreateCategory(ctx, s.pool, name, familyID)
}

func (s *Store) GetIdentity(ctx context.Context, userID, familyID int64) (*models.Identity, error) {
	return GetIdentity(ctx, s.pool, userID, familyID)
}

var (
	_ importer.AccountTypeProvider = (*Store)(nil)
	_ importer.RuleStore           = (*Store)(nil)
	_ importer.CategoryStore       = (*Store)(nil)
	_ importer.DuplicateFinder     = (*Store)(nil)
	_ importer.UnitOfWork          = (*Store)(nil)
	_ importer.TxWriter            = (*txWriter)(nil)
)
