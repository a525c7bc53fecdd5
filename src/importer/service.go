package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"famledger-server/src/db"
	"famledger-server/src/models"
)

// Upload is one file of a multi-file upload.
type Upload struct {
	Name string
	Body io.Reader
}

// Stores groups the collaborators the pipeline reads from and writes to.
type Stores struct {
	AccountTypes AccountTypeProvider
	Rules        RuleStore
	Categories   CategoryStore
	Transactions DuplicateFinder
	UnitOfWork   UnitOfWork
	Sessions     SessionStore
}

// Service runs the CSV import flow: parse, apply rules, flag duplicates, then let
// the user confirm page by page before anything is written.
type Service struct {
	stores   Stores
	detector *Detector
	manager  *Manager
	log      zerolog.Logger
}

func NewService(stores Stores, log zerolog.Logger, opts ...ManagerOption) *Service {
	writer := NewWriter(stores.UnitOfWork, log)
	return &Service{
		stores:   stores,
		detector: NewDetector(stores.Transactions, log),
		manager:  NewManager(stores.Sessions, stores.Categories, writer, log, opts...),
		log:      log,
	}
}

// Upload parses every file against the selected account type and starts a new
// import session. Files that cannot be used are reported as warnings while the rest
// proceed; ErrNoValidRows is returned when no file yields a row.
func (s *Service) Upload(ctx context.Context, id models.Identity, accountID int64, files []Upload) (*models.ImportPage, []models.FileWarning, error) {
	at, err := s.accountType(ctx, id, accountID)
	if err != nil {
		return nil, nil, err
	}

	rules, err := s.stores.Rules.ListRules(ctx, id.FamilyID, at.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("loading import rules: %w", err)
	}
	rules = ApplicableRules(rules, at.Name)

	var (
		warnings []models.FileWarning
		parsed   [][]models.Candidate
		total    int
	)
	for _, f := range files {
		res, err := ParseFile(s.log, f.Name, f.Body, *at)
		if err != nil {
			s.log.Warn().Err(err).Str("file", f.Name).Msg("Skipping uploaded file")
			warnings = append(warnings, models.FileWarning{File: f.Name, Message: fileMessage(err)})
			continue
		}
		annotate(res.Candidates, rules)
		FlagInFile(res.Candidates)
		parsed = append(parsed, res.Candidates)
		total += len(res.Candidates)
	}
	if total == 0 {
		return nil, warnings, ErrNoValidRows
	}

	all := s.detector.Reconcile(ctx, id.FamilyID, parsed)

	page, err := s.manager.Start(ctx, id, at.ID, all)
	if err != nil {
		return nil, warnings, err
	}
	return s.withCategories(ctx, id, page), warnings, nil
}

// Preview returns the page awaiting confirmation.
func (s *Service) Preview(ctx context.Context, id models.Identity) (*models.ImportPage, error) {
	page, err := s.manager.Current(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withCategories(ctx, id, page), nil
}

// Confirm commits the visible page with the user's edits.
func (s *Service) Confirm(ctx context.Context, id models.Identity, importID string, edits []models.RowEdit) (*models.ImportResult, error) {
	res, err := s.manager.CommitPage(ctx, id, importID, edits)
	if err != nil {
		return nil, err
	}
	if res.Page != nil {
		res.Page = s.withCategories(ctx, id, res.Page)
	}
	return res, nil
}

// ImportAll commits every remaining row at once.
func (s *Service) ImportAll(ctx context.Context, id models.Identity, importID string, edits []models.RowEdit) (*models.ImportSummary, error) {
	return s.manager.ImportAllRemaining(ctx, id, importID, edits)
}

func (s *Service) Abort(ctx context.Context, id models.Identity) error {
	return s.manager.Abort(ctx, id)
}

func (s *Service) accountType(ctx context.Context, id models.Identity, accountID int64) (*models.AccountType, error) {
	if accountID <= 0 {
		return nil, ErrInvalidAccount
	}
	at, err := s.stores.AccountTypes.GetAccountType(ctx, accountID, id.FamilyID)
	if errors.Is(err, db.ErrNotFound) {
		s.log.Error().Int64("account_id", accountID).Int64("family_id", id.FamilyID).Msg("Invalid account selected")
		return nil, fmt.Errorf("%w (id %d)", ErrInvalidAccount, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading account type %d: %w", accountID, err)
	}
	s.log.Debug().
		Int64("account_id", at.ID).
		Str("name", at.Name).
		Str("date_field", at.DateField).
		Str("description_field", at.DescriptionField).
		Str("amount_field", at.AmountField).
		Str("category_field", at.CategoryField).
		Bool("positive_expense", at.PositiveExpense).
		Msg("Account type")
	return at, nil
}

// withCategories attaches the family's categories for the edit dropdown. The page is
// still usable without them, so a failed lookup is only logged.
func (s *Service) withCategories(ctx context.Context, id models.Identity, page *models.ImportPage) *models.ImportPage {
	cats, err := s.stores.Categories.ListCategories(ctx, id.FamilyID)
	if err != nil {
		s.log.Error().Err(err).Int64("family_id", id.FamilyID).Msg("Failed to list categories")
		return page
	}
	page.Categories = cats
	return page
}

func fileMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFileType):
		return "not a valid CSV file"
	case errors.Is(err, ErrUnreadableFile):
		return "could not read the file, check the file format"
	default:
		return "file skipped"
	}
}
