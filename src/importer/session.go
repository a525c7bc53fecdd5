package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"famledger-server/src/db"
	"famledger-server/src/models"
)

const (
	DefaultPageSize   = 10
	DefaultSessionTTL = 24 * time.Hour

	otherCategory = "other"
)

// Manager keeps one import per user across request round trips. A new upload by the
// same user replaces whatever import was in flight; there is no locking between tabs.
type Manager struct {
	sessions   SessionStore
	categories CategoryStore
	writer     *Writer
	pageSize   int
	ttl        time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

type ManagerOption func(*Manager)

func WithPageSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewManager(sessions SessionStore, categories CategoryStore, writer *Writer, log zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:   sessions,
		categories: categories,
		writer:     writer,
		pageSize:   DefaultPageSize,
		ttl:        DefaultSessionTTL,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sessionKey(userID int64) string {
	return "import:" + strconv.FormatInt(userID, 10)
}

// Start stores a fresh import for the user and returns its first page.
func (m *Manager) Start(ctx context.Context, id models.Identity, accountID int64, cands []models.Candidate) (*models.ImportPage, error) {
	s := &models.ImportSession{
		ImportID:   uuid.NewString(),
		UserID:     id.UserID,
		FamilyID:   id.FamilyID,
		AccountID:  accountID,
		Candidates: cands,
		CreatedAt:  m.now(),
	}
	if err := m.sessions.Save(ctx, sessionKey(id.UserID), s, m.ttl); err != nil {
		return nil, fmt.Errorf("saving import session: %w", err)
	}
	m.log.Info().
		Int64("user_id", id.UserID).
		Str("import_id", s.ImportID).
		Int("transactions", len(cands)).
		Msg("Import session started")
	return m.page(s), nil
}

// Current returns the page the user still has to confirm.
func (m *Manager) Current(ctx context.Context, id models.Identity) (*models.ImportPage, error) {
	s, err := m.load(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return m.page(s), nil
}

// CommitPage overlays the edits on the visible page, commits exactly that page and
// moves on. When nothing is left the session is cleared and the summary returned.
// If the commit fails nothing is advanced and the page can be submitted again. If
// only the session update fails, resubmitting the page does not write its rows twice.
func (m *Manager) CommitPage(ctx context.Context, id models.Identity, importID string, edits []models.RowEdit) (*models.ImportResult, error) {
	s, err := m.load(ctx, id, importID)
	if err != nil {
		return nil, err
	}

	start, end := m.window(s)
	if err := m.ApplyEdits(ctx, id, s.Candidates[start:end], edits); err != nil {
		return nil, err
	}

	progress, err := m.writer.CommitBatch(ctx, id, s.ImportID, start, s.Candidates[start:end])
	if err != nil {
		return nil, err
	}
	m.advance(s, end, progress)

	if s.Cursor >= len(s.Candidates) {
		return &models.ImportResult{Summary: m.finish(ctx, s)}, nil
	}
	if err := m.sessions.Save(ctx, sessionKey(id.UserID), s, m.ttl); err != nil {
		return nil, fmt.Errorf("saving import session: %w", err)
	}
	return &models.ImportResult{Page: m.page(s)}, nil
}

// ImportAllRemaining skips pagination: edits are indexed from the cursor across every
// remaining row and all of them are committed in one unit of work.
func (m *Manager) ImportAllRemaining(ctx context.Context, id models.Identity, importID string, edits []models.RowEdit) (*models.ImportSummary, error) {
	s, err := m.load(ctx, id, importID)
	if err != nil {
		return nil, err
	}

	start := min(s.Cursor, len(s.Candidates))
	remaining := s.Candidates[start:]
	if err := m.ApplyEdits(ctx, id, remaining, edits); err != nil {
		return nil, err
	}

	progress, err := m.writer.CommitBatch(ctx, id, s.ImportID, start, remaining)
	if err != nil {
		return nil, err
	}
	m.advance(s, len(s.Candidates), progress)
	return m.finish(ctx, s), nil
}

// advance moves the session past the committed rows. The stored progress wins over
// the session's own counters, which lag behind when an earlier save was lost.
func (m *Manager) advance(s *models.ImportSession, end int, p models.ImportProgress) {
	s.Cursor = max(end, p.CommittedThrough)
	s.TotalImported = p.Imported
}

// Abort drops the user's import without writing anything further.
func (m *Manager) Abort(ctx context.Context, id models.Identity) error {
	if err := m.sessions.Delete(ctx, sessionKey(id.UserID)); err != nil {
		return fmt.Errorf("deleting import session: %w", err)
	}
	return nil
}

// ApplyEdits overlays the edits onto window. Every index must fall inside the window
// and appear at most once.
func (m *Manager) ApplyEdits(ctx context.Context, id models.Identity, window []models.Candidate, edits []models.RowEdit) error {
	if len(edits) > len(window) {
		return fmt.Errorf("%w: %d edits for %d rows", ErrInvalidEdits, len(edits), len(window))
	}
	seen := make(map[int]bool, len(edits))
	for _, e := range edits {
		if e.Index < 0 || e.Index >= len(window) {
			return fmt.Errorf("%w: row %d outside page of %d", ErrInvalidEdits, e.Index, len(window))
		}
		if seen[e.Index] {
			return fmt.Errorf("%w: row %d edited twice", ErrInvalidEdits, e.Index)
		}
		seen[e.Index] = true
	}

	for _, e := range edits {
		c := &window[e.Index]
		if e.CategoryID != nil {
			name, err := m.resolveCategory(ctx, id, e, c.Category)
			if err != nil {
				return err
			}
			c.Category = name
		}
		if e.IsTransfer != nil {
			c.IsTransfer = *e.IsTransfer
		}
		if e.ForceImport != nil {
			c.ForceImport = *e.ForceImport
		}
	}
	return nil
}

func (m *Manager) resolveCategory(ctx context.Context, id models.Identity, e models.RowEdit, current string) (string, error) {
	selected := strings.TrimSpace(*e.CategoryID)
	switch {
	case selected == otherCategory:
		if name := strings.TrimSpace(e.NewCategory); name != "" {
			return name, nil
		}
		return current, nil
	case selected != "":
		catID, err := strconv.ParseInt(selected, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: category id %q", ErrInvalidEdits, selected)
		}
		cat, err := m.categories.GetCategory(ctx, catID, id.FamilyID)
		if errors.Is(err, db.ErrNotFound) {
			return current, nil
		}
		if err != nil {
			return "", fmt.Errorf("looking up category %d: %w", catID, err)
		}
		return cat.Name, nil
	default:
		if e.CategoryName != nil {
			return *e.CategoryName, nil
		}
		return current, nil
	}
}

func (m *Manager) load(ctx context.Context, id models.Identity, importID string) (*models.ImportSession, error) {
	s, err := m.sessions.Load(ctx, sessionKey(id.UserID))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading import session: %w", err)
	}
	if len(s.Candidates) == 0 {
		return nil, ErrNoSession
	}
	if importID != "" && importID != s.ImportID {
		return nil, ErrStaleImport
	}
	return s, nil
}

func (m *Manager) finish(ctx context.Context, s *models.ImportSession) *models.ImportSummary {
	if err := m.sessions.Delete(ctx, sessionKey(s.UserID)); err != nil {
		// the rows are committed; a leftover session just expires
		m.log.Error().Err(err).Int64("user_id", s.UserID).Msg("Failed to clear import session")
	}
	m.log.Info().
		Int64("user_id", s.UserID).
		Str("import_id", s.ImportID).
		Int("total_imported", s.TotalImported).
		Msg("Import finished")
	return &models.ImportSummary{ImportID: s.ImportID, TotalImported: s.TotalImported, Done: true}
}

func (m *Manager) window(s *models.ImportSession) (int, int) {
	start := min(s.Cursor, len(s.Candidates))
	end := min(start+m.pageSize, len(s.Candidates))
	return start, end
}

func (m *Manager) page(s *models.ImportSession) *models.ImportPage {
	start, end := m.window(s)
	return &models.ImportPage{
		ImportID:          s.ImportID,
		Transactions:      s.Candidates[start:end],
		Offset:            start,
		TotalTransactions: len(s.Candidates),
		TotalImported:     s.TotalImported,
		CurrentBatch:      start/m.pageSize + 1,
		TotalBatches:      (len(s.Candidates) + m.pageSize - 1) / m.pageSize,
		TotalDuplicates:   s.TotalDuplicates(),
	}
}
