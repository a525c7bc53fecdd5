package importer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"famledger-server/src/models"
)

// Writer persists confirmed candidates.
type Writer struct {
	uow UnitOfWork
	log zerolog.Logger
}

func NewWriter(uow UnitOfWork, log zerolog.Logger) *Writer {
	return &Writer{uow: uow, log: log}
}

// CommitBatch writes the rows found at offset of import importID and advances the
// import's progress record in the same unit of work. Rows the progress record already
// covers are not written again, so a batch whose session update was lost after the
// commit can be resubmitted safely.
func (w *Writer) CommitBatch(ctx context.Context, id models.Identity, importID string, offset int, rows []models.Candidate) (models.ImportProgress, error) {
	var progress models.ImportProgress
	err := w.uow.WithinTx(ctx, func(tx TxWriter) error {
		p, err := tx.ImportProgress(ctx, importID)
		if err != nil {
			return fmt.Errorf("loading import progress: %w", err)
		}

		done := min(max(p.CommittedThrough-offset, 0), len(rows))
		if done > 0 {
			w.log.Warn().
				Str("import_id", importID).
				Int("offset", offset).
				Int("rows", done).
				Msg("Rows already committed, not writing them again")
		}

		n, err := w.writeRows(ctx, tx, id, rows[done:])
		if err != nil {
			return err
		}
		p.CommittedThrough = max(p.CommittedThrough, offset+len(rows))
		p.Imported += n
		if err := tx.SaveImportProgress(ctx, importID, p); err != nil {
			return fmt.Errorf("saving import progress: %w", err)
		}
		progress = p
		return nil
	})
	if err != nil {
		w.log.Error().Err(err).Int64("user_id", id.UserID).Str("import_id", importID).Int("offset", offset).Msg("Import commit rolled back")
		return models.ImportProgress{}, err
	}
	w.log.Info().
		Int64("user_id", id.UserID).
		Str("import_id", importID).
		Int("offset", offset).
		Int("committed_through", progress.CommittedThrough).
		Int("imported", progress.Imported).
		Msg("Import commit")
	return progress, nil
}

func (w *Writer) writeRows(ctx context.Context, tx TxWriter, id models.Identity, rows []models.Candidate) (int, error) {
	imported := 0
	for _, c := range rows {
		ok, err := w.commitRow(ctx, tx, id, c)
		if err != nil {
			return 0, err
		}
		if ok {
			imported++
		}
	}
	return imported, nil
}

// commitRow writes one row. A row is skipped when it is flagged or found stored as a
// duplicate and the user did not force it.
func (w *Writer) commitRow(ctx context.Context, tx TxWriter, id models.Identity, c models.Candidate) (bool, error) {
	if !c.Committable() {
		w.skip(c)
		return false, nil
	}
	if !c.ForceImport {
		// sees rows written earlier in this unit of work
		stored, err := tx.HasDuplicate(ctx, id.FamilyID, c)
		if err != nil {
			return false, fmt.Errorf("checking duplicate: %w", err)
		}
		if stored {
			w.skip(c)
			return false, nil
		}
	}

	category, err := tx.FindOrCreateCategory(ctx, c.Category, id.FamilyID)
	if err != nil {
		return false, fmt.Errorf("resolving category %q: %w", c.Category, err)
	}

	t := &models.Transaction{
		UserID:      id.UserID,
		AccountID:   c.AccountID,
		CategoryID:  category.ID,
		Category:    category.Name,
		Amount:      c.Amount,
		Description: c.Description,
		Timestamp:   c.Date,
		IsTransfer:  c.IsTransfer,
	}
	if _, err := tx.InsertTransaction(ctx, t); err != nil {
		return false, fmt.Errorf("inserting transaction: %w", err)
	}
	return true, nil
}

func (w *Writer) skip(c models.Candidate) {
	w.log.Debug().
		Str("date", c.Key.Date).
		Str("amount", c.Key.Amount).
		Str("description", c.Description).
		Msg("Skipped duplicate transaction")
}
