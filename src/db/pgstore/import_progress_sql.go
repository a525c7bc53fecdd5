package pgstore

import (
	"context"
	"time"

	"famledger-server/src/db"
	"famledger-server/src/models"
)

// LockImportProgress returns the progress of importID, inserting an empty record the
// first time. The upsert row-locks the record, so two commits of the same import
// inside concurrent transactions run one after the other.
func LockImportProgress(ctx context.Context, q DBTX, importID string) (models.ImportProgress, error) {
	query := `
		INSERT INTO import_progress (import_id)
		VALUES ($1)
		ON CONFLICT (import_id) DO UPDATE SET import_id = EXCLUDED.import_id
		RETURNING committed_through, imported
	`
	var p models.ImportProgress
	err := q.QueryRow(ctx, query, importID).Scan(&p.CommittedThrough, &p.Imported)
	return p, err
}

func SaveImportProgress(ctx context.Context, q DBTX, importID string, p models.ImportProgress) error {
	query := `
		UPDATE import_progress
		SET committed_through = $2, imported = $3, updated_at = NOW()
		WHERE import_id = $1
	`
	cmd, err := q.Exec(ctx, query, importID, p.CommittedThrough, p.Imported)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// PurgeImportProgress drops progress records untouched for longer than olderThan.
// Once the matching session has expired nothing reads them.
func PurgeImportProgress(ctx context.Context, q DBTX, olderThan time.Duration) (int64, error) {
	cmd, err := q.Exec(ctx, `DELETE FROM import_progress WHERE updated_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
