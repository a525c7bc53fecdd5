package importer

import "errors"

var (
	// File and row level. Row errors are logged and the row skipped; file errors
	// skip the file and surface as warnings.
	ErrMissingColumn     = errors.New("missing expected column")
	ErrUnparseableDate   = errors.New("unparseable date")
	ErrUnparseableAmount = errors.New("unparseable amount")
	ErrInvalidFileType   = errors.New("invalid file format, expected a .csv file")
	ErrUnreadableFile    = errors.New("unreadable csv file")

	// Request level.
	ErrInvalidAccount = errors.New("invalid account selected")
	ErrNoValidRows    = errors.New("no valid transactions found in the uploaded files")
	ErrNoSession      = errors.New("no transactions to import")
	ErrStaleImport    = errors.New("import was replaced by a newer upload")
	ErrInvalidEdits   = errors.New("invalid row edits")
)
