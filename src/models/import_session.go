package models

import "time"

// ImportSession is the server-side state of one user's import between requests.
type ImportSession struct {
	ImportID      string      `json:"import_id"`
	UserID        int64       `json:"user_id"`
	FamilyID      int64       `json:"family_id"`
	AccountID     int64       `json:"account_id"`
	Candidates    []Candidate `json:"candidates"`
	Cursor        int         `json:"cursor"`
	TotalImported int         `json:"total_imported"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (s *ImportSession) TotalDuplicates() int {
	n := 0
	for _, c := range s.Candidates {
		if c.IsDuplicate {
			n++
		}
	}
	return n
}

// ImportProgress is the durable count of what an import has written: every row
// before CommittedThrough is done and Imported of them were inserted. It is saved in
// the same database transaction as the rows.
type ImportProgress struct {
	CommittedThrough int `json:"committed_through"`
	Imported         int `json:"imported"`
}

// RowEdit carries the user's changes to one row of the visible page.
// Index is relative to the first row of the page.
//
// CategoryID selects the category: "other" takes NewCategory, a numeric id picks an
// existing family category, and an empty value falls back to CategoryName.
type RowEdit struct {
	Index        int     `json:"index"`
	CategoryID   *string `json:"category_id,omitempty"`
	NewCategory  string  `json:"new_category,omitempty"`
	CategoryName *string `json:"category_name,omitempty"`
	IsTransfer   *bool   `json:"is_transfer,omitempty"`
	ForceImport  *bool   `json:"force_import,omitempty"`
}

type ImportPage struct {
	ImportID          string      `json:"import_id"`
	Transactions      []Candidate `json:"transactions"`
	Offset            int         `json:"offset"`
	TotalTransactions int         `json:"total_transactions"`
	TotalImported     int         `json:"total_imported"`
	CurrentBatch      int         `json:"current_batch"`
	TotalBatches      int         `json:"total_batches"`
	TotalDuplicates   int         `json:"total_duplicates"`
	Categories        []Category  `json:"categories,omitempty"`
}

type ImportSummary struct {
	ImportID      string `json:"import_id"`
	TotalImported int    `json:"total_imported"`
	Done          bool   `json:"done"`
}

// ImportResult is the outcome of confirming one page: either the next page or,
// once every row has been handled, the final summary.
type ImportResult struct {
	Page    *ImportPage    `json:"page,omitempty"`
	Summary *ImportSummary `json:"summary,omitempty"`
}

type FileWarning struct {
	File    string `json:"file"`
	Message string `json:"message"`
}
