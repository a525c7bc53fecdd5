package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const keyDateLayout = "2006-01-02"

// TxKey is the coarse identity used to group possible duplicates inside an import:
// the calendar date and the amount rounded to cents. Description and account are
// deliberately ignored.
type TxKey struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}

func NewTxKey(date time.Time, amount decimal.Decimal) TxKey {
	return TxKey{
		Date:   date.Format(keyDateLayout),
		Amount: amount.Round(2).StringFixed(2),
	}
}

// Candidate is a parsed CSV row that has not been persisted yet.
type Candidate struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	AccountID   int64           `json:"account_id"`
	AccountName string          `json:"account_name"`
	IsTransfer  bool            `json:"is_transfer"`
	IsDuplicate bool            `json:"is_duplicate"`
	ForceImport bool            `json:"force_import"`
	Key         TxKey           `json:"tx_key"`
}

// Committable reports whether the row may be written given its own flags.
func (c Candidate) Committable() bool {
	return !c.IsDuplicate || c.ForceImport
}
