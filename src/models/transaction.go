package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	AccountID   int64           `json:"account_id"`
	CategoryID  int64           `json:"category_id"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	IsTransfer  bool            `json:"is_transfer"`
}
