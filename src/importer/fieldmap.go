package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"

	"famledger-server/src/models"
)

// MemoColumn is appended to the description whenever a file carries it.
const MemoColumn = "Memo"

// MapRow turns one header-keyed CSV row into a candidate using the account type's
// column mapping. Amounts are normalized so expenses are negative and income positive.
func MapRow(row map[string]string, at models.AccountType) (models.Candidate, error) {
	rawDate, ok := row[at.DateField]
	if !ok {
		return models.Candidate{}, fmt.Errorf("%w: %q", ErrMissingColumn, at.DateField)
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return models.Candidate{}, err
	}

	description, ok := row[at.DescriptionField]
	if !ok {
		return models.Candidate{}, fmt.Errorf("%w: %q", ErrMissingColumn, at.DescriptionField)
	}
	if memo := row[MemoColumn]; memo != "" {
		description += " " + memo
	}

	rawAmount, ok := row[at.AmountField]
	if !ok {
		return models.Candidate{}, fmt.Errorf("%w: %q", ErrMissingColumn, at.AmountField)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil {
		return models.Candidate{}, fmt.Errorf("%w %q: %v", ErrUnparseableAmount, rawAmount, err)
	}
	if at.PositiveExpense {
		amount = amount.Neg()
	}

	category := strings.TrimSpace(row[at.CategoryField])
	if category == "" {
		category = models.UncategorizedCategory
	}

	return models.Candidate{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category,
		AccountID:   at.ID,
		AccountName: at.Name,
		Key:         models.NewTxKey(date, amount),
	}, nil
}

// parseDate accepts whatever layout the bank exported and keeps only the calendar
// date; time of day never takes part in matching.
func parseDate(raw string) (time.Time, error) {
	t, err := dateparse.ParseAny(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrUnparseableDate, raw, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
