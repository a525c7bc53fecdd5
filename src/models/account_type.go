package models

import "time"

// AccountType maps the columns of one bank export format onto transaction fields.
// PositiveExpense means the source file reports spending as positive numbers.
type AccountType struct {
	ID               int64     `json:"id"`
	FamilyID         int64     `json:"family_id"`
	Name             string    `json:"name"`
	DateField        string    `json:"date_field"`
	DescriptionField string    `json:"description_field"`
	AmountField      string    `json:"amount_field"`
	CategoryField    string    `json:"category_field"`
	PositiveExpense  bool      `json:"positive_expense"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type AccountTypePreset struct {
	Name             string `json:"name"`
	DateField        string `json:"date_field"`
	DescriptionField string `json:"description_field"`
	AmountField      string `json:"amount_field"`
	CategoryField    string `json:"category_field"`
	PositiveExpense  bool   `json:"positive_expense"`
}

// AccountTypePresets are the export formats known out of the box.
var AccountTypePresets = []AccountTypePreset{
	{
		Name:             "Chase Checking",
		CategoryField:    "Type",
		DateField:        "Posting Date",
		AmountField:      "Amount",
		DescriptionField: "Description",
	},
	{
		Name:             "Discover Credit",
		CategoryField:    "Category",
		DateField:        "Trans. Date",
		AmountField:      "Amount",
		DescriptionField: "Description",
		PositiveExpense:  true,
	},
	{
		Name:             "US Bank Checking",
		CategoryField:    "Transaction",
		DateField:        "Date",
		AmountField:      "Amount",
		DescriptionField: "Name",
	},
	{
		Name:             "US Bank Savings",
		CategoryField:    "Transaction",
		DateField:        "Date",
		AmountField:      "Amount",
		DescriptionField: "Name",
	},
}

// FindAccountTypePreset looks a preset up by exact name.
func FindAccountTypePreset(name string) (AccountTypePreset, bool) {
	for _, p := range AccountTypePresets {
		if p.Name == name {
			return p, true
		}
	}
	return AccountTypePreset{}, false
}

func (p AccountTypePreset) AccountType(familyID int64) AccountType {
	return AccountType{
		FamilyID:         familyID,
		Name:             p.Name,
		DateField:        p.DateField,
		DescriptionField: p.DescriptionField,
		AmountField:      p.AmountField,
		CategoryField:    p.CategoryField,
		PositiveExpense:  p.PositiveExpense,
	}
}
