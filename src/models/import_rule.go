package models

import "time"

const (
	MatchFieldDescription = "description"
	MatchFieldCategory    = "category"
)

type ImportRule struct {
	ID                   int64     `json:"id"`
	FamilyID             int64     `json:"family_id"`
	AccountType          *string   `json:"account_type"` // nil applies to every account type
	FieldToMatch         string    `json:"field_to_match"`
	MatchPattern         string    `json:"match_pattern"`
	IsTransfer           bool      `json:"is_transfer"`
	OverrideCategoryID   *int64    `json:"override_category_id"`
	OverrideCategoryName string    `json:"override_category_name,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
