package models

const UncategorizedCategory = "Uncategorized"

type Category struct {
	ID       int64  `json:"id"`
	FamilyID int64  `json:"family_id"`
	Name     string `json:"name"`
}
