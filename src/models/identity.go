package models

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID   int64
	FamilyID int64
}
