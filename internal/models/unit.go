package models

import "time"

// SerializedUnit is one physically tracked device belonging to a
// serialized catalog entry. A unit can back at most one live booking
// for any given date range.
type SerializedUnit struct {
	ID           string     `json:"id"`
	CatalogID    string     `json:"catalogEntryId"`
	SerialNumber string     `json:"serialNumber"`
	Model        string     `json:"model"`
	Status       string     `json:"status"`
	Condition    string     `json:"condition"`
	LastServiced *time.Time `json:"lastServiced,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UnitPatch carries a partial inventory update. Nil fields are left
// untouched; set fields are applied independently.
type UnitPatch struct {
	Status       *string    `json:"status"`
	Condition    *string    `json:"condition"`
	Notes        *string    `json:"notes"`
	LastServiced *time.Time `json:"lastServiced"`
}

// Empty reports whether the patch would change nothing.
func (p UnitPatch) Empty() bool {
	return p.Status == nil && p.Condition == nil && p.Notes == nil && p.LastServiced == nil
}
