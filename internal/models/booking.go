package models

import "time"

// Booking reserves one catalog entry for a contiguous date range.
// UnitID is set for serialized entries and empty for pooled packages,
// which are booked whole.
type Booking struct {
	ID              string              `json:"id"`
	CatalogID       string              `json:"catalogEntryId"`
	CatalogName     string              `json:"catalogEntryName"`
	UnitID          string              `json:"unitId,omitempty"`
	UnitSerial      string              `json:"unitSerial,omitempty"`
	CustomerName    string              `json:"customerName"`
	CustomerEmail   string              `json:"customerEmail"`
	CustomerPhone   string              `json:"customerPhone,omitempty"`
	StartDate       time.Time           `json:"startDate"`
	EndDate         time.Time           `json:"endDate"`
	Status          string              `json:"status"`
	TotalCostCents  int64               `json:"totalCostCents"`
	Notes           string              `json:"notes,omitempty"`
	HeadsetOverride HeadsetDistribution `json:"headsetDistribution,omitempty"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Overlaps reports whether two inclusive date ranges share at least one
// calendar day. Boundary-touching ranges conflict: only dates are modeled,
// so a unit returned on the 3rd cannot go out again on the 3rd.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// RentalDays returns the billable length of [start, end] in calendar days.
// Same-day rentals bill as one day.
func RentalDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}

// RentalCost applies the billing rule: once the window reaches a week,
// whole week blocks are billed (rounded up), otherwise day rate applies.
func RentalCost(days int, dailyRateCents, weeklyRateCents int64) int64 {
	if days >= 7 {
		weeks := int64((days + 6) / 7)
		return weeks * weeklyRateCents
	}
	return int64(days) * dailyRateCents
}

// CanTransition reports whether a booking may move from one status to
// another. Transitions are forward-only; cancellation is allowed from any
// non-terminal state.
func CanTransition(from, to string) bool {
	switch to {
	case StatusConfirmed:
		return from == StatusPending
	case StatusActive:
		return from == StatusConfirmed
	case StatusCompleted:
		return from == StatusActive
	case StatusCancelled:
		return from == StatusPending || from == StatusConfirmed || from == StatusActive
	}
	return false
}

// BlocksAllocation reports whether a booking in the given status holds
// its unit or package slot against overlapping requests.
func BlocksAllocation(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusActive:
		return true
	}
	return false
}
