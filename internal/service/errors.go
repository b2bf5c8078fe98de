package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDateRange is returned when endDate precedes startDate
	// or a date fails to parse.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidTransition is returned for a status change the booking
	// lifecycle does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidHeadsetDistribution is returned when a headset override
	// does not sum to the package unit count or names an unknown type.
	ErrInvalidHeadsetDistribution = errors.New("invalid headset distribution")

	// ErrInvalidUnit is returned for a malformed unit create or patch:
	// unknown status or condition, or a catalog entry of the wrong kind.
	ErrInvalidUnit = errors.New("invalid unit")
)

// MissingFieldError names the first required field absent from a request.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// IsMissingField reports whether err is a MissingFieldError and returns
// the field name when it is.
func IsMissingField(err error) (string, bool) {
	var mf *MissingFieldError
	if errors.As(err, &mf) {
		return mf.Field, true
	}
	return "", false
}
