package database

import "errors"

var (
	// ErrCatalogNotFound is returned when a catalog entry id does not
	// resolve or the entry is inactive.
	ErrCatalogNotFound = errors.New("catalog entry not found")

	// ErrNoAvailableUnit is returned when allocation finds nothing free
	// for the requested window.
	ErrNoAvailableUnit = errors.New("no available unit for the requested dates")

	// ErrUnitNotFound is returned for unknown serialized unit ids.
	ErrUnitNotFound = errors.New("inventory unit not found")

	// ErrBookingNotFound is returned for unknown booking ids.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrConcurrentModification signals a lost optimistic-version race.
	// The caller decides whether to retry; the engine never does.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)
