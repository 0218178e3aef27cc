package charging

import "errors"

var (
	// ErrNilCharging is returned when operating on a nil aggregate.
	ErrNilCharging = errors.New("charging: nil aggregate")
	// ErrDeckNotFound is returned when a deck id is unknown.
	ErrDeckNotFound = errors.New("charging: deck not found")
	// ErrContentOutOfBounds is returned when embedded content exceeds
	// its deck's bounds beyond tolerance.
	ErrContentOutOfBounds = errors.New("charging: content outside deck bounds")
	// ErrNonPositiveDensity is returned when a mass-to-length
	// conversion would divide by a non-positive density.
	ErrNonPositiveDensity = errors.New("charging: non-positive density")
	// ErrNotFound is returned when a stored charging is missing.
	ErrNotFound = errors.New("charging: not found")
)
