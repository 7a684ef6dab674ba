package domain

import "errors"

var (
	// ErrValidation marks input the caller can fix; wrap it with details.
	ErrValidation = errors.New("validation failed")

	ErrFlightNotFound    = errors.New("flight not found")
	ErrSoldOut           = errors.New("flight is fully booked")
	ErrBookingNotActive  = errors.New("active booking not found")
	ErrFlightNumberTaken = errors.New("flight number already exists")

	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLocatorExhausted means locator generation kept colliding with
	// existing bookings past the retry ceiling.
	ErrLocatorExhausted = errors.New("could not generate a unique locator")

	// ErrTxConflict is a deadlock, lock timeout or serialization failure.
	// The operation rolled back cleanly and may be resubmitted.
	ErrTxConflict = errors.New("transaction conflict, retry the request")
)
