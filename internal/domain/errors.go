package domain

import "errors"

// Validation errors: the caller's input is malformed and a retry with the
// same input can never succeed.
var (
	ErrInvalidSchedule = errors.New("invalid flight schedule")
	ErrInvalidSeat     = errors.New("invalid seat number")
)

// Conflict errors: a legitimate competing state won. Surfaced for a
// user-level decision (another seat, another hour), never retried internally.
var (
	ErrScheduleConflict    = errors.New("another flight occupies the same hour window")
	ErrDuplicateFlight     = errors.New("flight id already exists")
	ErrCapacityBelowDemand = errors.New("seats_total below active ticket count")
	ErrSeatTaken           = errors.New("seat is already occupied")
	ErrNoAvailability      = errors.New("no available seats for this flight")
	ErrAlreadyCancelled    = errors.New("ticket is already cancelled")
)

var (
	ErrFlightNotFound = errors.New("flight not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrCityNotFound   = errors.New("city not found")
)

var ErrForbidden = errors.New("not authorized to perform this action")
