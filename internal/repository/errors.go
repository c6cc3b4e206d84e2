// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between failure scenarios and map
// them onto the HTTP error envelope. For example, ErrConflict signals
// an optimistic version mismatch or lock timeout and is translated
// into a 409 response.
package repository

import "errors"

// ErrMemberNotFound is returned when a member id or login id does not
// resolve to a row.
var ErrMemberNotFound = errors.New("member not found")

// ErrReservationNotFound is returned when a reservation id does not
// resolve to a row.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrApplicationNotFound is returned when an application id does not
// resolve to a row.
var ErrApplicationNotFound = errors.New("application not found")

// ErrLocationNotFound is returned when a location id does not resolve
// to a row.
var ErrLocationNotFound = errors.New("location not found")

// ErrLoginIDExists is returned when creating a member whose login id
// is already taken.
var ErrLoginIDExists = errors.New("login id already exists")

// ErrLocationNameExists is returned when creating a location whose
// name collides case-insensitively with an existing one.
var ErrLocationNameExists = errors.New("location name already exists")

// ErrLocationInUse is returned when deactivating a location that still
// has current-or-future reservations.
var ErrLocationInUse = errors.New("location has current or future reservations")

// ErrDuplicateApplication is returned when a member already holds an
// active (CONFIRMED or WAITING) application for the reservation.
var ErrDuplicateApplication = errors.New("active application already exists")

// ErrAlreadyCancelled is returned when cancelling an application that
// is already CANCELLED.
var ErrAlreadyCancelled = errors.New("application already cancelled")

// ErrCapacityExceeded is returned when an administrator status change
// would push the confirmed count above the reservation capacity.
var ErrCapacityExceeded = errors.New("reservation capacity exceeded")

// ErrConflict is returned on an optimistic version mismatch or a lock
// wait timeout. Callers retry at most once before surfacing it.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller is neither the creator of
// the resource nor an administrator. Handlers translate this into a
// 403 response.
var ErrForbidden = errors.New("forbidden")
