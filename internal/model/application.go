package model

import "time"

// ApplicationStatus is the lifecycle state of a reservation
// application. CANCELLED is resurrectable: a later apply reuses the
// same row and recomputes CONFIRMED vs WAITING.
type ApplicationStatus string

const (
	StatusConfirmed ApplicationStatus = "CONFIRMED"
	StatusWaiting   ApplicationStatus = "WAITING"
	StatusCancelled ApplicationStatus = "CANCELLED"
)

// Valid reports whether s is one of the three known statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusWaiting, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the application currently occupies a slot or
// a waitlist position.
func (s ApplicationStatus) Active() bool {
	return s == StatusConfirmed || s == StatusWaiting
}

// ParseApplicationStatus converts a string into an ApplicationStatus,
// reporting whether the value is known.
func ParseApplicationStatus(v string) (ApplicationStatus, bool) {
	s := ApplicationStatus(v)
	return s, s.Valid()
}

// Application mirrors the `reservation_applications` table. At most
// one row exists per (member, reservation); the unique index enforces
// it. AppliedAt is set once at first apply and survives re-activation,
// which is what keeps the FIFO waitlist position stable.
//
// Fields:
//  ID            – primary key identifier.
//  MemberID      – applying member.
//  ReservationID – target reservation.
//  Status        – CONFIRMED, WAITING or CANCELLED.
//  Note          – optional note from the applicant.
//  AppliedAt     – set once at first create; FIFO ordering key.
//  UpdatedAt     – timestamp of last update.
//  Version       – optimistic-concurrency counter.
type Application struct {
	ID            uint64            // reservation_applications.id
	MemberID      uint64            // reservation_applications.member_id
	ReservationID uint64            // reservation_applications.reservation_id
	Status        ApplicationStatus // reservation_applications.status
	Note          *string           // reservation_applications.note (nullable)
	AppliedAt     time.Time         // reservation_applications.applied_at
	UpdatedAt     time.Time         // reservation_applications.updated_at
	Version       uint64            // reservation_applications.version
}

// IsConfirmed reports whether the application holds a confirmed slot.
func (a *Application) IsConfirmed() bool { return a.Status == StatusConfirmed }

// IsCancelled reports whether the application has been cancelled.
func (a *Application) IsCancelled() bool { return a.Status == StatusCancelled }
