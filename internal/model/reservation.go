package model

import "time"

// Reservation mirrors the `reservations` table. A reservation is a
// single event at one location on one date/time with a bounded number
// of confirmed attendees. Applications are loaded by explicit queries;
// the struct holds only id references.
//
// Fields:
//  ID              – primary key identifier.
//  CreatorMemberID – member who created the reservation; auto-confirmed
//                    and granted edit rights.
//  Title           – 2–100 chars, restricted character class.
//  Description     – optional free text, up to 1000 chars.
//  LocationID      – required location reference.
//  MaxCapacity     – maximum number of CONFIRMED applications.
//  ReservationDate – event date (not in the past at create/update).
//  ReservationTime – event time of day, "HH:MM:SS".
//  Version         – optimistic-concurrency counter.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type Reservation struct {
	ID              uint64    // reservations.id
	CreatorMemberID uint64    // reservations.creator_member_id
	Title           string    // reservations.title
	Description     *string   // reservations.description (nullable)
	LocationID      uint64    // reservations.location_id
	MaxCapacity     int       // reservations.max_capacity
	ReservationDate time.Time // reservations.reservation_date (date only)
	ReservationTime string    // reservations.reservation_time
	Version         uint64    // reservations.version
	CreatedAt       time.Time // reservations.created_at
	UpdatedAt       time.Time // reservations.updated_at
}

// IsFullyBooked reports whether the given confirmed count fills the
// capacity. The count must come from an aggregate query executed under
// the reservation lock; never from an in-memory collection.
func (r *Reservation) IsFullyBooked(confirmedCount int) bool {
	return confirmedCount >= r.MaxCapacity
}

// AvailableSlots returns the number of free confirmed slots given the
// current confirmed count, never negative.
func (r *Reservation) AvailableSlots(confirmedCount int) int {
	if n := r.MaxCapacity - confirmedCount; n > 0 {
		return n
	}
	return 0
}
