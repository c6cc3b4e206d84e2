package model

import "time"

// Location mirrors the `locations` table. Every reservation points at
// exactly one location. Inactive locations cannot be attached to new
// reservations, and a location with a current-or-future reservation
// cannot be deactivated.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – place name, 2–100 chars, unique case-insensitively.
//  Address     – optional address, up to 500 chars.
//  Description – optional free text, up to 1000 chars.
//  URL         – required map link (naver.com / naver.me only).
//  IsActive    – whether the location may be used for new reservations.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Location struct {
	ID          uint64    // locations.id
	Name        string    // locations.name
	Address     *string   // locations.address (nullable)
	Description *string   // locations.description (nullable)
	URL         string    // locations.url
	IsActive    bool      // locations.is_active
	CreatedAt   time.Time // locations.created_at
	UpdatedAt   time.Time // locations.updated_at
}
