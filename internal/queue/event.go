// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// ApplicationConfirmedEvent is published whenever an application
// reaches CONFIRMED, whether on first apply, waitlist promotion or an
// administrator override. It carries enough for downstream consumers
// to log or notify without querying the primary database.
type ApplicationConfirmedEvent struct {
	ApplicationID uint64 `json:"application_id"`
	MemberID      uint64 `json:"member_id"`
	ReservationID uint64 `json:"reservation_id"`
	Status        string `json:"status"`
	AppliedAt     string `json:"applied_at"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// ApplicationQueueName is the durable queue the publisher and consumer
// agree on.
const ApplicationQueueName = "application.confirmed"
