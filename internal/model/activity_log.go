package model

import "time"

// ActivityType classifies an activity log record.
type ActivityType string

const (
	ActivityLogin              ActivityType = "LOGIN"
	ActivityLogout             ActivityType = "LOGOUT"
	ActivityMemberCreate       ActivityType = "MEMBER_CREATE"
	ActivityMemberUpdate       ActivityType = "MEMBER_UPDATE"
	ActivityMemberDelete       ActivityType = "MEMBER_DELETE"
	ActivityReservationCreate  ActivityType = "RESERVATION_CREATE"
	ActivityReservationUpdate  ActivityType = "RESERVATION_UPDATE"
	ActivityReservationDelete  ActivityType = "RESERVATION_DELETE"
	ActivityApplicationApply   ActivityType = "APPLICATION_APPLY"
	ActivityApplicationCancel  ActivityType = "APPLICATION_CANCEL"
	ActivityApplicationSet     ActivityType = "APPLICATION_STATUS_SET"
	ActivityLocationCreate     ActivityType = "LOCATION_CREATE"
	ActivityLocationUpdate     ActivityType = "LOCATION_UPDATE"
	ActivityLocationDeactivate ActivityType = "LOCATION_DEACTIVATE"
)

// ActivityLog mirrors the `activity_logs` table. Records are written
// asynchronously from a bounded queue and may be dropped under load;
// nothing in the request path depends on them.
type ActivityLog struct {
	ID            uint64       // activity_logs.id
	MemberID      uint64       // activity_logs.member_id
	MemberLoginID string       // activity_logs.member_login_id
	ActivityType  ActivityType // activity_logs.activity_type
	Description   string       // activity_logs.description
	Details       *string      // activity_logs.details (nullable)
	IPAddress     string       // activity_logs.ip_address
	UserAgent     string       // activity_logs.user_agent
	RequestURI    string       // activity_logs.request_uri
	HTTPMethod    string       // activity_logs.http_method
	CreatedAt     time.Time    // activity_logs.created_at
}
