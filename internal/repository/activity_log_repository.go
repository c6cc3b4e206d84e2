package repository

import (
	"context"
	"database/sql"

	"github.com/friendlyi/reservation-backend/internal/model"
)

// ActivityLogRepo persists activity log records. Writes come from the
// background log workers; reads serve the admin log endpoints.
type ActivityLogRepo struct{ DB *sql.DB }

// NewActivityLogRepo returns an ActivityLogRepo bound to the given database.
func NewActivityLogRepo(db *sql.DB) *ActivityLogRepo { return &ActivityLogRepo{DB: db} }

const activityCols = "id, member_id, member_login_id, activity_type, description, details, ip_address, user_agent, request_uri, http_method, created_at"

// Create inserts an activity log record.
func (r *ActivityLogRepo) Create(ctx context.Context, l *model.ActivityLog) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO activity_logs (member_id, member_login_id, activity_type, description, details, ip_address, user_agent, request_uri, http_method)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		l.MemberID, l.MemberLoginID, string(l.ActivityType), l.Description,
		l.Details, l.IPAddress, l.UserAgent, l.RequestURI, l.HTTPMethod)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// FindRecent returns one page of records, newest first.
func (r *ActivityLogRepo) FindRecent(ctx context.Context, offset, limit int) ([]model.ActivityLog, error) {
	return r.queryLogs(ctx,
		"SELECT "+activityCols+" FROM activity_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
}

// FindByMember returns a member's records, newest first.
func (r *ActivityLogRepo) FindByMember(ctx context.Context, memberID uint64, offset, limit int) ([]model.ActivityLog, error) {
	return r.queryLogs(ctx,
		"SELECT "+activityCols+" FROM activity_logs WHERE member_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		memberID, limit, offset)
}

// FindByType returns records of one activity type, newest first.
func (r *ActivityLogRepo) FindByType(ctx context.Context, t model.ActivityType, offset, limit int) ([]model.ActivityLog, error) {
	return r.queryLogs(ctx,
		"SELECT "+activityCols+" FROM activity_logs WHERE activity_type=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		string(t), limit, offset)
}

func (r *ActivityLogRepo) queryLogs(ctx context.Context, query string, args ...any) ([]model.ActivityLog, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ActivityLog, 0)
	for rows.Next() {
		var (
			l       model.ActivityLog
			details sql.NullString
			typ     string
		)
		if err := rows.Scan(&l.ID, &l.MemberID, &l.MemberLoginID, &typ, &l.Description,
			&details, &l.IPAddress, &l.UserAgent, &l.RequestURI, &l.HTTPMethod, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.ActivityType = model.ActivityType(typ)
		if details.Valid {
			v := details.String
			l.Details = &v
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
