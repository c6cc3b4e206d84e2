package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/friendlyi/reservation-backend/internal/model"
)

// ApplicationRepo provides persistence for reservation applications.
// The unique index on (member_id, reservation_id) guarantees at most
// one row per pair; status transitions always bump the version so
// concurrent writers that bypassed the reservation lock fail with
// ErrConflict instead of silently losing updates.
type ApplicationRepo struct{ DB *sql.DB }

// NewApplicationRepo returns an ApplicationRepo bound to the given database.
func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{DB: db} }

const applicationCols = "id, member_id, reservation_id, status, note, applied_at, updated_at, version"

func scanApplication(row interface{ Scan(...any) error }) (model.Application, error) {
	var (
		a      model.Application
		note   sql.NullString
		status string
	)
	err := row.Scan(&a.ID, &a.MemberID, &a.ReservationID, &status, &note,
		&a.AppliedAt, &a.UpdatedAt, &a.Version)
	if err != nil {
		return a, err
	}
	a.Status = model.ApplicationStatus(status)
	if note.Valid {
		v := note.String
		a.Note = &v
	}
	return a, nil
}

// CreateTx inserts a new application within a transaction. applied_at
// is set by the database at insert time and never changes afterwards;
// it is the FIFO ordering key. A duplicate (member, reservation) pair
// surfaces as ErrDuplicateApplication.
func (r *ApplicationRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Application) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservation_applications (member_id, reservation_id, status, note, applied_at, version)
		 VALUES (?,?,?,?,NOW(6),1)`,
		a.MemberID, a.ReservationID, string(a.Status), a.Note)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateApplication
		}
		return mapLockErr(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.Version = 1
	// Read back applied_at so callers see the authoritative value.
	return tx.QueryRowContext(ctx,
		"SELECT applied_at, updated_at FROM reservation_applications WHERE id=?",
		a.ID).Scan(&a.AppliedAt, &a.UpdatedAt)
}

// FindByID fetches an application by id.
func (r *ApplicationRepo) FindByID(ctx context.Context, id uint64) (model.Application, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+applicationCols+" FROM reservation_applications WHERE id=? LIMIT 1", id)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return a, ErrApplicationNotFound
	}
	return a, err
}

// FindByIDTx fetches an application by id inside a transaction, after
// the reservation lock is held.
func (r *ApplicationRepo) FindByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Application, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+applicationCols+" FROM reservation_applications WHERE id=? LIMIT 1", id)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return a, ErrApplicationNotFound
	}
	return a, mapLockErr(err)
}

// FindByMemberAndReservationTx looks up the unique (member,
// reservation) row inside a transaction. Returns
// ErrApplicationNotFound when no row exists.
func (r *ApplicationRepo) FindByMemberAndReservationTx(ctx context.Context, tx *sql.Tx, memberID, reservationID uint64) (model.Application, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+applicationCols+" FROM reservation_applications WHERE member_id=? AND reservation_id=? LIMIT 1",
		memberID, reservationID)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return a, ErrApplicationNotFound
	}
	return a, mapLockErr(err)
}

// CountByStatusTx counts applications of one status for a reservation
// inside a transaction. Capacity decisions must call this only after
// the reservation lock is held.
func (r *ApplicationRepo) CountByStatusTx(ctx context.Context, tx *sql.Tx, reservationID uint64, status model.ApplicationStatus) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservation_applications WHERE reservation_id=? AND status=?",
		reservationID, string(status)).Scan(&n)
	return n, mapLockErr(err)
}

// StatusCounts carries the confirmed/waiting tallies for one
// reservation in a batch aggregate.
type StatusCounts struct {
	Confirmed int
	Waiting   int
}

// CountByStatusBatch returns confirmed and waiting counts for a batch
// of reservation ids in a single aggregate query. Read projections use
// this to avoid N+1 count queries on list endpoints.
func (r *ApplicationRepo) CountByStatusBatch(ctx context.Context, reservationIDs []uint64) (map[uint64]StatusCounts, error) {
	out := make(map[uint64]StatusCounts, len(reservationIDs))
	if len(reservationIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(reservationIDs))
	args := make([]any, len(reservationIDs))
	for i, id := range reservationIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT reservation_id,
		        SUM(status = 'CONFIRMED') AS confirmed,
		        SUM(status = 'WAITING')   AS waiting
		 FROM reservation_applications
		 WHERE reservation_id IN (`+strings.Join(placeholders, ",")+`)
		 GROUP BY reservation_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id uint64
			c  StatusCounts
		)
		if err := rows.Scan(&id, &c.Confirmed, &c.Waiting); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}

// MemberStats aggregates one member's application history. Completed
// counts CONFIRMED applications whose reservation date has passed.
type MemberStats struct {
	Total     int
	Confirmed int
	Waiting   int
	Cancelled int
	Completed int
}

// StatsByMember tallies a member's applications in a single aggregate
// query over the applications joined with their reservations.
func (r *ApplicationRepo) StatsByMember(ctx context.Context, memberID uint64) (MemberStats, error) {
	var s MemberStats
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(a.status = 'CONFIRMED'), 0),
		        COALESCE(SUM(a.status = 'WAITING'), 0),
		        COALESCE(SUM(a.status = 'CANCELLED'), 0),
		        COALESCE(SUM(a.status = 'CONFIRMED' AND r.reservation_date < CURDATE()), 0)
		 FROM reservation_applications a
		 JOIN reservations r ON r.id = a.reservation_id
		 WHERE a.member_id = ?`, memberID).
		Scan(&s.Total, &s.Confirmed, &s.Waiting, &s.Cancelled, &s.Completed)
	return s, err
}

// WaitingInOrderTx returns the WAITING applications for a reservation
// in promotion order: applied_at ascending with id as the tie-break.
func (r *ApplicationRepo) WaitingInOrderTx(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]model.Application, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+applicationCols+` FROM reservation_applications
		 WHERE reservation_id=? AND status='WAITING'
		 ORDER BY applied_at, id`, reservationID)
	if err != nil {
		return nil, mapLockErr(err)
	}
	defer rows.Close()
	out := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatusTx writes a new status (and optionally a new note),
// bumping the version. applied_at is deliberately untouched so a
// re-activated application keeps its original FIFO position. A version
// mismatch surfaces as ErrConflict.
func (r *ApplicationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, a *model.Application, observedVersion uint64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE reservation_applications
		 SET status=?, note=?, version=version+1
		 WHERE id=? AND version=?`,
		string(a.Status), a.Note, a.ID, observedVersion)
	if err != nil {
		return mapLockErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var c int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservation_applications WHERE id=?", a.ID).Scan(&c); err != nil {
			return err
		}
		if c == 0 {
			return ErrApplicationNotFound
		}
		return ErrConflict
	}
	a.Version = observedVersion + 1
	return nil
}

// ListByMember returns all applications of a member ordered by
// applied_at ascending.
func (r *ApplicationRepo) ListByMember(ctx context.Context, memberID uint64) ([]model.Application, error) {
	return r.queryApplications(ctx,
		"SELECT "+applicationCols+" FROM reservation_applications WHERE member_id=? ORDER BY applied_at, id",
		memberID)
}

// ListByReservation returns all applications for a reservation ordered
// by applied_at ascending.
func (r *ApplicationRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Application, error) {
	return r.queryApplications(ctx,
		"SELECT "+applicationCols+" FROM reservation_applications WHERE reservation_id=? ORDER BY applied_at, id",
		reservationID)
}

func (r *ApplicationRepo) queryApplications(ctx context.Context, query string, args ...any) ([]model.Application, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
