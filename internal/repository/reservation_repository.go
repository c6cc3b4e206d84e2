package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/friendlyi/reservation-backend/internal/model"
)

// ReservationRepo provides CRUD for reservations. Mutations run
// through a version check so lost updates surface as ErrConflict.
// All timestamp fields are stored in UTC.
type ReservationRepo struct{ DB *sql.DB }

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationCols = "id, creator_member_id, title, description, location_id, max_capacity, reservation_date, reservation_time, version, created_at, updated_at"

// mapLockErr converts a MySQL lock wait timeout (1205) or deadlock
// (1213) into ErrConflict so callers can apply the single-retry rule.
func mapLockErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "1205") || strings.Contains(msg, "1213") {
		return ErrConflict
	}
	return err
}

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var (
		r    model.Reservation
		desc sql.NullString
	)
	err := row.Scan(&r.ID, &r.CreatorMemberID, &r.Title, &desc, &r.LocationID,
		&r.MaxCapacity, &r.ReservationDate, &r.ReservationTime, &r.Version,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if desc.Valid {
		v := desc.String
		r.Description = &v
	}
	return r, nil
}

// CreateTx inserts a reservation within an existing transaction and
// populates the generated ID and version. The caller commits or rolls
// back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (creator_member_id, title, description, location_id, max_capacity, reservation_date, reservation_time, version)
		 VALUES (?,?,?,?,?,?,?,1)`,
		res.CreatorMemberID, res.Title, res.Description, res.LocationID,
		res.MaxCapacity, res.ReservationDate.Format("2006-01-02"), res.ReservationTime)
	if err != nil {
		return mapLockErr(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Version = 1
	return nil
}

// FindByID fetches a reservation by id.
func (r *ReservationRepo) FindByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=? LIMIT 1", id)
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return res, ErrReservationNotFound
	}
	return res, err
}

// LockByIDTx loads the reservation row under an exclusive lock. Every
// capacity decision reads the confirmed count only after this lock is
// held; it is what serialises apply/cancel/set-status per reservation.
func (r *ReservationRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=? FOR UPDATE", id)
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return res, ErrReservationNotFound
	}
	return res, mapLockErr(err)
}

// FindAllOrderByDate returns all reservations, soonest first.
func (r *ReservationRepo) FindAllOrderByDate(ctx context.Context) ([]model.Reservation, error) {
	return r.queryReservations(ctx,
		"SELECT "+reservationCols+" FROM reservations ORDER BY reservation_date, reservation_time, id")
}

// FindByDate returns reservations on the given date.
func (r *ReservationRepo) FindByDate(ctx context.Context, date time.Time) ([]model.Reservation, error) {
	return r.queryReservations(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE reservation_date=? ORDER BY reservation_time, id",
		date.Format("2006-01-02"))
}

// FindFuture returns reservations dated strictly after today.
func (r *ReservationRepo) FindFuture(ctx context.Context) ([]model.Reservation, error) {
	return r.queryReservations(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE reservation_date > CURDATE() ORDER BY reservation_date, reservation_time, id")
}

// FindAvailable returns reservations whose confirmed count is below
// capacity. The count is computed in SQL; loading applications into
// memory for this decision is forbidden.
func (r *ReservationRepo) FindAvailable(ctx context.Context) ([]model.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT r.id, r.creator_member_id, r.title, r.description, r.location_id, r.max_capacity, r.reservation_date, r.reservation_time, r.version, r.created_at, r.updated_at
		 FROM reservations r
		 LEFT JOIN (
		   SELECT reservation_id, COUNT(*) AS confirmed
		   FROM reservation_applications
		   WHERE status = 'CONFIRMED'
		   GROUP BY reservation_id
		 ) a ON a.reservation_id = r.id
		 WHERE COALESCE(a.confirmed, 0) < r.max_capacity
		 ORDER BY r.reservation_date, r.reservation_time, r.id`)
}

// UpdateTx overwrites the reservation fields, guarded by the version
// observed at read. A version mismatch surfaces as ErrConflict.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation, observedVersion uint64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE reservations
		 SET title=?, description=?, location_id=?, max_capacity=?, reservation_date=?, reservation_time=?, version=version+1
		 WHERE id=? AND version=?`,
		res.Title, res.Description, res.LocationID, res.MaxCapacity,
		res.ReservationDate.Format("2006-01-02"), res.ReservationTime,
		res.ID, observedVersion)
	if err != nil {
		return mapLockErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var c int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations WHERE id=?", res.ID).Scan(&c); err != nil {
			return err
		}
		if c == 0 {
			return ErrReservationNotFound
		}
		return ErrConflict
	}
	res.Version = observedVersion + 1
	return nil
}

// DeleteTx removes a reservation, guarded by the observed version.
// Applications cascade at the schema level.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id, observedVersion uint64) error {
	result, err := tx.ExecContext(ctx,
		"DELETE FROM reservations WHERE id=? AND version=?", id, observedVersion)
	if err != nil {
		return mapLockErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var c int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations WHERE id=?", id).Scan(&c); err != nil {
			return err
		}
		if c == 0 {
			return ErrReservationNotFound
		}
		return ErrConflict
	}
	return nil
}

func (r *ReservationRepo) queryReservations(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
