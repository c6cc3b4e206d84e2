package service

import (
	"context"
	"database/sql"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
)

// MySQLEngineStore implements EngineStore on the MySQL repositories.
// Each WithReservationLock call is one transaction: the reservation
// row is read FOR UPDATE first, then fn runs against the transactional
// view, then commit. A non-nil error from fn rolls everything back.
type MySQLEngineStore struct {
	db           *sql.DB
	members      *repository.MemberRepo
	reservations *repository.ReservationRepo
	applications *repository.ApplicationRepo
}

// NewMySQLEngineStore wires the store over the shared repositories.
func NewMySQLEngineStore(db *sql.DB, members *repository.MemberRepo, reservations *repository.ReservationRepo, applications *repository.ApplicationRepo) *MySQLEngineStore {
	return &MySQLEngineStore{db: db, members: members, reservations: reservations, applications: applications}
}

// FindMember loads a member outside any transaction.
func (s *MySQLEngineStore) FindMember(ctx context.Context, id uint64) (model.Member, error) {
	return s.members.FindByID(ctx, id)
}

// FindApplication loads an application outside any transaction.
func (s *MySQLEngineStore) FindApplication(ctx context.Context, id uint64) (model.Application, error) {
	return s.applications.FindByID(ctx, id)
}

// WithReservationLock runs fn inside a transaction holding the
// exclusive row lock on the reservation.
func (s *MySQLEngineStore) WithReservationLock(ctx context.Context, reservationID uint64, fn func(tx EngineTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.reservations.LockByIDTx(ctx, tx, reservationID)
	if err != nil {
		return err
	}
	view := &mysqlEngineTx{tx: tx, reservation: res, applications: s.applications}
	if err := fn(view); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// mysqlEngineTx is the transactional view handed to the engine.
type mysqlEngineTx struct {
	tx           *sql.Tx
	reservation  model.Reservation
	applications *repository.ApplicationRepo
}

func (t *mysqlEngineTx) Reservation() model.Reservation { return t.reservation }

func (t *mysqlEngineTx) ApplicationByMember(ctx context.Context, memberID uint64) (model.Application, error) {
	return t.applications.FindByMemberAndReservationTx(ctx, t.tx, memberID, t.reservation.ID)
}

func (t *mysqlEngineTx) ApplicationByID(ctx context.Context, id uint64) (model.Application, error) {
	a, err := t.applications.FindByIDTx(ctx, t.tx, id)
	if err != nil {
		return a, err
	}
	if a.ReservationID != t.reservation.ID {
		return model.Application{}, repository.ErrApplicationNotFound
	}
	return a, nil
}

func (t *mysqlEngineTx) ConfirmedCount(ctx context.Context) (int, error) {
	return t.applications.CountByStatusTx(ctx, t.tx, t.reservation.ID, model.StatusConfirmed)
}

func (t *mysqlEngineTx) WaitingInOrder(ctx context.Context) ([]model.Application, error) {
	return t.applications.WaitingInOrderTx(ctx, t.tx, t.reservation.ID)
}

func (t *mysqlEngineTx) CreateApplication(ctx context.Context, a *model.Application) error {
	return t.applications.CreateTx(ctx, t.tx, a)
}

func (t *mysqlEngineTx) UpdateApplication(ctx context.Context, a *model.Application, observedVersion uint64) error {
	return t.applications.UpdateStatusTx(ctx, t.tx, a, observedVersion)
}
