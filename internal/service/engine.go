// Package service contains the business layer: the capacity & waitlist
// engine, reservation lifecycle, member/location services and the
// asynchronous activity logger. Handlers call into this package; all
// persistence goes through internal/repository.
package service

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// EngineTx is the transactional view the engine works against. All
// methods operate on the single reservation whose row lock the
// surrounding transaction holds, so confirmed-count reads and status
// writes cannot interleave with another request on the same
// reservation.
type EngineTx interface {
	// Reservation returns the locked reservation row.
	Reservation() model.Reservation
	// ApplicationByMember returns the unique application row of the
	// given member for the locked reservation, or
	// repository.ErrApplicationNotFound.
	ApplicationByMember(ctx context.Context, memberID uint64) (model.Application, error)
	// ApplicationByID returns an application of the locked reservation
	// by id.
	ApplicationByID(ctx context.Context, id uint64) (model.Application, error)
	// ConfirmedCount counts CONFIRMED applications for the locked
	// reservation.
	ConfirmedCount(ctx context.Context) (int, error)
	// WaitingInOrder returns WAITING applications in FIFO order
	// (applied_at asc, id asc).
	WaitingInOrder(ctx context.Context) ([]model.Application, error)
	// CreateApplication inserts a new application row.
	CreateApplication(ctx context.Context, a *model.Application) error
	// UpdateApplication writes status/note guarded by the observed
	// version.
	UpdateApplication(ctx context.Context, a *model.Application, observedVersion uint64) error
}

// EngineStore is the persistence seam of the engine. The MySQL
// implementation lives in store_mysql.go; tests provide an in-memory
// one.
type EngineStore interface {
	FindMember(ctx context.Context, id uint64) (model.Member, error)
	FindApplication(ctx context.Context, id uint64) (model.Application, error)
	// WithReservationLock opens a transaction, acquires an exclusive
	// lock on the reservation row, runs fn, and commits when fn
	// returns nil (rolls back otherwise). Returns
	// repository.ErrReservationNotFound when the id does not resolve.
	WithReservationLock(ctx context.Context, reservationID uint64, fn func(tx EngineTx) error) error
}

// ApplicationEngine decides CONFIRMED vs WAITING for every
// apply/cancel/status-change event. It is the only writer of
// application status. Invariants:
//
//	I1 – confirmed count never exceeds capacity.
//	I2 – waiters exist only while the reservation is full.
//	I3 – promotion follows applied_at asc, id asc.
//	I4 – one active application per (member, reservation).
type ApplicationEngine struct {
	store    EngineStore
	activity *ActivityLogger // optional, fire-and-forget
	events   EventPublisher  // optional, fire-and-forget
}

// NewApplicationEngine constructs the engine. activity and events may
// be nil; both are side channels the engine never depends on.
func NewApplicationEngine(store EngineStore, activity *ActivityLogger, events EventPublisher) *ApplicationEngine {
	if store == nil {
		panic("nil store passed to NewApplicationEngine")
	}
	return &ApplicationEngine{store: store, activity: activity, events: events}
}

// withConflictRetry runs fn and retries exactly once when it fails
// with ErrConflict (optimistic version mismatch or lock timeout). Any
// second failure is surfaced.
func withConflictRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, repository.ErrConflict) {
		err = fn()
	}
	return err
}

// Apply registers memberID for reservationID. When a cancelled row for
// the pair exists it is re-activated in place, keeping the original
// applied_at so the member's FIFO position is preserved from the first
// apply. The decided status is CONFIRMED while confirmed < capacity,
// WAITING otherwise; the count is read under the reservation lock.
func (e *ApplicationEngine) Apply(ctx context.Context, cc utils.CallContext, memberID, reservationID uint64, note string) (model.Application, error) {
	member, err := e.store.FindMember(ctx, memberID)
	if err != nil {
		return model.Application{}, err
	}

	var out model.Application
	err = withConflictRetry(func() error {
		return e.store.WithReservationLock(ctx, reservationID, func(tx EngineTx) error {
			existing, err := tx.ApplicationByMember(ctx, memberID)
			switch {
			case err == nil && existing.Status.Active():
				return repository.ErrDuplicateApplication
			case err == nil: // cancelled row: re-activate in place
				status, err := e.decideStatus(ctx, tx)
				if err != nil {
					return err
				}
				existing.Status = status
				if trimmed := strings.TrimSpace(note); trimmed != "" {
					existing.Note = &trimmed
				}
				if err := tx.UpdateApplication(ctx, &existing, existing.Version); err != nil {
					return err
				}
				out = existing
				return nil
			case errors.Is(err, repository.ErrApplicationNotFound):
				status, err := e.decideStatus(ctx, tx)
				if err != nil {
					return err
				}
				a := model.Application{
					MemberID:      memberID,
					ReservationID: reservationID,
					Status:        status,
				}
				if trimmed := strings.TrimSpace(note); trimmed != "" {
					a.Note = &trimmed
				}
				if err := tx.CreateApplication(ctx, &a); err != nil {
					return err
				}
				out = a
				return nil
			default:
				return err
			}
		})
	})
	if err != nil {
		return model.Application{}, err
	}

	e.record(cc, member, model.ActivityApplicationApply, "applied for reservation")
	if out.Status == model.StatusConfirmed {
		e.publishConfirmed(ctx, out)
	}
	return out, nil
}

// Cancel sets the application to CANCELLED. When a confirmed slot is
// freed the oldest waiter is promoted inside the same transaction.
func (e *ApplicationEngine) Cancel(ctx context.Context, cc utils.CallContext, applicationID uint64) error {
	a, err := e.store.FindApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if a.IsCancelled() {
		return repository.ErrAlreadyCancelled
	}

	var promoted []model.Application
	err = withConflictRetry(func() error {
		promoted = promoted[:0]
		return e.store.WithReservationLock(ctx, a.ReservationID, func(tx EngineTx) error {
			cur, err := tx.ApplicationByID(ctx, applicationID)
			if err != nil {
				return err
			}
			if cur.IsCancelled() {
				return repository.ErrAlreadyCancelled
			}
			wasConfirmed := cur.IsConfirmed()
			cur.Status = model.StatusCancelled
			if err := tx.UpdateApplication(ctx, &cur, cur.Version); err != nil {
				return err
			}
			if wasConfirmed {
				promoted, err = e.promote(ctx, tx)
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	e.recordByID(ctx, cc, a.MemberID, model.ActivityApplicationCancel, "cancelled application")
	for _, p := range promoted {
		e.publishConfirmed(ctx, p)
	}
	return nil
}

// SetStatus is the administrator override. Freeing transitions
// (CANCELLED, WAITING) trigger promotion; forcing CONFIRMED is
// rejected with ErrCapacityExceeded when it would break the capacity
// bound, and the transaction rolls back.
func (e *ApplicationEngine) SetStatus(ctx context.Context, cc utils.CallContext, applicationID uint64, newStatus model.ApplicationStatus) (model.Application, error) {
	if !newStatus.Valid() {
		return model.Application{}, &ValidationError{Fields: map[string]string{"status": "unknown status"}}
	}
	a, err := e.store.FindApplication(ctx, applicationID)
	if err != nil {
		return model.Application{}, err
	}

	var (
		out      model.Application
		promoted []model.Application
	)
	err = withConflictRetry(func() error {
		promoted = promoted[:0]
		return e.store.WithReservationLock(ctx, a.ReservationID, func(tx EngineTx) error {
			cur, err := tx.ApplicationByID(ctx, applicationID)
			if err != nil {
				return err
			}
			cur.Status = newStatus
			if err := tx.UpdateApplication(ctx, &cur, cur.Version); err != nil {
				return err
			}
			switch newStatus {
			case model.StatusCancelled, model.StatusWaiting:
				promoted, err = e.promote(ctx, tx)
				if err != nil {
					return err
				}
			case model.StatusConfirmed:
				count, err := tx.ConfirmedCount(ctx)
				if err != nil {
					return err
				}
				if count > tx.Reservation().MaxCapacity {
					return repository.ErrCapacityExceeded
				}
			}
			out = cur
			return nil
		})
	})
	if err != nil {
		return model.Application{}, err
	}

	e.recordByID(ctx, cc, a.MemberID, model.ActivityApplicationSet, "status set to "+string(newStatus))
	if out.Status == model.StatusConfirmed {
		e.publishConfirmed(ctx, out)
	}
	for _, p := range promoted {
		e.publishConfirmed(ctx, p)
	}
	return out, nil
}

// Promote fills freed slots from the waitlist for a reservation. The
// reservation lifecycle calls this after a capacity increase.
func (e *ApplicationEngine) Promote(ctx context.Context, reservationID uint64) error {
	return withConflictRetry(func() error {
		return e.store.WithReservationLock(ctx, reservationID, func(tx EngineTx) error {
			_, err := e.promote(ctx, tx)
			return err
		})
	})
}

// promote moves the oldest waiters into freed confirmed slots. Bounded
// by free slots, so I1 holds; any waiter left behind means confirmed
// equals capacity, so I2 holds.
func (e *ApplicationEngine) promote(ctx context.Context, tx EngineTx) ([]model.Application, error) {
	confirmed, err := tx.ConfirmedCount(ctx)
	if err != nil {
		return nil, err
	}
	free := tx.Reservation().MaxCapacity - confirmed
	if free <= 0 {
		return nil, nil
	}
	waiting, err := tx.WaitingInOrder(ctx)
	if err != nil {
		return nil, err
	}
	if len(waiting) < free {
		free = len(waiting)
	}
	promoted := make([]model.Application, 0, free)
	for i := 0; i < free; i++ {
		w := waiting[i]
		w.Status = model.StatusConfirmed
		if err := tx.UpdateApplication(ctx, &w, w.Version); err != nil {
			return nil, err
		}
		promoted = append(promoted, w)
	}
	return promoted, nil
}

// decideStatus reads the confirmed count under the held lock and picks
// CONFIRMED while a slot is free, WAITING otherwise.
func (e *ApplicationEngine) decideStatus(ctx context.Context, tx EngineTx) (model.ApplicationStatus, error) {
	count, err := tx.ConfirmedCount(ctx)
	if err != nil {
		return "", err
	}
	res := tx.Reservation()
	if res.IsFullyBooked(count) {
		return model.StatusWaiting, nil
	}
	return model.StatusConfirmed, nil
}

func (e *ApplicationEngine) record(cc utils.CallContext, m model.Member, t model.ActivityType, desc string) {
	if e.activity == nil {
		return
	}
	e.activity.Record(cc, m.ID, m.LoginID, t, desc)
}

func (e *ApplicationEngine) recordByID(ctx context.Context, cc utils.CallContext, memberID uint64, t model.ActivityType, desc string) {
	if e.activity == nil {
		return
	}
	loginID := ""
	if m, err := e.store.FindMember(ctx, memberID); err == nil {
		loginID = m.LoginID
	}
	e.activity.Record(cc, memberID, loginID, t, desc)
}

func (e *ApplicationEngine) publishConfirmed(ctx context.Context, a model.Application) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishApplicationConfirmed(ctx, a); err != nil {
		log.WithError(err).WithField("application_id", a.ID).
			Warn("failed to publish application.confirmed event")
	}
}
