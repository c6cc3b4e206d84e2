package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// memStore is an in-memory EngineStore. It mirrors the transactional
// behavior of the MySQL store: one mutex per reservation serializes
// engine transactions, and a failed callback restores the application
// snapshot taken at transaction start.
type memStore struct {
	mu           sync.Mutex
	members      map[uint64]model.Member
	reservations map[uint64]model.Reservation
	apps         map[uint64]model.Application
	nextID       uint64
	tick         int64
	resLocks     map[uint64]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		members:      map[uint64]model.Member{},
		reservations: map[uint64]model.Reservation{},
		apps:         map[uint64]model.Application{},
		resLocks:     map[uint64]*sync.Mutex{},
	}
}

func (s *memStore) addMember(id uint64) {
	s.members[id] = model.Member{ID: id, LoginID: fmt.Sprintf("member_%d", id), Grade: model.GradeEgg}
}

func (s *memStore) addReservation(id uint64, capacity int) {
	s.reservations[id] = model.Reservation{ID: id, MaxCapacity: capacity, Version: 1}
	s.resLocks[id] = &sync.Mutex{}
}

func (s *memStore) FindMember(_ context.Context, id uint64) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, repository.ErrMemberNotFound
	}
	return m, nil
}

func (s *memStore) FindApplication(_ context.Context, id uint64) (model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return model.Application{}, repository.ErrApplicationNotFound
	}
	return a, nil
}

func (s *memStore) WithReservationLock(_ context.Context, reservationID uint64, fn func(tx EngineTx) error) error {
	s.mu.Lock()
	lock, ok := s.resLocks[reservationID]
	s.mu.Unlock()
	if !ok {
		return repository.ErrReservationNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	res := s.reservations[reservationID]
	snapshot := make(map[uint64]model.Application, len(s.apps))
	for k, v := range s.apps {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := fn(&memTx{store: s, reservation: res}); err != nil {
		s.mu.Lock()
		s.apps = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type memTx struct {
	store       *memStore
	reservation model.Reservation
}

func (t *memTx) Reservation() model.Reservation { return t.reservation }

func (t *memTx) ApplicationByMember(_ context.Context, memberID uint64) (model.Application, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, a := range t.store.apps {
		if a.MemberID == memberID && a.ReservationID == t.reservation.ID {
			return a, nil
		}
	}
	return model.Application{}, repository.ErrApplicationNotFound
}

func (t *memTx) ApplicationByID(_ context.Context, id uint64) (model.Application, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	a, ok := t.store.apps[id]
	if !ok || a.ReservationID != t.reservation.ID {
		return model.Application{}, repository.ErrApplicationNotFound
	}
	return a, nil
}

func (t *memTx) ConfirmedCount(_ context.Context) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	n := 0
	for _, a := range t.store.apps {
		if a.ReservationID == t.reservation.ID && a.Status == model.StatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (t *memTx) WaitingInOrder(_ context.Context) ([]model.Application, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := make([]model.Application, 0)
	for _, a := range t.store.apps {
		if a.ReservationID == t.reservation.ID && a.Status == model.StatusWaiting {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].AppliedAt.Before(out[j].AppliedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) CreateApplication(_ context.Context, a *model.Application) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, e := range t.store.apps {
		if e.MemberID == a.MemberID && e.ReservationID == a.ReservationID {
			return repository.ErrDuplicateApplication
		}
	}
	t.store.nextID++
	t.store.tick++
	a.ID = t.store.nextID
	a.AppliedAt = time.Unix(0, t.store.tick)
	a.UpdatedAt = a.AppliedAt
	a.Version = 1
	t.store.apps[a.ID] = *a
	return nil
}

func (t *memTx) UpdateApplication(_ context.Context, a *model.Application, observedVersion uint64) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	cur, ok := t.store.apps[a.ID]
	if !ok {
		return repository.ErrApplicationNotFound
	}
	if cur.Version != observedVersion {
		return repository.ErrConflict
	}
	cur.Status = a.Status
	cur.Note = a.Note
	cur.Version++
	cur.UpdatedAt = time.Now()
	t.store.apps[a.ID] = cur
	a.Version = cur.Version
	a.AppliedAt = cur.AppliedAt
	return nil
}

func (s *memStore) statusOf(t *testing.T, memberID, reservationID uint64) model.ApplicationStatus {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.apps {
		if a.MemberID == memberID && a.ReservationID == reservationID {
			return a.Status
		}
	}
	t.Fatalf("no application for member %d", memberID)
	return ""
}

// checkInvariants asserts the capacity bound and that waiters only
// exist while the reservation is full.
func (s *memStore) checkInvariants(t *testing.T, reservationID uint64) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.reservations[reservationID]
	confirmed, waiting := 0, 0
	for _, a := range s.apps {
		if a.ReservationID != reservationID {
			continue
		}
		switch a.Status {
		case model.StatusConfirmed:
			confirmed++
		case model.StatusWaiting:
			waiting++
		}
	}
	require.LessOrEqual(t, confirmed, res.MaxCapacity, "confirmed count exceeds capacity")
	if waiting > 0 {
		require.Equal(t, res.MaxCapacity, confirmed, "waiters exist while slots are free")
	}
}

func newTestEngine(store *memStore) *ApplicationEngine {
	return NewApplicationEngine(store, nil, nil)
}

func cc() utils.CallContext { return utils.NewCallContext() }

func TestApplyFillsThenWaitlists(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 2)
	for id := uint64(1); id <= 3; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	a1, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, a1.Status)

	a2, err := eng.Apply(ctx, cc(), 2, 1, "first come")
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, a2.Status)
	require.NotNil(t, a2.Note)

	a3, err := eng.Apply(ctx, cc(), 3, 1, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusWaiting, a3.Status)

	store.checkInvariants(t, 1)
}

func TestApplyUnknownMemberAndReservation(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	store.addMember(1)
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Apply(ctx, cc(), 99, 1, "")
	require.ErrorIs(t, err, repository.ErrMemberNotFound)

	_, err = eng.Apply(ctx, cc(), 1, 99, "")
	require.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestDuplicateApplyRejected(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 5)
	store.addMember(1)
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cc(), 1, 1, "")
	require.ErrorIs(t, err, repository.ErrDuplicateApplication)
}

func TestCancelConfirmedPromotesOldestWaiter(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	for id := uint64(1); id <= 3; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	a1, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cc(), 2, 1, "")
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cc(), 3, 1, "")
	require.NoError(t, err)

	require.NoError(t, eng.Cancel(ctx, cc(), a1.ID))

	require.Equal(t, model.StatusCancelled, store.statusOf(t, 1, 1))
	require.Equal(t, model.StatusConfirmed, store.statusOf(t, 2, 1), "oldest waiter should be promoted")
	require.Equal(t, model.StatusWaiting, store.statusOf(t, 3, 1))
	store.checkInvariants(t, 1)
}

func TestCancelWaitingDoesNotPromote(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	for id := uint64(1); id <= 3; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	a2, err := eng.Apply(ctx, cc(), 2, 1, "")
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cc(), 3, 1, "")
	require.NoError(t, err)

	require.NoError(t, eng.Cancel(ctx, cc(), a2.ID))

	require.Equal(t, model.StatusConfirmed, store.statusOf(t, 1, 1))
	require.Equal(t, model.StatusWaiting, store.statusOf(t, 3, 1))
	store.checkInvariants(t, 1)
}

func TestCancelTwiceRejected(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	store.addMember(1)
	eng := newTestEngine(store)
	ctx := context.Background()

	a, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	require.NoError(t, eng.Cancel(ctx, cc(), a.ID))
	require.ErrorIs(t, eng.Cancel(ctx, cc(), a.ID), repository.ErrAlreadyCancelled)
}

func TestReapplyKeepsOriginalQueuePosition(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	for id := uint64(1); id <= 3; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	a1, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	a2, err := eng.Apply(ctx, cc(), 2, 1, "")
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cc(), 3, 1, "")
	require.NoError(t, err)

	// Member 2 leaves the queue and comes back: the row is reused and
	// applied_at survives, so member 2 still precedes member 3.
	require.NoError(t, eng.Cancel(ctx, cc(), a2.ID))
	back, err := eng.Apply(ctx, cc(), 2, 1, "back again")
	require.NoError(t, err)
	require.Equal(t, a2.ID, back.ID, "re-activation must reuse the row")
	require.Equal(t, model.StatusWaiting, back.Status)
	require.True(t, back.AppliedAt.Equal(a2.AppliedAt), "applied_at must survive re-activation")

	require.NoError(t, eng.Cancel(ctx, cc(), a1.ID))
	require.Equal(t, model.StatusConfirmed, store.statusOf(t, 2, 1))
	require.Equal(t, model.StatusWaiting, store.statusOf(t, 3, 1))
	store.checkInvariants(t, 1)
}

func TestSetStatusConfirmOverCapacityRollsBack(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	for id := uint64(1); id <= 2; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	a2, err := eng.Apply(ctx, cc(), 2, 1, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusWaiting, a2.Status)

	_, err = eng.SetStatus(ctx, cc(), a2.ID, model.StatusConfirmed)
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)

	// The write must have been rolled back.
	require.Equal(t, model.StatusWaiting, store.statusOf(t, 2, 1))
	store.checkInvariants(t, 1)
}

func TestSetStatusCancelPromotes(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	for id := uint64(1); id <= 2; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	a1, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cc(), 2, 1, "")
	require.NoError(t, err)

	out, err := eng.SetStatus(ctx, cc(), a1.ID, model.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, out.Status)
	require.Equal(t, model.StatusConfirmed, store.statusOf(t, 2, 1))
	store.checkInvariants(t, 1)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	store.addMember(1)
	eng := newTestEngine(store)
	ctx := context.Background()

	a, err := eng.Apply(ctx, cc(), 1, 1, "")
	require.NoError(t, err)
	_, err = eng.SetStatus(ctx, cc(), a.ID, model.ApplicationStatus("BOGUS"))
	require.Error(t, err)
}

func TestPromoteAfterCapacityIncrease(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 1)
	for id := uint64(1); id <= 4; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	for id := uint64(1); id <= 4; id++ {
		_, err := eng.Apply(ctx, cc(), id, 1, "")
		require.NoError(t, err)
	}

	store.mu.Lock()
	res := store.reservations[1]
	res.MaxCapacity = 3
	store.reservations[1] = res
	store.mu.Unlock()

	require.NoError(t, eng.Promote(ctx, 1))

	require.Equal(t, model.StatusConfirmed, store.statusOf(t, 1, 1))
	require.Equal(t, model.StatusConfirmed, store.statusOf(t, 2, 1))
	require.Equal(t, model.StatusConfirmed, store.statusOf(t, 3, 1))
	require.Equal(t, model.StatusWaiting, store.statusOf(t, 4, 1))
	store.checkInvariants(t, 1)
}

func TestConcurrentAppliesNeverOverbook(t *testing.T) {
	const members = 20
	const capacity = 5

	store := newMemStore()
	store.addReservation(1, capacity)
	for id := uint64(1); id <= members; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)

	var wg sync.WaitGroup
	for id := uint64(1); id <= members; id++ {
		wg.Add(1)
		go func(memberID uint64) {
			defer wg.Done()
			_, err := eng.Apply(context.Background(), cc(), memberID, 1, "")
			require.NoError(t, err)
		}(id)
	}
	wg.Wait()

	confirmed, waiting := 0, 0
	store.mu.Lock()
	for _, a := range store.apps {
		switch a.Status {
		case model.StatusConfirmed:
			confirmed++
		case model.StatusWaiting:
			waiting++
		}
	}
	store.mu.Unlock()

	require.Equal(t, capacity, confirmed)
	require.Equal(t, members-capacity, waiting)
	store.checkInvariants(t, 1)
}

func TestConcurrentCancelAndApply(t *testing.T) {
	store := newMemStore()
	store.addReservation(1, 2)
	for id := uint64(1); id <= 6; id++ {
		store.addMember(id)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	first := make([]model.Application, 0, 4)
	for id := uint64(1); id <= 4; id++ {
		a, err := eng.Apply(ctx, cc(), id, 1, "")
		require.NoError(t, err)
		first = append(first, a)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = eng.Cancel(ctx, cc(), first[0].ID)
	}()
	go func() {
		defer wg.Done()
		_, _ = eng.Apply(ctx, cc(), 5, 1, "")
	}()
	go func() {
		defer wg.Done()
		_, _ = eng.Apply(ctx, cc(), 6, 1, "")
	}()
	wg.Wait()

	store.checkInvariants(t, 1)
}
