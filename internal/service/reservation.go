package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// MemberSummary is the compact member shape embedded in views.
type MemberSummary struct {
	ID               uint64 `json:"id"`
	Name             string `json:"name"`
	GradeEmoji       string `json:"grade_emoji"`
	GradeDescription string `json:"grade_description"`
}

// LocationSummary is the compact location shape embedded in views.
type LocationSummary struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Address  *string `json:"address,omitempty"`
	URL      string  `json:"url"`
	IsActive bool    `json:"is_active"`
}

// ReservationView is the assembled read projection of one reservation.
// Counts come from a single aggregate query, never from loading the
// application rows.
type ReservationView struct {
	ID              uint64          `json:"id"`
	Title           string          `json:"title"`
	Description     *string         `json:"description,omitempty"`
	Location        LocationSummary `json:"location"`
	MaxCapacity     int             `json:"max_capacity"`
	ReservationDate string          `json:"reservation_date"`
	ReservationTime string          `json:"reservation_time"`
	Creator         MemberSummary   `json:"creator"`
	ConfirmedCount  int             `json:"confirmed_count"`
	WaitingCount    int             `json:"waiting_count"`
	AvailableSlots  int             `json:"available_slots"`
	IsFullyBooked   bool            `json:"is_fully_booked"`
	Version         uint64          `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ApplicantView is one row of a reservation's applicant list.
type ApplicantView struct {
	ApplicationID uint64        `json:"application_id"`
	Member        MemberSummary `json:"member"`
	Status        string        `json:"status"`
	Note          *string       `json:"note,omitempty"`
	AppliedAt     time.Time     `json:"applied_at"`
	IsCreator     bool          `json:"is_creator"`
}

// LocationInput is one element of the create/update request's location
// list. The data model pins one location per reservation; only the
// first element is used, the rest are ignored.
type LocationInput struct {
	Name        string  `json:"name"`
	Address     *string `json:"address,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         string  `json:"url"`
}

// ReservationInput carries the fields of a create or update request.
type ReservationInput struct {
	Title           string          `json:"title"`
	Description     *string         `json:"description,omitempty"`
	Locations       []LocationInput `json:"locations"`
	MaxCapacity     int             `json:"max_capacity"`
	ReservationDate string          `json:"reservation_date"` // yyyy-MM-dd
	ReservationTime string          `json:"reservation_time"` // HH:MM or HH:MM:SS
}

// ReservationService implements the reservation lifecycle (create with
// creator auto-apply, guarded update/delete) and the read projections.
type ReservationService struct {
	db           *sql.DB
	members      *repository.MemberRepo
	locations    *repository.LocationRepo
	reservations *repository.ReservationRepo
	applications *repository.ApplicationRepo
	engine       *ApplicationEngine
	activity     *ActivityLogger
}

// NewReservationService wires the lifecycle over the repositories and
// the engine (used for promotion after capacity growth).
func NewReservationService(db *sql.DB, members *repository.MemberRepo, locations *repository.LocationRepo,
	reservations *repository.ReservationRepo, applications *repository.ApplicationRepo,
	engine *ApplicationEngine, activity *ActivityLogger) *ReservationService {
	return &ReservationService{
		db:           db,
		members:      members,
		locations:    locations,
		reservations: reservations,
		applications: applications,
		engine:       engine,
		activity:     activity,
	}
}

// validate runs the belt-and-braces checks shared by create and
// update. The handler already validated shapes; the date and capacity
// rules are re-checked here because they guard invariants.
func (s *ReservationService) validate(in ReservationInput, now time.Time) (time.Time, string, error) {
	verr := newValidationError()
	if !ValidTitle(in.Title) {
		verr.add("title", "title must be 2-100 characters without special characters")
	}
	if in.Description != nil && len([]rune(*in.Description)) > 1000 {
		verr.add("description", "description must not exceed 1000 characters")
	}
	if in.MaxCapacity < 1 || in.MaxCapacity > 1000 {
		verr.add("max_capacity", "capacity must be between 1 and 1000")
	}
	if len(in.Locations) == 0 {
		verr.add("locations", "at least one location is required")
	} else {
		loc := in.Locations[0]
		if n := len([]rune(loc.Name)); n < 2 || n > 100 {
			verr.add("locations[0].name", "location name must be 2-100 characters")
		}
		if loc.Address != nil && len([]rune(*loc.Address)) > 500 {
			verr.add("locations[0].address", "address must not exceed 500 characters")
		}
		if !ValidLocationURL(loc.URL) {
			verr.add("locations[0].url", "only naver.com or naver.me URLs are allowed")
		}
	}
	date, err := time.Parse("2006-01-02", in.ReservationDate)
	if err != nil {
		verr.add("reservation_date", "date must be yyyy-MM-dd")
	} else if dateInPast(date, now) {
		verr.add("reservation_date", "date must not be in the past")
	}
	timeOfDay := in.ReservationTime
	if _, err := time.Parse("15:04:05", timeOfDay); err != nil {
		if _, err := time.Parse("15:04", timeOfDay); err != nil {
			verr.add("reservation_time", "time must be HH:MM or HH:MM:SS")
		} else {
			timeOfDay += ":00"
		}
	}
	if err := verr.orNil(); err != nil {
		return time.Time{}, "", err
	}
	return date, timeOfDay, nil
}

// resolveLocation finds the location matching the case-insensitive
// (name, address) pair or creates it. Inactive locations are rejected
// for new reservations.
func (s *ReservationService) resolveLocation(ctx context.Context, in LocationInput) (model.Location, error) {
	loc, err := s.locations.FindByNameAndAddress(ctx, in.Name, in.Address)
	if err == nil {
		if !loc.IsActive {
			return model.Location{}, &ValidationError{Fields: map[string]string{
				"locations[0].name": "location is inactive",
			}}
		}
		return loc, nil
	}
	if !errors.Is(err, repository.ErrLocationNotFound) {
		return model.Location{}, err
	}
	loc = model.Location{
		Name:        strings.TrimSpace(in.Name),
		Address:     in.Address,
		Description: in.Description,
		URL:         in.URL,
		IsActive:    true,
	}
	if err := s.locations.Create(ctx, &loc); err != nil {
		return model.Location{}, err
	}
	return loc, nil
}

// Create persists a new reservation and auto-applies the creator as
// CONFIRMED in the same transaction. maxCapacity >= 1 is enforced, so
// the creator's application always lands on the first free slot.
func (s *ReservationService) Create(ctx context.Context, cc utils.CallContext, creatorID uint64, in ReservationInput) (ReservationView, error) {
	creator, err := s.members.FindByID(ctx, creatorID)
	if err != nil {
		return ReservationView{}, err
	}
	date, timeOfDay, err := s.validate(in, time.Now().UTC())
	if err != nil {
		return ReservationView{}, err
	}
	loc, err := s.resolveLocation(ctx, in.Locations[0])
	if err != nil {
		return ReservationView{}, err
	}

	res := model.Reservation{
		CreatorMemberID: creatorID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		LocationID:      loc.ID,
		MaxCapacity:     in.MaxCapacity,
		ReservationDate: date,
		ReservationTime: timeOfDay,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReservationView{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.reservations.CreateTx(ctx, tx, &res); err != nil {
		return ReservationView{}, err
	}
	// Creator auto-apply: first slot is always free on a fresh
	// reservation, so the status is CONFIRMED by construction.
	app := model.Application{
		MemberID:      creatorID,
		ReservationID: res.ID,
		Status:        model.StatusConfirmed,
	}
	if err := s.applications.CreateTx(ctx, tx, &app); err != nil {
		return ReservationView{}, err
	}
	if err := tx.Commit(); err != nil {
		return ReservationView{}, err
	}
	committed = true

	if s.activity != nil {
		s.activity.Record(cc, creator.ID, creator.LoginID, model.ActivityReservationCreate,
			"created reservation "+res.Title)
	}
	return s.assembleOne(ctx, res)
}

// Update overwrites a reservation. Only the creator or an
// administrator may edit; the date rule is re-validated; the write is
// guarded by the version observed at read. A capacity increase
// promotes waiters in a follow-up engine transaction.
func (s *ReservationService) Update(ctx context.Context, cc utils.CallContext, actorID, id uint64, in ReservationInput) (ReservationView, error) {
	actor, err := s.members.FindByID(ctx, actorID)
	if err != nil {
		return ReservationView{}, err
	}
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return ReservationView{}, err
	}
	if res.CreatorMemberID != actorID && !actor.IsAdmin() {
		return ReservationView{}, repository.ErrForbidden
	}
	date, timeOfDay, err := s.validate(in, time.Now().UTC())
	if err != nil {
		return ReservationView{}, err
	}
	loc, err := s.resolveLocation(ctx, in.Locations[0])
	if err != nil {
		return ReservationView{}, err
	}

	oldCapacity := res.MaxCapacity
	observed := res.Version
	res.Title = strings.TrimSpace(in.Title)
	res.Description = in.Description
	res.LocationID = loc.ID
	res.MaxCapacity = in.MaxCapacity
	res.ReservationDate = date
	res.ReservationTime = timeOfDay

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReservationView{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.reservations.UpdateTx(ctx, tx, &res, observed); err != nil {
		return ReservationView{}, err
	}
	if err := tx.Commit(); err != nil {
		return ReservationView{}, err
	}
	committed = true

	if in.MaxCapacity > oldCapacity && s.engine != nil {
		// Freed slots may exist now; fill them from the waitlist.
		if err := s.engine.Promote(ctx, res.ID); err != nil {
			return ReservationView{}, err
		}
	}
	if s.activity != nil {
		s.activity.Record(cc, actor.ID, actor.LoginID, model.ActivityReservationUpdate,
			"updated reservation "+res.Title)
	}
	return s.assembleOne(ctx, res)
}

// Delete removes a reservation and, via the schema cascade, its
// applications. Creator-or-admin only.
func (s *ReservationService) Delete(ctx context.Context, cc utils.CallContext, actorID, id uint64) error {
	actor, err := s.members.FindByID(ctx, actorID)
	if err != nil {
		return err
	}
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if res.CreatorMemberID != actorID && !actor.IsAdmin() {
		return repository.ErrForbidden
	}

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
	if err := s.reservations.DeleteTx(ctx, tx, id, res.Version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	if s.activity != nil {
		s.activity.Record(cc, actor.ID, actor.LoginID, model.ActivityReservationDelete,
			"deleted reservation "+res.Title)
	}
	return nil
}

// Get returns the assembled view of one reservation.
func (s *ReservationService) Get(ctx context.Context, id uint64) (ReservationView, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return ReservationView{}, err
	}
	return s.assembleOne(ctx, res)
}

// ListAll returns every reservation ordered by date ascending.
func (s *ReservationService) ListAll(ctx context.Context) ([]ReservationView, error) {
	rs, err := s.reservations.FindAllOrderByDate(ctx)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, rs)
}

// ListByDate returns reservations on the given date.
func (s *ReservationService) ListByDate(ctx context.Context, date time.Time) ([]ReservationView, error) {
	rs, err := s.reservations.FindByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, rs)
}

// ListFuture returns reservations dated after today.
func (s *ReservationService) ListFuture(ctx context.Context) ([]ReservationView, error) {
	rs, err := s.reservations.FindFuture(ctx)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, rs)
}

// ListAvailable returns reservations that are not fully booked.
func (s *ReservationService) ListAvailable(ctx context.Context) ([]ReservationView, error) {
	rs, err := s.reservations.FindAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, rs)
}

// Applicants returns every application for a reservation ordered by
// applied_at ascending, each row flagged when it belongs to the
// creator.
func (s *ReservationService) Applicants(ctx context.Context, reservationID uint64) ([]ApplicantView, error) {
	res, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	apps, err := s.applications.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	memberIDs := make([]uint64, 0, len(apps))
	for _, a := range apps {
		memberIDs = append(memberIDs, a.MemberID)
	}
	members, err := s.members.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicantView, 0, len(apps))
	for _, a := range apps {
		m := members[a.MemberID]
		out = append(out, ApplicantView{
			ApplicationID: a.ID,
			Member:        summarizeMember(m),
			Status:        string(a.Status),
			Note:          a.Note,
			AppliedAt:     a.AppliedAt,
			IsCreator:     a.MemberID == res.CreatorMemberID,
		})
	}
	return out, nil
}

func (s *ReservationService) assembleOne(ctx context.Context, res model.Reservation) (ReservationView, error) {
	views, err := s.assemble(ctx, []model.Reservation{res})
	if err != nil {
		return ReservationView{}, err
	}
	return views[0], nil
}

// assemble builds views for a batch of reservations with exactly three
// auxiliary queries: one aggregate for counts, one member batch, one
// location batch.
func (s *ReservationService) assemble(ctx context.Context, rs []model.Reservation) ([]ReservationView, error) {
	ids := make([]uint64, 0, len(rs))
	memberIDs := make([]uint64, 0, len(rs))
	locationIDs := make([]uint64, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
		memberIDs = append(memberIDs, r.CreatorMemberID)
		locationIDs = append(locationIDs, r.LocationID)
	}
	counts, err := s.applications.CountByStatusBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	members, err := s.members.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.FindByIDs(ctx, locationIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ReservationView, 0, len(rs))
	for _, r := range rs {
		c := counts[r.ID]
		loc := locations[r.LocationID]
		out = append(out, ReservationView{
			ID:              r.ID,
			Title:           r.Title,
			Description:     r.Description,
			Location:        summarizeLocation(loc),
			MaxCapacity:     r.MaxCapacity,
			ReservationDate: r.ReservationDate.Format("2006-01-02"),
			ReservationTime: r.ReservationTime,
			Creator:         summarizeMember(members[r.CreatorMemberID]),
			ConfirmedCount:  c.Confirmed,
			WaitingCount:    c.Waiting,
			AvailableSlots:  r.AvailableSlots(c.Confirmed),
			IsFullyBooked:   r.IsFullyBooked(c.Confirmed),
			Version:         r.Version,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		})
	}
	return out, nil
}

func summarizeMember(m model.Member) MemberSummary {
	return MemberSummary{
		ID:               m.ID,
		Name:             m.Name,
		GradeEmoji:       m.Grade.Emoji(),
		GradeDescription: m.Grade.Description(),
	}
}

func summarizeLocation(l model.Location) LocationSummary {
	return LocationSummary{
		ID:       l.ID,
		Name:     l.Name,
		Address:  l.Address,
		URL:      l.URL,
		IsActive: l.IsActive,
	}
}
