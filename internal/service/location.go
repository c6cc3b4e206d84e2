package service

import (
	"context"
	"strings"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// LocationService implements location management. Locations are never
// hard-deleted once referenced; deactivation hides them from new
// reservations instead.
type LocationService struct {
	locations *repository.LocationRepo
	activity  *ActivityLogger
}

// NewLocationService wires the service.
func NewLocationService(locations *repository.LocationRepo, activity *ActivityLogger) *LocationService {
	return &LocationService{locations: locations, activity: activity}
}

func (s *LocationService) validate(in LocationInput) error {
	verr := newValidationError()
	name := strings.TrimSpace(in.Name)
	if n := len([]rune(name)); n < 2 || n > 100 {
		verr.add("location_name", "location name must be 2-100 characters")
	}
	if !ValidLocationURL(in.URL) {
		verr.add("location_url", "location url must be a naver.com or naver.me link")
	}
	if in.Address != nil && len([]rune(*in.Address)) > 500 {
		verr.add("location_address", "address must not exceed 500 characters")
	}
	return verr.orNil()
}

// Create registers a new active location. Administrator-only at the
// HTTP boundary.
func (s *LocationService) Create(ctx context.Context, cc utils.CallContext, in LocationInput) (model.Location, error) {
	if err := s.validate(in); err != nil {
		return model.Location{}, err
	}
	l := model.Location{
		Name:        strings.TrimSpace(in.Name),
		Address:     in.Address,
		Description: in.Description,
		URL:         in.URL,
		IsActive:    true,
	}
	if err := s.locations.Create(ctx, &l); err != nil {
		return model.Location{}, err
	}
	s.record(cc, model.ActivityLocationCreate, "location created: "+l.Name)
	return l, nil
}

// Get fetches a location by id.
func (s *LocationService) Get(ctx context.Context, id uint64) (model.Location, error) {
	return s.locations.FindByID(ctx, id)
}

// List returns all locations, active and inactive.
func (s *LocationService) List(ctx context.Context) ([]model.Location, error) {
	return s.locations.FindAll(ctx)
}

// ListActive returns locations usable for new reservations.
func (s *LocationService) ListActive(ctx context.Context) ([]model.Location, error) {
	return s.locations.FindActive(ctx)
}

// ListInUse returns locations referenced by current-or-future
// reservations.
func (s *LocationService) ListInUse(ctx context.Context) ([]model.Location, error) {
	return s.locations.FindInUse(ctx)
}

// Search performs a case-insensitive substring match on the name.
func (s *LocationService) Search(ctx context.Context, name string) ([]model.Location, error) {
	return s.locations.SearchByName(ctx, strings.TrimSpace(name))
}

// Update overwrites the mutable fields of a location.
func (s *LocationService) Update(ctx context.Context, cc utils.CallContext, id uint64, in LocationInput) (model.Location, error) {
	if err := s.validate(in); err != nil {
		return model.Location{}, err
	}
	l, err := s.locations.FindByID(ctx, id)
	if err != nil {
		return model.Location{}, err
	}
	l.Name = strings.TrimSpace(in.Name)
	l.Address = in.Address
	l.Description = in.Description
	l.URL = in.URL
	if err := s.locations.Update(ctx, &l); err != nil {
		return model.Location{}, err
	}
	s.record(cc, model.ActivityLocationUpdate, "location updated: "+l.Name)
	return l, nil
}

// Activate makes a location available for new reservations again.
func (s *LocationService) Activate(ctx context.Context, cc utils.CallContext, id uint64) error {
	if err := s.locations.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.record(cc, model.ActivityLocationUpdate, "location activated")
	return nil
}

// Deactivate hides a location from new reservations. Rejected with
// ErrLocationInUse while current-or-future reservations reference it.
func (s *LocationService) Deactivate(ctx context.Context, cc utils.CallContext, id uint64) error {
	if err := s.locations.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(cc, model.ActivityLocationDeactivate, "location deactivated")
	return nil
}

func (s *LocationService) record(cc utils.CallContext, t model.ActivityType, desc string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(cc, cc.ActorID, cc.ActorLoginID, t, desc)
}
