package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// memberCacheTTL matches the 30 minute write expiry of the original
// deployment's member cache. Entries are invalidated eagerly on every
// mutation; the TTL only bounds staleness after missed invalidations.
const memberCacheTTL = 30 * time.Minute

// MemberInput carries self-service registration fields.
type MemberInput struct {
	LoginID   string  `json:"login_id"`
	Password  string  `json:"password"`
	Name      string  `json:"name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	BirthYear int     `json:"birth_year"`
}

// MemberUpdateInput carries the fields a member (or an administrator)
// may change. Grade is honoured only for administrator callers.
type MemberUpdateInput struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Grade *string `json:"grade,omitempty"`
}

// memberStatsSource provides the application tallies behind the
// participation statistics.
type memberStatsSource interface {
	StatsByMember(ctx context.Context, memberID uint64) (repository.MemberStats, error)
}

// MemberService implements member management with a best-effort redis
// read-through cache. A nil redis client disables caching entirely;
// correctness never depends on it.
type MemberService struct {
	members    *repository.MemberRepo
	stats      memberStatsSource
	cache      *redis.Client
	bcryptCost int
	activity   *ActivityLogger
}

// NewMemberService wires the service. cache may be nil.
func NewMemberService(members *repository.MemberRepo, stats memberStatsSource, cache *redis.Client, bcryptCost int, activity *ActivityLogger) *MemberService {
	return &MemberService{members: members, stats: stats, cache: cache, bcryptCost: bcryptCost, activity: activity}
}

func memberCacheKey(id uint64) string { return fmt.Sprintf("member:%d", id) }

// Register creates a member from self-service input. New members start
// at the EGG grade.
func (s *MemberService) Register(ctx context.Context, cc utils.CallContext, in MemberInput) (model.Member, error) {
	verr := newValidationError()
	if !ValidLoginID(in.LoginID) {
		verr.add("login_id", "login id must be 4-20 characters of letters, digits and underscore")
	}
	if !ValidPassword(in.Password) {
		verr.add("password", "password must be 8-20 characters with upper, lower, digit and special character")
	}
	if !ValidMemberName(strings.TrimSpace(in.Name)) {
		verr.add("name", "name must be 2-50 hangul or latin characters")
	}
	if !ValidBirthYear(in.BirthYear, time.Now().UTC()) {
		verr.add("birth_year", "birth year must be between 1900 and the current year")
	}
	if err := verr.orNil(); err != nil {
		return model.Member{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.Member{}, err
	}
	m := model.Member{
		LoginID:      in.LoginID,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		Phone:        in.Phone,
		BirthYear:    in.BirthYear,
		Grade:        model.GradeEgg,
	}
	if err := s.members.Create(ctx, &m); err != nil {
		return model.Member{}, err
	}
	if s.activity != nil {
		s.activity.Record(cc, m.ID, m.LoginID, model.ActivityMemberCreate, "member registered")
	}
	return m, nil
}

// Get fetches a member by id, trying the cache first.
func (s *MemberService) Get(ctx context.Context, id uint64) (model.Member, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, memberCacheKey(id)).Bytes(); err == nil {
			var m model.Member
			if json.Unmarshal(raw, &m) == nil {
				return m, nil
			}
		}
	}
	m, err := s.members.FindByID(ctx, id)
	if err != nil {
		return model.Member{}, err
	}
	s.cachePut(ctx, m)
	return m, nil
}

// GetByLoginID fetches a member by its case-sensitive login id.
func (s *MemberService) GetByLoginID(ctx context.Context, loginID string) (model.Member, error) {
	return s.members.FindByLoginID(ctx, loginID)
}

// List returns all members.
func (s *MemberService) List(ctx context.Context) ([]model.Member, error) {
	return s.members.FindAll(ctx)
}

// ListPaged returns one page of members plus the total count.
func (s *MemberService) ListPaged(ctx context.Context, page, size int) ([]model.Member, int, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = 20
	}
	ms, err := s.members.FindPaged(ctx, page*size, size)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.members.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return ms, total, nil
}

// Update applies the mutable fields. The grade change is applied only
// when the actor is an administrator; non-admin callers sending a
// grade get ErrForbidden.
func (s *MemberService) Update(ctx context.Context, cc utils.CallContext, actorAdmin bool, id uint64, in MemberUpdateInput) (model.Member, error) {
	m, err := s.members.FindByID(ctx, id)
	if err != nil {
		return model.Member{}, err
	}
	verr := newValidationError()
	if !ValidMemberName(strings.TrimSpace(in.Name)) {
		verr.add("name", "name must be 2-50 hangul or latin characters")
	}
	var newGrade *model.Grade
	if in.Grade != nil {
		if !actorAdmin {
			return model.Member{}, repository.ErrForbidden
		}
		g, ok := model.ParseGrade(*in.Grade)
		if !ok {
			verr.add("grade", "unknown grade")
		} else {
			newGrade = &g
		}
	}
	if err := verr.orNil(); err != nil {
		return model.Member{}, err
	}

	m.Name = strings.TrimSpace(in.Name)
	m.Email = in.Email
	m.Phone = in.Phone
	if newGrade != nil {
		m.Grade = *newGrade
	}
	if err := s.members.Update(ctx, &m); err != nil {
		return model.Member{}, err
	}
	s.cacheDel(ctx, id)
	if s.activity != nil {
		s.activity.Record(cc, m.ID, m.LoginID, model.ActivityMemberUpdate, "member updated")
	}
	return m, nil
}

// UpdateGrade sets a member's grade. Administrator-only at the HTTP
// boundary.
func (s *MemberService) UpdateGrade(ctx context.Context, cc utils.CallContext, id uint64, grade model.Grade) (model.Member, error) {
	m, err := s.members.FindByID(ctx, id)
	if err != nil {
		return model.Member{}, err
	}
	m.Grade = grade
	if err := s.members.Update(ctx, &m); err != nil {
		return model.Member{}, err
	}
	s.cacheDel(ctx, id)
	if s.activity != nil {
		s.activity.Record(cc, m.ID, m.LoginID, model.ActivityMemberUpdate, "grade set to "+string(grade))
	}
	return m, nil
}

// SetProfileImage stores the uploaded image file name on the member.
// An empty name clears it.
func (s *MemberService) SetProfileImage(ctx context.Context, id uint64, fileName string) error {
	m, err := s.members.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if fileName == "" {
		m.ProfileImage = nil
	} else {
		m.ProfileImage = &fileName
	}
	if err := s.members.Update(ctx, &m); err != nil {
		return err
	}
	s.cacheDel(ctx, id)
	return nil
}

// Delete removes a member; applications cascade. Administrator-only at
// the HTTP boundary.
func (s *MemberService) Delete(ctx context.Context, cc utils.CallContext, id uint64) error {
	m, err := s.members.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.members.Delete(ctx, id); err != nil {
		return err
	}
	s.cacheDel(ctx, id)
	if s.activity != nil {
		s.activity.Record(cc, m.ID, m.LoginID, model.ActivityMemberDelete, "member deleted")
	}
	return nil
}

// Search performs a case-insensitive keyword search over name, email
// and login id.
func (s *MemberService) Search(ctx context.Context, keyword string) ([]model.Member, error) {
	return s.members.Search(ctx, keyword)
}

// ByGrade lists members with the given grade.
func (s *MemberService) ByGrade(ctx context.Context, grade model.Grade) ([]model.Member, error) {
	return s.members.FindByGrade(ctx, grade)
}

// MemberStatsView is the participation summary returned by the stats
// endpoint.
type MemberStatsView struct {
	MemberID          uint64    `json:"member_id"`
	Name              string    `json:"name"`
	JoinedAt          time.Time `json:"joined_at"`
	TotalApplications int       `json:"total_applications"`
	Confirmed         int       `json:"confirmed"`
	Waiting           int       `json:"waiting"`
	Cancelled         int       `json:"cancelled"`
	Completed         int       `json:"completed"`
	ParticipationRate float64   `json:"participation_rate"`
}

// Stats assembles a member's participation statistics: application
// tallies per status plus the share of applications that ended in
// attendance.
func (s *MemberService) Stats(ctx context.Context, id uint64) (MemberStatsView, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return MemberStatsView{}, err
	}
	st, err := s.stats.StatsByMember(ctx, id)
	if err != nil {
		return MemberStatsView{}, err
	}
	return MemberStatsView{
		MemberID:          m.ID,
		Name:              m.Name,
		JoinedAt:          m.CreatedAt,
		TotalApplications: st.Total,
		Confirmed:         st.Confirmed,
		Waiting:           st.Waiting,
		Cancelled:         st.Cancelled,
		Completed:         st.Completed,
		ParticipationRate: participationRate(st.Completed, st.Total),
	}, nil
}

// participationRate is completed over total as a percentage rounded to
// one decimal place. A member with no applications has a rate of 0.
func participationRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

func (s *MemberService) cachePut(ctx context.Context, m model.Member) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, memberCacheKey(m.ID), raw, memberCacheTTL).Err(); err != nil {
		log.WithError(err).Debug("member cache put failed")
	}
}

func (s *MemberService) cacheDel(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, memberCacheKey(id)).Err(); err != nil {
		log.WithError(err).Debug("member cache invalidation failed")
	}
}
