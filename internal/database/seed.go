package database

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/friendlyi/reservation-backend/internal/config"
	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

// Seed loads the bootstrap data on startup: the default locations, the
// administrator account and a sample member per grade. Every step is
// idempotent, so running it on an already-populated database is a
// no-op.
func Seed(ctx context.Context, cfg config.Config, members *repository.MemberRepo, locations *repository.LocationRepo) error {
	if err := seedLocations(ctx, locations); err != nil {
		return err
	}
	if err := seedAdmin(ctx, cfg, members); err != nil {
		return err
	}
	return seedSampleMembers(ctx, cfg, members)
}

func seedLocations(ctx context.Context, locations *repository.LocationRepo) error {
	existing, err := locations.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	str := func(s string) *string { return &s }
	defaults := []model.Location{
		{Name: "회의실 A", Address: str("서울시 강남구 테헤란로 123번길 1층"),
			Description: str("소규모 회의 및 스터디용 공간 (최대 10명)"),
			URL:         "https://naver.me/IgJGvT1Y", IsActive: true},
		{Name: "대강당", Address: str("서울시 강남구 테헤란로 123번길 지하 1층"),
			Description: str("대규모 세미나 및 컨퍼런스용 공간 (최대 100명)"),
			URL:         "https://naver.me/IgJGvT1Y", IsActive: true},
		{Name: "스터디룸 1", Address: str("서울시 강남구 테헤란로 123번길 2층"),
			Description: str("조용한 스터디 공간 (최대 6명)"),
			URL:         "https://naver.me/IgJGvT1Y", IsActive: true},
		{Name: "세미나실 B", Address: str("서울시 강남구 테헤란로 123번길 3층"),
			Description: str("중규모 세미나 및 워크샵용 공간 (최대 30명)"),
			URL:         "https://naver.me/IgJGvT1Y", IsActive: true},
		{Name: "온라인 회의실", Address: str("온라인"),
			Description: str("온라인 화상회의 공간 (제한 없음) - 미팅 링크는 예약 확정 시 별도 안내"),
			URL:         "https://naver.me/IgJGvT1Y", IsActive: true},
	}
	for i := range defaults {
		if err := locations.Create(ctx, &defaults[i]); err != nil {
			if errors.Is(err, repository.ErrLocationNameExists) {
				continue
			}
			return err
		}
		log.Infof("seeded location: %s", defaults[i].Name)
	}
	return nil
}

func seedAdmin(ctx context.Context, cfg config.Config, members *repository.MemberRepo) error {
	exists, err := members.ExistsByLoginID(ctx, cfg.AdminLoginID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	email := "admin@friendlyi.com"
	phone := "010-0000-0000"
	admin := model.Member{
		LoginID:      cfg.AdminLoginID,
		PasswordHash: hash,
		Name:         "시스템 관리자",
		Email:        &email,
		Phone:        &phone,
		BirthYear:    1990,
		Grade:        model.GradeRooster,
	}
	if err := members.Create(ctx, &admin); err != nil {
		return err
	}
	log.Infof("seeded administrator account: %s", cfg.AdminLoginID)
	log.Warn("change the initial administrator password")
	return nil
}

// seedSampleMembers creates one member per non-admin grade for dev
// environments. Skipped in prod.
func seedSampleMembers(ctx context.Context, cfg config.Config, members *repository.MemberRepo) error {
	if cfg.Env == "prod" {
		return nil
	}
	samples := []struct {
		loginID   string
		name      string
		email     string
		phone     string
		birthYear int
		grade     model.Grade
	}{
		{"egg_user", "김알이", "egg@test.com", "010-1111-1111", 2005, model.GradeEgg},
		{"hatching_user", "이부화", "hatching@test.com", "010-2222-2222", 2003, model.GradeHatching},
		{"chick_user", "박병아리", "chick@test.com", "010-3333-3333", 2001, model.GradeChick},
		{"young_bird_user", "최어린새", "youngbird@test.com", "010-4444-4444", 1999, model.GradeYoungBird},
	}
	for _, s := range samples {
		exists, err := members.ExistsByLoginID(ctx, s.loginID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		hash, err := utils.HashPassword("1234", cfg.BcryptCost)
		if err != nil {
			return err
		}
		email, phone := s.email, s.phone
		m := model.Member{
			LoginID:      s.loginID,
			PasswordHash: hash,
			Name:         s.name,
			Email:        &email,
			Phone:        &phone,
			BirthYear:    s.birthYear,
			Grade:        s.grade,
		}
		if err := members.Create(ctx, &m); err != nil {
			return err
		}
		log.Infof("seeded sample member: %s (%s)", s.loginID, s.grade)
	}
	return nil
}
