package model

import "time"

// Grade is the ordered membership tag stored in members.grade.
// Levels run from EGG (1) up to ROOSTER (5); ROOSTER is the
// administrator grade.
type Grade string

const (
	GradeEgg       Grade = "EGG"
	GradeHatching  Grade = "HATCHING"
	GradeChick     Grade = "CHICK"
	GradeYoungBird Grade = "YOUNG_BIRD"
	GradeRooster   Grade = "ROOSTER"
)

// gradeInfo carries the display attributes attached to each grade.
type gradeInfo struct {
	emoji       string
	description string
	level       int
}

var gradeTable = map[Grade]gradeInfo{
	GradeEgg:       {"🥚", "알", 1},
	GradeHatching:  {"🐣", "부화중", 2},
	GradeChick:     {"🐥", "병아리", 3},
	GradeYoungBird: {"🐤", "어린새", 4},
	GradeRooster:   {"🐔", "관리자", 5},
}

// Valid reports whether g is one of the five known grades.
func (g Grade) Valid() bool {
	_, ok := gradeTable[g]
	return ok
}

// Level returns the numeric order of the grade (1..5), or 0 for an
// unknown grade.
func (g Grade) Level() int { return gradeTable[g].level }

// Emoji returns the display emoji for the grade.
func (g Grade) Emoji() string { return gradeTable[g].emoji }

// Description returns the human-readable label for the grade.
func (g Grade) Description() string { return gradeTable[g].description }

// IsAdmin reports whether the grade carries administrator rights.
func (g Grade) IsAdmin() bool { return g == GradeRooster }

// ParseGrade converts a string into a Grade, reporting whether the
// value is one of the known grades.
func ParseGrade(s string) (Grade, bool) {
	g := Grade(s)
	return g, g.Valid()
}

// Member mirrors the `members` table. Related applications are loaded
// through explicit repository queries rather than an owning
// collection on the struct.
//
// Fields:
//  ID           – primary key identifier.
//  LoginID      – unique, case-sensitive login identifier.
//  PasswordHash – bcrypt hash of the password, never the plaintext.
//  Name         – display name.
//  Email        – optional contact email.
//  Phone        – optional phone number.
//  BirthYear    – year of birth, 1900..current year.
//  Grade        – membership grade; ROOSTER is the administrator.
//  ProfileImage – optional stored profile image file name.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Member struct {
	ID           uint64    // members.id
	LoginID      string    // members.login_id
	PasswordHash string    // members.password_hash
	Name         string    // members.name
	Email        *string   // members.email (nullable)
	Phone        *string   // members.phone (nullable)
	BirthYear    int       // members.birth_year
	Grade        Grade     // members.grade
	ProfileImage *string   // members.profile_image (nullable)
	CreatedAt    time.Time // members.created_at
	UpdatedAt    time.Time // members.updated_at
}

// IsAdmin reports whether the member holds the administrator grade.
func (m *Member) IsAdmin() bool { return m.Grade.IsAdmin() }

// Age returns the member's age derived from the birth year.
func (m *Member) Age(nowYear int) int { return nowYear - m.BirthYear }
