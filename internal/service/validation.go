package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ValidationError carries field-level input failures. Handlers render
// it as the `errors` map of the error envelope.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) add(field, msg string) { e.Fields[field] = msg }

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Input policies. Regexes follow the documented member and location
// rules; titles and names additionally admit hangul.
var (
	loginIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_]{4,20}$`)
	namePattern     = regexp.MustCompile(`^[가-힣a-zA-Z\s]{2,50}$`)
	titlePattern    = regexp.MustCompile(`^[가-힣a-zA-Z0-9\s\-_().,!?]+$`)
	locationURLTest = regexp.MustCompile(`(?i)^https?://([\w-]+\.)?(naver\.com|naver\.me)(/.*)?$`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSpecial = regexp.MustCompile(`[@$!%*?&]`)
	passwordClass   = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,20}$`)
)

// ValidLoginID reports whether s satisfies the login id policy.
func ValidLoginID(s string) bool { return loginIDPattern.MatchString(s) }

// ValidMemberName reports whether s satisfies the member name policy.
func ValidMemberName(s string) bool { return namePattern.MatchString(s) }

// ValidPassword reports whether s is 8–20 chars and contains a lower,
// an upper, a digit and one of @$!%*?&.
func ValidPassword(s string) bool {
	return passwordClass.MatchString(s) &&
		passwordLower.MatchString(s) &&
		passwordUpper.MatchString(s) &&
		passwordDigit.MatchString(s) &&
		passwordSpecial.MatchString(s)
}

// ValidTitle reports whether s is a 2–100 char title of the allowed
// character class.
func ValidTitle(s string) bool {
	n := len([]rune(s))
	return n >= 2 && n <= 100 && titlePattern.MatchString(s)
}

// ValidLocationURL reports whether s is a naver.com / naver.me link of
// at most 500 chars.
func ValidLocationURL(s string) bool {
	return len(s) <= 500 && locationURLTest.MatchString(s)
}

// ValidBirthYear reports whether y lies in 1900..current year.
func ValidBirthYear(y int, now time.Time) bool {
	return y >= 1900 && y <= now.Year()
}

// dateInPast reports whether d is strictly before today's date
// (same-day reservations are allowed).
func dateInPast(d, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return day.Before(today)
}
