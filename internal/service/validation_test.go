package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidLoginID(t *testing.T) {
	assert.True(t, ValidLoginID("user_01"))
	assert.True(t, ValidLoginID("ABCD"))
	assert.False(t, ValidLoginID("abc"), "too short")
	assert.False(t, ValidLoginID("user with space"))
	assert.False(t, ValidLoginID("한글아이디"))
	assert.False(t, ValidLoginID("this_login_id_is_way_too_long_for_policy"))
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("Abcdef1!"))
	assert.True(t, ValidPassword("Str0ng&Pass"))
	assert.False(t, ValidPassword("abcdef1!"), "missing upper")
	assert.False(t, ValidPassword("ABCDEF1!"), "missing lower")
	assert.False(t, ValidPassword("Abcdefg!"), "missing digit")
	assert.False(t, ValidPassword("Abcdefg1"), "missing special")
	assert.False(t, ValidPassword("Ab1!"), "too short")
	assert.False(t, ValidPassword("Abcdef1#"), "# is not in the allowed special set")
}

func TestValidMemberName(t *testing.T) {
	assert.True(t, ValidMemberName("김철수"))
	assert.True(t, ValidMemberName("John Smith"))
	assert.False(t, ValidMemberName("a"), "too short")
	assert.False(t, ValidMemberName("name123"))
}

func TestValidTitle(t *testing.T) {
	assert.True(t, ValidTitle("주간 스터디 모임 (3회차)"))
	assert.True(t, ValidTitle("Team sync!"))
	assert.False(t, ValidTitle("x"), "too short")
	assert.False(t, ValidTitle("제목<script>"))
}

func TestValidLocationURL(t *testing.T) {
	assert.True(t, ValidLocationURL("https://naver.me/IgJGvT1Y"))
	assert.True(t, ValidLocationURL("https://map.naver.com/v5/search"))
	assert.True(t, ValidLocationURL("HTTP://NAVER.COM/place"))
	assert.False(t, ValidLocationURL("https://google.com/maps"))
	assert.False(t, ValidLocationURL("naver.com/no-scheme"))
	assert.False(t, ValidLocationURL("https://evilnaver.com/x"))
}

func TestValidBirthYear(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, ValidBirthYear(1990, now))
	assert.True(t, ValidBirthYear(2026, now))
	assert.False(t, ValidBirthYear(1899, now))
	assert.False(t, ValidBirthYear(2027, now))
}

func TestDateInPast(t *testing.T) {
	now := time.Date(2026, 8, 15, 14, 30, 0, 0, time.UTC)
	assert.False(t, dateInPast(time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), now), "same day is allowed")
	assert.False(t, dateInPast(time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC), now))
	assert.True(t, dateInPast(time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC), now))
}

func TestValidationErrorMessage(t *testing.T) {
	verr := newValidationError()
	verr.add("title", "too short")
	verr.add("max_capacity", "out of range")
	assert.Equal(t, "validation failed: max_capacity: out of range; title: too short", verr.Error())
	assert.Error(t, verr.orNil())
	assert.NoError(t, newValidationError().orNil())
}
