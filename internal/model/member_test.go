package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeOrderAndDisplay(t *testing.T) {
	assert.Equal(t, 1, GradeEgg.Level())
	assert.Equal(t, 5, GradeRooster.Level())
	assert.True(t, GradeEgg.Level() < GradeHatching.Level())

	assert.Equal(t, "🥚", GradeEgg.Emoji())
	assert.Equal(t, "관리자", GradeRooster.Description())

	assert.True(t, GradeRooster.IsAdmin())
	assert.False(t, GradeYoungBird.IsAdmin())
}

func TestParseGrade(t *testing.T) {
	g, ok := ParseGrade("CHICK")
	assert.True(t, ok)
	assert.Equal(t, GradeChick, g)

	_, ok = ParseGrade("chick")
	assert.False(t, ok, "grades are case-sensitive")
	_, ok = ParseGrade("DRAGON")
	assert.False(t, ok)
}
