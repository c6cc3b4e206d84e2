package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipationRate(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		total     int
		want      float64
	}{
		{"no applications", 0, 0, 0},
		{"none completed", 0, 5, 0},
		{"all completed", 5, 5, 100},
		{"half completed", 1, 2, 50},
		{"rounds to one decimal", 1, 3, 33.3},
		{"two thirds", 2, 3, 66.7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, participationRate(tc.completed, tc.total), 0.001)
		})
	}
}
