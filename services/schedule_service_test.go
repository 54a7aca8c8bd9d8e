package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matchpoint-academy/tournament-engine/models"
)

func TestSwissRoundCount(t *testing.T) {
	tournament := &models.Tournament{Format: models.FormatSwiss}

	assert.Equal(t, 0, SwissRoundCount(tournament, 1))
	assert.Equal(t, 1, SwissRoundCount(tournament, 2))
	assert.Equal(t, 2, SwissRoundCount(tournament, 4))
	assert.Equal(t, 3, SwissRoundCount(tournament, 5))
	assert.Equal(t, 3, SwissRoundCount(tournament, 8))
	assert.Equal(t, 4, SwissRoundCount(tournament, 9))

	tournament.SwissRounds = 6
	assert.Equal(t, 6, SwissRoundCount(tournament, 8), "configured round count wins")
}

func TestKnockoutFieldSize(t *testing.T) {
	tests := []struct {
		numGroups int
		total     int
		want      int
	}{
		{2, 8, 4},
		{2, 10, 4},
		{4, 16, 8},
		{3, 12, 4},
		{2, 4, 2},
		{1, 4, 2},
		{1, 2, 2},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, knockoutFieldSize(tc.numGroups, tc.total),
			"groups=%d total=%d", tc.numGroups, tc.total)
	}
}
