package brackets

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleEliminationPowerOfTwo(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().Generate(ids(8))
	require.NoError(t, err)

	require.Len(t, matches, 7)
	rounds := make(map[int]int)
	for _, m := range matches {
		assert.False(t, m.IsBye, "power-of-two field has no byes")
		rounds[m.Round]++
	}
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, rounds)
}

func TestSingleEliminationRoundCount(t *testing.T) {
	for _, n := range []int{2, 3, 5, 6, 9, 16, 20} {
		matches, err := NewSingleEliminationGenerator().Generate(ids(n))
		require.NoError(t, err, "n=%d", n)

		maxRound := 0
		finals := 0
		for _, m := range matches {
			if m.Round > maxRound {
				maxRound = m.Round
			}
		}
		for _, m := range matches {
			if m.Round == maxRound {
				finals++
			}
		}
		want := int(math.Ceil(math.Log2(float64(n))))
		assert.Equal(t, want, maxRound, "n=%d rounds", n)
		assert.Equal(t, 1, finals, "n=%d: exactly one final", n)
	}
}

func TestSingleEliminationByesOnlyInFirstRound(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().Generate(ids(6))
	require.NoError(t, err)

	byes := 0
	for _, m := range matches {
		if m.IsBye {
			byes++
			assert.Equal(t, 1, m.Round, "bye %s outside round one", m.UID)
			require.NotNil(t, m.ByeParticipantID)
		}
	}
	assert.Equal(t, 2, byes, "6 entries in a bracket of 8 means 2 byes")
}

func TestSingleEliminationEverySlotFed(t *testing.T) {
	matches, err := NewSingleEliminationGenerator().Generate(ids(9))
	require.NoError(t, err)

	byUID := make(map[string]*Match, len(matches))
	for _, m := range matches {
		byUID[m.UID] = m
	}

	for _, m := range matches {
		if m.IsBye {
			continue
		}
		side1 := m.Participant1ID != nil || m.SourceMatch1UID != nil
		side2 := m.Participant2ID != nil || m.SourceMatch2UID != nil
		assert.True(t, side1, "%s: slot 1 unfed", m.UID)
		assert.True(t, side2, "%s: slot 2 unfed", m.UID)
		if m.SourceMatch1UID != nil {
			assert.Contains(t, byUID, *m.SourceMatch1UID)
		}
		if m.SourceMatch2UID != nil {
			assert.Contains(t, byUID, *m.SourceMatch2UID)
		}
	}
}

func TestSingleEliminationRejectsTinyField(t *testing.T) {
	_, err := NewSingleEliminationGenerator().Generate([]int{1})
	require.ErrorIs(t, err, ErrInsufficientParticipants)
}
