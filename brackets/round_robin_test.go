package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestRoundRobinMatchCounts(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 7, 8, 11} {
		matches, err := NewRoundRobinGenerator(1).Generate(ids(n))
		require.NoError(t, err, "n=%d", n)

		appearances := make(map[int]int)
		played := 0
		for _, m := range matches {
			if m.IsBye {
				continue
			}
			played++
			appearances[*m.Participant1ID]++
			appearances[*m.Participant2ID]++
		}

		assert.Equal(t, n*(n-1)/2, played, "n=%d: full round robin match count", n)
		for id, count := range appearances {
			assert.Equal(t, n-1, count, "n=%d: participant %d appearances", n, id)
		}
	}
}

func TestRoundRobinEachPairMeetsOnce(t *testing.T) {
	matches, err := NewRoundRobinGenerator(1).Generate(ids(6))
	require.NoError(t, err)

	seen := make(map[[2]int]int)
	for _, m := range matches {
		if m.IsBye {
			continue
		}
		a, b := *m.Participant1ID, *m.Participant2ID
		if a > b {
			a, b = b, a
		}
		seen[[2]int{a, b}]++
	}
	assert.Len(t, seen, 15)
	for pair, count := range seen {
		assert.Equal(t, 1, count, "pair %v", pair)
	}
}

func TestRoundRobinOddFieldOneByePerRound(t *testing.T) {
	matches, err := NewRoundRobinGenerator(1).Generate(ids(5))
	require.NoError(t, err)

	byesPerRound := make(map[int]int)
	byeHolders := make(map[int]bool)
	for _, m := range matches {
		if m.IsBye {
			byesPerRound[m.Round]++
			require.NotNil(t, m.ByeParticipantID)
			byeHolders[*m.ByeParticipantID] = true
		}
	}
	require.Len(t, byesPerRound, 5, "five rounds, one bye each")
	for round, count := range byesPerRound {
		assert.Equal(t, 1, count, "round %d", round)
	}
	assert.Len(t, byeHolders, 5, "every participant sits out exactly once")
}

func TestRoundRobinDeterministic(t *testing.T) {
	a, err := NewRoundRobinGenerator(1).Generate(ids(7))
	require.NoError(t, err)
	b, err := NewRoundRobinGenerator(1).Generate(ids(7))
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, *a[i], *b[i], "match %d", i)
	}
}

func TestRoundRobinDoublePass(t *testing.T) {
	matches, err := NewRoundRobinGenerator(2).Generate(ids(4))
	require.NoError(t, err)

	played := 0
	for _, m := range matches {
		if !m.IsBye {
			played++
		}
	}
	assert.Equal(t, 12, played, "double round robin plays every pairing twice")
}

func TestRoundRobinRejectsTinyField(t *testing.T) {
	_, err := NewRoundRobinGenerator(1).Generate([]int{42})
	require.ErrorIs(t, err, ErrInsufficientParticipants)
}
