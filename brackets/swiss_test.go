package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwissFirstRoundPairsBySeedOrder(t *testing.T) {
	matches, err := SwissPairRound(SwissInput{
		Participants: ids(8),
		Round:        1,
	})
	require.NoError(t, err)
	require.Len(t, matches, 4)

	// With no scores everyone is tied; pairing walks the id order.
	assert.Equal(t, 1, *matches[0].Participant1ID)
	assert.Equal(t, 2, *matches[0].Participant2ID)
	assert.Equal(t, 7, *matches[3].Participant1ID)
	assert.Equal(t, 8, *matches[3].Participant2ID)
}

func TestSwissPairsWithinScoreGroups(t *testing.T) {
	in := SwissInput{
		Participants: ids(4),
		Round:        2,
		Scores:       map[int]int{1: 3, 2: 3, 3: 0, 4: 0},
		Played: map[int]map[int]bool{
			1: {3: true},
			3: {1: true},
			2: {4: true},
			4: {2: true},
		},
	}
	matches, err := SwissPairRound(in)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Winners meet winners, losers meet losers.
	assert.Equal(t, 1, *matches[0].Participant1ID)
	assert.Equal(t, 2, *matches[0].Participant2ID)
	assert.Equal(t, 3, *matches[1].Participant1ID)
	assert.Equal(t, 4, *matches[1].Participant2ID)
}

func TestSwissAvoidsRematchWhenPossible(t *testing.T) {
	in := SwissInput{
		Participants: ids(4),
		Round:        2,
		Scores:       map[int]int{1: 3, 2: 3, 3: 3, 4: 3},
		Played: map[int]map[int]bool{
			1: {2: true},
			2: {1: true},
			3: {4: true},
			4: {3: true},
		},
	}
	matches, err := SwissPairRound(in)
	require.NoError(t, err)

	for _, m := range matches {
		p1, p2 := *m.Participant1ID, *m.Participant2ID
		assert.False(t, in.Played[p1][p2], "rematch %d vs %d", p1, p2)
	}
}

func TestSwissRematchAllowedAsLastResort(t *testing.T) {
	in := SwissInput{
		Participants: []int{1, 2},
		Round:        3,
		Played: map[int]map[int]bool{
			1: {2: true},
			2: {1: true},
		},
	}
	matches, err := SwissPairRound(in)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, *matches[0].Participant1ID)
	assert.Equal(t, 2, *matches[0].Participant2ID)
}

func TestSwissOddFieldByeGoesToLowestWithoutOne(t *testing.T) {
	in := SwissInput{
		Participants: ids(5),
		Round:        2,
		Scores:       map[int]int{1: 3, 2: 3, 3: 0, 4: 0, 5: 0},
		HadBye:       map[int]bool{5: true},
	}
	matches, err := SwissPairRound(in)
	require.NoError(t, err)

	var bye *Match
	for _, m := range matches {
		if m.IsBye {
			require.Nil(t, bye, "only one bye per round")
			bye = m
		}
	}
	require.NotNil(t, bye)
	// 5 already had one, so the next participant up takes it.
	assert.Equal(t, 4, *bye.ByeParticipantID)
}

func TestSwissDeterministic(t *testing.T) {
	in := SwissInput{
		Participants: ids(8),
		Round:        2,
		Scores:       map[int]int{1: 3, 2: 3, 3: 3, 4: 3, 5: 0, 6: 0, 7: 0, 8: 0},
	}
	a, err := SwissPairRound(in)
	require.NoError(t, err)
	b, err := SwissPairRound(in)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, *a[i], *b[i])
	}
}
