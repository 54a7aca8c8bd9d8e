package brackets

import (
	"fmt"
	"sort"
)

// SwissInput is the state a swiss round is paired from. Scores and
// ScoreDiffs come from the standings of the completed rounds; Played
// records prior matchups so rematches are avoided while possible.
type SwissInput struct {
	Participants []int
	Round        int
	Scores       map[int]int
	ScoreDiffs   map[int]int
	Played       map[int]map[int]bool
	HadBye       map[int]bool
}

// SwissPairRound pairs one swiss round. Participants are ordered by
// score descending, then id ascending, and each is paired with the
// closest-scored opponent not yet played; when only rematches remain the
// smallest score gap wins, then the lower id. An odd field gives the
// lowest-ranked participant without a prior bye the round's bye.
func SwissPairRound(in SwissInput) ([]*Match, error) {
	if len(in.Participants) < 2 {
		return nil, fmt.Errorf("%w: swiss needs 2, got %d", ErrInsufficientParticipants, len(in.Participants))
	}
	if in.Round < 1 {
		return nil, fmt.Errorf("swiss: round must be positive, got %d", in.Round)
	}

	pool := make([]int, len(in.Participants))
	copy(pool, in.Participants)
	sort.Slice(pool, func(i, j int) bool {
		si, sj := in.Scores[pool[i]], in.Scores[pool[j]]
		if si != sj {
			return si > sj
		}
		return pool[i] < pool[j]
	})

	matches := make([]*Match, 0, len(pool)/2+1)

	if len(pool)%2 != 0 {
		byeIdx := len(pool) - 1
		for i := len(pool) - 1; i >= 0; i-- {
			if !in.HadBye[pool[i]] {
				byeIdx = i
				break
			}
		}
		bye := pool[byeIdx]
		pool = append(pool[:byeIdx], pool[byeIdx+1:]...)
		matches = append(matches, &Match{
			UID:              fmt.Sprintf("SW%dB", in.Round),
			Round:            in.Round,
			Participant1ID:   intPtr(bye),
			IsBye:            true,
			ByeParticipantID: intPtr(bye),
		})
	}

	order := 0
	for len(pool) > 0 {
		p1 := pool[0]
		pool = pool[1:]

		best := -1
		bestRematch := -1
		for i, cand := range pool {
			if in.Played[p1] != nil && in.Played[p1][cand] {
				if bestRematch == -1 || swissCloser(in, p1, pool[i], pool[bestRematch]) {
					bestRematch = i
				}
				continue
			}
			if best == -1 || swissCloser(in, p1, pool[i], pool[best]) {
				best = i
			}
		}
		pick := best
		if pick == -1 {
			pick = bestRematch
		}

		p2 := pool[pick]
		pool = append(pool[:pick], pool[pick+1:]...)

		order++
		matches = append(matches, &Match{
			UID:            fmt.Sprintf("SW%dM%d", in.Round, order),
			Round:          in.Round,
			OrderInRound:   order,
			Participant1ID: intPtr(p1),
			Participant2ID: intPtr(p2),
		})
	}
	for _, m := range matches {
		if m.IsBye {
			m.OrderInRound = len(matches)
		}
	}

	return matches, nil
}

// swissCloser reports whether candidate a is the better opponent for p
// than b: smaller score gap, then smaller score-differential gap, then
// lower id.
func swissCloser(in SwissInput, p, a, b int) bool {
	ga, gb := absInt(in.Scores[p]-in.Scores[a]), absInt(in.Scores[p]-in.Scores[b])
	if ga != gb {
		return ga < gb
	}
	da, db := absInt(in.ScoreDiffs[p]-in.ScoreDiffs[a]), absInt(in.ScoreDiffs[p]-in.ScoreDiffs[b])
	if da != db {
		return da < db
	}
	return a < b
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
