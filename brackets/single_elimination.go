package brackets

import (
	"fmt"
	"math"
)

// node is one slot of the working bracket tree: either a known
// participant, the winner of an earlier match, or a phantom bye slot.
type node struct {
	participantID    *int
	sourceMatchUID   *string
	isByePlaceholder bool
}

// SingleEliminationGenerator builds a knockout bracket. The field is
// padded to the next power of two, with the byes handed to the top of
// the participant order in round one, so the round count is always
// ceil(log2(n)) and exactly one participant survives the final.
type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) Generate(participants []int) ([]*Match, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: knockout needs 2, got %d", ErrInsufficientParticipants, n)
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(numRounds)
	numByes := bracketSize - n

	// The first numByes entries face a phantom in round one; the rest
	// meet each other. Phantoms never reach a later round this way.
	current := make([]*node, 0, bracketSize)
	idx := 0
	for i := 0; i < numByes; i++ {
		current = append(current,
			&node{participantID: intPtr(participants[idx])},
			&node{isByePlaceholder: true},
		)
		idx++
	}
	for ; idx < n; idx++ {
		current = append(current, &node{participantID: intPtr(participants[idx])})
	}

	matches := make([]*Match, 0, bracketSize-1)

	for round := 1; round <= numRounds; round++ {
		next := make([]*node, 0, len(current)/2)

		for i := 0; i < len(current); i += 2 {
			n1, n2 := current[i], current[i+1]
			order := i/2 + 1
			uid := fmt.Sprintf("R%dM%d", round, order)
			m := &Match{UID: uid, Round: round, OrderInRound: order}

			switch {
			case n1.participantID != nil && n2.isByePlaceholder:
				m.IsBye = true
				m.ByeParticipantID = n1.participantID
				m.Participant1ID = n1.participantID
				next = append(next, &node{participantID: n1.participantID})

			case n2.participantID != nil && n1.isByePlaceholder:
				m.IsBye = true
				m.ByeParticipantID = n2.participantID
				m.Participant1ID = n2.participantID
				next = append(next, &node{participantID: n2.participantID})

			case n1.isByePlaceholder || n2.isByePlaceholder:
				return nil, fmt.Errorf("unexpected bye slot in round %d match %d", round, order)

			default:
				if n1.participantID != nil {
					m.Participant1ID = n1.participantID
				} else {
					m.SourceMatch1UID = n1.sourceMatchUID
					m.IsPlaceholder = true
				}
				if n2.participantID != nil {
					m.Participant2ID = n2.participantID
				} else {
					m.SourceMatch2UID = n2.sourceMatchUID
					m.IsPlaceholder = true
				}
				next = append(next, &node{sourceMatchUID: strPtr(uid)})
			}

			matches = append(matches, m)
		}
		current = next
	}

	if len(current) != 1 {
		return nil, fmt.Errorf("bracket reduction ended with %d nodes, want 1", len(current))
	}

	return matches, nil
}
