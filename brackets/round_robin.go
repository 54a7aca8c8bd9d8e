package brackets

import "fmt"

// RoundRobinGenerator pairs every participant against every other once
// per pass using the circle method, so each round is a near-perfect
// matching and an odd field gets exactly one bye per round.
type RoundRobinGenerator struct {
	Passes int
}

func NewRoundRobinGenerator(passes int) *RoundRobinGenerator {
	if passes < 1 {
		passes = 1
	}
	return &RoundRobinGenerator{Passes: passes}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

func (g *RoundRobinGenerator) Generate(participants []int) ([]*Match, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: round robin needs 2, got %d", ErrInsufficientParticipants, n)
	}

	// Pad an odd field with a phantom slot; the phantom's opponent sits
	// out that round.
	slots := make([]*int, 0, n+1)
	for i := range participants {
		slots = append(slots, intPtr(participants[i]))
	}
	if n%2 != 0 {
		slots = append(slots, nil)
	}

	numRounds := len(slots) - 1
	matchesPerRound := len(slots) / 2

	matches := make([]*Match, 0, g.Passes*numRounds*matchesPerRound)
	for pass := 0; pass < g.Passes; pass++ {
		for round := 0; round < numRounds; round++ {
			order := 0
			for i := 0; i < matchesPerRound; i++ {
				p1 := slots[circleIndex(i, len(slots), round)]
				p2 := slots[circleIndex(len(slots)-1-i, len(slots), round)]

				// Alternate sides so first-named matches spread evenly.
				if (i == 0 && round%2 != 0) != (pass%2 != 0) {
					p1, p2 = p2, p1
				}

				absRound := pass*numRounds + round + 1
				if p1 == nil || p2 == nil {
					bye := p1
					if bye == nil {
						bye = p2
					}
					matches = append(matches, &Match{
						UID:              fmt.Sprintf("RR%dB", absRound),
						Round:            absRound,
						OrderInRound:     matchesPerRound,
						Participant1ID:   bye,
						IsBye:            true,
						ByeParticipantID: bye,
					})
					continue
				}
				order++
				matches = append(matches, &Match{
					UID:            fmt.Sprintf("RR%dM%d", absRound, order),
					Round:          absRound,
					OrderInRound:   order,
					Participant1ID: p1,
					Participant2ID: p2,
				})
			}
		}
	}

	return matches, nil
}

// circleIndex rotates a slot index per the round-robin circle method;
// index 0 stays fixed while the rest cycle.
func circleIndex(index, length, round int) int {
	if index == 0 {
		return 0
	}
	index -= 1
	index -= round
	index += length - 1
	index %= length - 1
	return index + 1
}
