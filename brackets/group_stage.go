package brackets

import "fmt"

// GroupDistribution deals participants into groups of the requested size
// snake-style, so the caller's seeding order spreads strong entries
// across groups. When the field does not divide evenly one group stays
// smaller; a group left with a single member plays no matches and its
// member is the group's immediate winner.
func GroupDistribution(participants []int, groupSize int) ([][]int, error) {
	if groupSize < 2 {
		return nil, fmt.Errorf("group size must be at least 2, got %d", groupSize)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: no participants to distribute", ErrInsufficientParticipants)
	}

	numGroups := (len(participants) + groupSize - 1) / groupSize
	groups := make([][]int, numGroups)

	forward := true
	g := 0
	for _, p := range participants {
		groups[g] = append(groups[g], p)
		if forward {
			g++
			if g == numGroups {
				g = numGroups - 1
				forward = false
			}
		} else {
			g--
			if g < 0 {
				g = 0
				forward = true
			}
		}
	}

	return groups, nil
}

// GroupStageGenerator runs a round robin inside every group. Matches of
// group g carry Group=g and rounds are shared across groups, so a round
// of the stage is one simultaneous wave.
type GroupStageGenerator struct {
	GroupSize int
}

func NewGroupStageGenerator(groupSize int) *GroupStageGenerator {
	return &GroupStageGenerator{GroupSize: groupSize}
}

func (g *GroupStageGenerator) Name() string {
	return "GroupStage"
}

func (g *GroupStageGenerator) Generate(participants []int) ([]*Match, error) {
	groups, err := GroupDistribution(participants, g.GroupSize)
	if err != nil {
		return nil, err
	}

	rr := NewRoundRobinGenerator(1)
	matches := make([]*Match, 0)

	for gi, group := range groups {
		if len(group) == 1 {
			// A single-member group plays nothing; the member is its
			// immediate winner. No match rows are produced.
			continue
		}
		groupMatches, err := rr.Generate(group)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", gi, err)
		}
		for _, m := range groupMatches {
			m.Group = intPtr(gi)
			m.UID = fmt.Sprintf("G%d%s", gi, m.UID)
			matches = append(matches, m)
		}
	}

	return matches, nil
}
