package brackets

import "errors"

// Match is one generated pairing. Participant IDs are nil on knockout
// placeholder slots that are fed by an earlier match (SourceMatch*UID).
// A bye match carries the advancing participant in ByeParticipantID and
// has no opponent.
type Match struct {
	UID          string
	Round        int
	OrderInRound int
	Group        *int

	Participant1ID *int
	Participant2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string

	IsPlaceholder bool

	IsBye            bool
	ByeParticipantID *int
}

var ErrInsufficientParticipants = errors.New("not enough participants for the requested format")

// Generator produces the full match set of a stage from an ordered
// participant list. Output is deterministic: the same input list always
// yields the same matches.
type Generator interface {
	Name() string
	Generate(participants []int) ([]*Match, error)
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }
