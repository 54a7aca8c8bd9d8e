package models

import (
	"errors"
	"fmt"
	"time"
)

type Outcome string

const (
	OutcomeP1Win Outcome = "p1_win"
	OutcomeP2Win Outcome = "p2_win"
	OutcomeDraw  Outcome = "draw"
)

// Placement is one entry of a ranked group result.
type Placement struct {
	ParticipantID int `json:"participant_id"`
	Position      int `json:"position"`
	Score         int `json:"score"`
}

// MatchResult is the submitted outcome of a session, stored verbatim as
// JSONB once the session is finalized. Head-to-head sessions carry
// Outcome plus scores; group sessions carry a ranked Placements list.
type MatchResult struct {
	Outcome    Outcome     `json:"outcome,omitempty"`
	P1Score    int         `json:"p1_score"`
	P2Score    int         `json:"p2_score"`
	Placements []Placement `json:"placements,omitempty"`

	SubmittedBy int       `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}

var (
	ErrResultOutcomeMissing   = errors.New("result: outcome is required for head-to-head sessions")
	ErrResultSessionNotReady  = errors.New("result: session does not have both participants yet")
	ErrResultOutcomeConflict  = errors.New("result: outcome does not match the submitted scores")
	ErrResultPlacementMissing = errors.New("result: ranked placements are required for group sessions")
	ErrResultDuplicateEntry   = errors.New("result: participant listed more than once")
	ErrResultUnknownEntry     = errors.New("result: participant is not part of the session")
)

// ValidateHeadToHead checks the result shape for a two-participant
// session. A bracket session whose slots are not both filled yet, for
// example one still waiting on a source match, accepts no result.
func (r *MatchResult) ValidateHeadToHead(session *Session) error {
	if len(r.Placements) != 0 {
		return fmt.Errorf("result: placements not allowed on head-to-head session %d", session.ID)
	}
	if session.P1ParticipantID == nil || session.P2ParticipantID == nil {
		return fmt.Errorf("%w: session %d", ErrResultSessionNotReady, session.ID)
	}
	switch r.Outcome {
	case OutcomeP1Win:
		if r.P1Score < r.P2Score {
			return ErrResultOutcomeConflict
		}
	case OutcomeP2Win:
		if r.P2Score < r.P1Score {
			return ErrResultOutcomeConflict
		}
	case OutcomeDraw:
		if r.P1Score != r.P2Score {
			return ErrResultOutcomeConflict
		}
	case "":
		return ErrResultOutcomeMissing
	default:
		return fmt.Errorf("result: unknown outcome %q", r.Outcome)
	}
	return nil
}

// ValidatePlacements checks a ranked result against the session's
// participant set: every entry known, nobody listed twice, positions
// contiguous from 1.
func (r *MatchResult) ValidatePlacements(participants []int) error {
	if len(r.Placements) == 0 {
		return ErrResultPlacementMissing
	}
	known := make(map[int]bool, len(participants))
	for _, id := range participants {
		known[id] = true
	}
	seen := make(map[int]bool, len(r.Placements))
	positions := make(map[int]bool, len(r.Placements))
	for _, p := range r.Placements {
		if !known[p.ParticipantID] {
			return fmt.Errorf("%w: participant %d", ErrResultUnknownEntry, p.ParticipantID)
		}
		if seen[p.ParticipantID] {
			return fmt.Errorf("%w: participant %d", ErrResultDuplicateEntry, p.ParticipantID)
		}
		seen[p.ParticipantID] = true
		if p.Position < 1 || p.Position > len(r.Placements) || positions[p.Position] {
			return fmt.Errorf("result: invalid position %d for participant %d", p.Position, p.ParticipantID)
		}
		positions[p.Position] = true
	}
	return nil
}

// WinnerID returns the winning participant of a head-to-head session,
// or nil on a draw.
func (r *MatchResult) WinnerID(session *Session) *int {
	switch r.Outcome {
	case OutcomeP1Win:
		return session.P1ParticipantID
	case OutcomeP2Win:
		return session.P2ParticipantID
	}
	return nil
}
