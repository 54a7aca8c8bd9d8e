package models

import "time"

// SessionStatus matches the session_status ENUM in the database.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionVoid      SessionStatus = "void"
)

// Session is one scheduled contest. A nil P2ParticipantID marks a bye.
// Result is present iff Finalized is true; a finalized result is never
// rewritten.
type Session struct {
	ID              int           `json:"id" db:"id"`
	TournamentID    int           `json:"tournament_id" db:"tournament_id"`
	StageID         int           `json:"stage_id" db:"stage_id"`
	Round           int           `json:"round" db:"round"`
	GroupIndex      *int          `json:"group_index,omitempty" db:"group_index"`
	P1ParticipantID *int          `json:"p1_participant_id,omitempty" db:"p1_participant_id"`
	P2ParticipantID *int          `json:"p2_participant_id,omitempty" db:"p2_participant_id"`
	CampusID        int           `json:"campus_id" db:"campus_id"`
	StartTime       time.Time     `json:"start_time" db:"start_time"`
	Status          SessionStatus `json:"status" db:"status"`
	Finalized       bool          `json:"finalized" db:"finalized"`
	Result          *MatchResult  `json:"result,omitempty" db:"result"`

	// Bracket linkage for knockout stages.
	BracketUID    *string `json:"bracket_uid,omitempty" db:"bracket_uid"`
	NextSessionID *int    `json:"next_session_id,omitempty" db:"next_session_id"`
	WinnerToSlot  *int    `json:"winner_to_slot,omitempty" db:"winner_to_slot"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsBye reports whether the session is a walkover slot with a single
// participant.
func (s *Session) IsBye() bool {
	return s.P1ParticipantID != nil && s.P2ParticipantID == nil
}

// Involves reports whether the participant is on either side of the session.
func (s *Session) Involves(participantID int) bool {
	if s.P1ParticipantID != nil && *s.P1ParticipantID == participantID {
		return true
	}
	if s.P2ParticipantID != nil && *s.P2ParticipantID == participantID {
		return true
	}
	return false
}
