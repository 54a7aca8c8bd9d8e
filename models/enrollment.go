package models

import "time"

// EnrollmentStatus matches the enrollment_status ENUM in the database.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentConfirmed EnrollmentStatus = "confirmed"
	EnrollmentWithdrawn EnrollmentStatus = "withdrawn"
)

// Enrollment is a participant's registration for a tournament. A partial
// unique index on (participant_id, tournament_id) WHERE status <>
// 'withdrawn' enforces at most one live enrollment per pair.
type Enrollment struct {
	ID             int              `json:"id" db:"id"`
	ParticipantID  int              `json:"participant_id" db:"participant_id"`
	TournamentID   int              `json:"tournament_id" db:"tournament_id"`
	CreditsCharged int              `json:"credits_charged" db:"credits_charged"`
	Status         EnrollmentStatus `json:"status" db:"status"`
	EnrolledAt     time.Time        `json:"enrolled_at" db:"enrolled_at"`

	Participant *User `json:"participant,omitempty" db:"-"`
}

func (e *Enrollment) Active() bool {
	return e.Status != EnrollmentWithdrawn
}
