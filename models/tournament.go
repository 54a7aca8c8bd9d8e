package models

import "time"

// TournamentFormat matches the tournament_format ENUM in the database.
type TournamentFormat string

const (
	FormatRoundRobin       TournamentFormat = "round_robin"
	FormatKnockout         TournamentFormat = "knockout"
	FormatSwiss            TournamentFormat = "swiss"
	FormatGroupAndKnockout TournamentFormat = "group_knockout"
)

// MinParticipants returns the smallest field the format can be played with.
func (f TournamentFormat) MinParticipants() int {
	switch f {
	case FormatGroupAndKnockout:
		return 4
	default:
		return 2
	}
}

// TournamentStatus matches the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusDraft               TournamentStatus = "draft"
	StatusSeekingInstructor   TournamentStatus = "seeking_instructor"
	StatusInstructorConfirmed TournamentStatus = "instructor_confirmed"
	StatusReadyForEnrollment  TournamentStatus = "ready_for_enrollment"
	StatusOngoing             TournamentStatus = "ongoing"
	StatusCompleted           TournamentStatus = "completed"
	StatusCancelled           TournamentStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type AgeCategory string

const (
	AgeU10  AgeCategory = "u10"
	AgeU14  AgeCategory = "u14"
	AgeU18  AgeCategory = "u18"
	AgeOpen AgeCategory = "open"
)

// Scoring configures the points awarded per match outcome. Zero value
// means "use defaults" (3/1/0).
type Scoring struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Loss int `json:"loss"`
}

func DefaultScoring() Scoring {
	return Scoring{Win: 3, Draw: 1, Loss: 0}
}

func (s Scoring) OrDefault() Scoring {
	if s == (Scoring{}) {
		return DefaultScoring()
	}
	return s
}

// Tournament is one competition instance. RewardPolicy is a snapshot of
// the policy in effect at creation time and is never re-read from the
// live policy afterwards.
type Tournament struct {
	ID                 int              `json:"id" db:"id"`
	Name               string           `json:"name" db:"name"`
	Discipline         string           `json:"discipline" db:"discipline"`
	Format             TournamentFormat `json:"format" db:"format"`
	AgeCategory        AgeCategory      `json:"age_category" db:"age_category"`
	Capacity           int              `json:"capacity" db:"capacity"`
	EntryCost          int              `json:"entry_cost" db:"entry_cost"`
	GroupSize          int              `json:"group_size,omitempty" db:"group_size"`
	SwissRounds        int              `json:"swiss_rounds,omitempty" db:"swiss_rounds"`
	Status             TournamentStatus `json:"status" db:"status"`
	InstructorID       *int             `json:"instructor_id,omitempty" db:"instructor_id"`
	Scoring            Scoring          `json:"scoring" db:"scoring"`
	RewardPolicy       RewardPolicy     `json:"reward_policy" db:"reward_policy"`
	EnrollmentDeadline time.Time        `json:"enrollment_deadline" db:"enrollment_deadline"`
	StartDate          time.Time        `json:"start_date" db:"start_date"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	LogoKey            *string          `json:"-" db:"logo_key"`
	LogoURL            *string          `json:"logo_url,omitempty" db:"-"`

	// Optional linked entities, populated by services, not mapped directly.
	Instructor  *User        `json:"instructor,omitempty" db:"-"`
	Stages      []Stage      `json:"stages,omitempty" db:"-"`
	Enrollments []Enrollment `json:"enrollments,omitempty" db:"-"`
}
