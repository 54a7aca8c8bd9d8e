package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-academy/tournament-engine/models"
)

func validPolicy() models.RewardPolicy {
	return models.RewardPolicy{
		Alpha: 0.3,
		Buckets: []models.RewardBucket{
			{Placement: 1, XP: 100, Credits: 50},
			{Placement: 0, XP: 20, Credits: 5},
		},
		DominantSkills: []string{"forehand"},
		DominantDelta:  4,
	}
}

func draftTournament() *models.Tournament {
	return &models.Tournament{
		ID:                 1,
		Name:               "Spring Open",
		Discipline:         "tennis",
		Format:             models.FormatRoundRobin,
		AgeCategory:        models.AgeOpen,
		Capacity:           8,
		EntryCost:          10,
		Status:             models.StatusDraft,
		RewardPolicy:       validPolicy(),
		EnrollmentDeadline: time.Now().Add(24 * time.Hour),
		StartDate:          time.Now().Add(48 * time.Hour),
	}
}

func TestCheckTransitionGraph(t *testing.T) {
	tests := []struct {
		name    string
		from    models.TournamentStatus
		to      models.TournamentStatus
		allowed bool
	}{
		{"draft to seeking", models.StatusDraft, models.StatusSeekingInstructor, true},
		{"draft skips ahead", models.StatusDraft, models.StatusOngoing, false},
		{"seeking to confirmed", models.StatusSeekingInstructor, models.StatusInstructorConfirmed, true},
		{"confirmed to enrollment", models.StatusInstructorConfirmed, models.StatusReadyForEnrollment, true},
		{"enrollment to ongoing", models.StatusReadyForEnrollment, models.StatusOngoing, true},
		{"ongoing to completed", models.StatusOngoing, models.StatusCompleted, true},
		{"ongoing back to enrollment", models.StatusOngoing, models.StatusReadyForEnrollment, false},
		{"completed is terminal", models.StatusCompleted, models.StatusCancelled, false},
		{"cancelled is terminal", models.StatusCancelled, models.StatusDraft, false},
		{"draft cancellable", models.StatusDraft, models.StatusCancelled, true},
		{"ongoing cancellable", models.StatusOngoing, models.StatusCancelled, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tournament := draftTournament()
			tournament.Status = tc.from
			instructorID := 7
			tournament.InstructorID = &instructorID

			snap := TransitionSnapshot{
				Tournament:        tournament,
				ActiveEnrollments: 8,
				Instructor:        &models.User{ID: 7, Role: models.RoleInstructor},
				AllStagesComplete: true,
			}

			err := CheckTransition(snap, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				var precondition *PreconditionError
				require.ErrorAs(t, err, &precondition)
				assert.ErrorIs(t, err, ErrInvalidStatusTransition)
			}
		})
	}
}

func TestCheckTransitionSeekingRequiresValidConfig(t *testing.T) {
	breakages := map[string]func(*models.Tournament){
		"empty name":         func(t *models.Tournament) { t.Name = "" },
		"capacity too small": func(t *models.Tournament) { t.Capacity = 1 },
		"negative entry":     func(t *models.Tournament) { t.EntryCost = -5 },
		"deadline after start": func(t *models.Tournament) {
			t.EnrollmentDeadline = t.StartDate.Add(time.Hour)
		},
		"missing reward policy": func(t *models.Tournament) {
			t.RewardPolicy = models.RewardPolicy{}
		},
	}

	for name, corrupt := range breakages {
		t.Run(name, func(t *testing.T) {
			tournament := draftTournament()
			corrupt(tournament)
			err := CheckTransition(TransitionSnapshot{Tournament: tournament}, models.StatusSeekingInstructor)
			assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		})
	}
}

func TestCheckTransitionInstructorConfirmed(t *testing.T) {
	tournament := draftTournament()
	tournament.Status = models.StatusSeekingInstructor

	err := CheckTransition(TransitionSnapshot{Tournament: tournament}, models.StatusInstructorConfirmed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition, "no instructor assigned")

	instructorID := 7
	tournament.InstructorID = &instructorID
	err = CheckTransition(TransitionSnapshot{
		Tournament: tournament,
		Instructor: &models.User{ID: 7, Role: models.RoleParticipant},
	}, models.StatusInstructorConfirmed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition, "assigned user is not an instructor")

	err = CheckTransition(TransitionSnapshot{
		Tournament: tournament,
		Instructor: &models.User{ID: 7, Role: models.RoleInstructor},
	}, models.StatusInstructorConfirmed)
	assert.NoError(t, err)
}

func TestCheckTransitionReadyForEnrollmentNeedsOpenDeadline(t *testing.T) {
	tournament := draftTournament()
	tournament.Status = models.StatusInstructorConfirmed
	tournament.EnrollmentDeadline = time.Now().Add(-time.Minute)

	err := CheckTransition(TransitionSnapshot{Tournament: tournament}, models.StatusReadyForEnrollment)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCheckTransitionOngoingNeedsMinimumField(t *testing.T) {
	tournament := draftTournament()
	tournament.Status = models.StatusReadyForEnrollment
	tournament.Format = models.FormatGroupAndKnockout

	err := CheckTransition(TransitionSnapshot{Tournament: tournament, ActiveEnrollments: 3}, models.StatusOngoing)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	err = CheckTransition(TransitionSnapshot{Tournament: tournament, ActiveEnrollments: 4}, models.StatusOngoing)
	assert.NoError(t, err)
}

func TestCheckTransitionCompletedNeedsAllSessionsFinalized(t *testing.T) {
	tournament := draftTournament()
	tournament.Status = models.StatusOngoing

	err := CheckTransition(TransitionSnapshot{Tournament: tournament, AllStagesComplete: false}, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	err = CheckTransition(TransitionSnapshot{Tournament: tournament, AllStagesComplete: true}, models.StatusCompleted)
	assert.NoError(t, err)
}
