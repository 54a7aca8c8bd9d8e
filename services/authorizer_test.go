package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matchpoint-academy/tournament-engine/models"
)

func TestRoleAuthorizer(t *testing.T) {
	authorizer := NewRoleAuthorizer()
	instructorID := 7
	assigned := &models.Tournament{ID: 1, InstructorID: &instructorID}
	unassigned := &models.Tournament{ID: 2}

	tests := []struct {
		name       string
		actor      Actor
		action     Action
		tournament *models.Tournament
		want       bool
	}{
		{"admin can do anything", Actor{UserID: 1, Role: models.RoleAdmin}, ActionManageTournament, nil, true},
		{"admin can submit results anywhere", Actor{UserID: 1, Role: models.RoleAdmin}, ActionSubmitResult, unassigned, true},

		{"assigned instructor submits results", Actor{UserID: 7, Role: models.RoleInstructor}, ActionSubmitResult, assigned, true},
		{"other instructor cannot", Actor{UserID: 8, Role: models.RoleInstructor}, ActionSubmitResult, assigned, false},
		{"instructor without assignment cannot", Actor{UserID: 7, Role: models.RoleInstructor}, ActionSubmitResult, unassigned, false},
		{"assigned instructor transitions status", Actor{UserID: 7, Role: models.RoleInstructor}, ActionTransitionStatus, assigned, true},
		{"any instructor confirms themselves", Actor{UserID: 8, Role: models.RoleInstructor}, ActionConfirmInstructor, nil, true},
		{"instructor cannot manage tournaments", Actor{UserID: 7, Role: models.RoleInstructor}, ActionManageTournament, assigned, false},

		{"participant enrolls", Actor{UserID: 3, Role: models.RoleParticipant}, ActionEnroll, nil, true},
		{"participant withdraws", Actor{UserID: 3, Role: models.RoleParticipant}, ActionWithdraw, nil, true},
		{"participant cannot submit results", Actor{UserID: 3, Role: models.RoleParticipant}, ActionSubmitResult, assigned, false},
		{"participant cannot manage campuses", Actor{UserID: 3, Role: models.RoleParticipant}, ActionManageCampus, nil, false},

		{"unknown role denied", Actor{UserID: 5, Role: "visitor"}, ActionEnroll, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, authorizer.Can(tc.actor, tc.action, tc.tournament))
		})
	}
}
