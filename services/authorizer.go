package services

import (
	"github.com/matchpoint-academy/tournament-engine/models"
)

// Actor is the authenticated caller as seen by the services. Handlers
// build it from the JWT claims.
type Actor struct {
	UserID int
	Role   models.UserRole
}

type Action string

const (
	ActionManageTournament  Action = "tournament:manage"
	ActionAssignInstructor  Action = "tournament:assign_instructor"
	ActionConfirmInstructor Action = "tournament:confirm_instructor"
	ActionTransitionStatus  Action = "tournament:transition"
	ActionSubmitResult      Action = "session:submit_result"
	ActionVoidSession       Action = "session:void"
	ActionEnroll            Action = "enrollment:enroll"
	ActionWithdraw          Action = "enrollment:withdraw"
	ActionManageCampus      Action = "campus:manage"
	ActionViewRewardAudit   Action = "reward:view_audit"
	ActionUploadLogo        Action = "tournament:upload_logo"
)

// Authorizer answers whether an actor may perform an action. The
// tournament pointer may be nil for actions that are not scoped to a
// single tournament.
type Authorizer interface {
	Can(actor Actor, action Action, tournament *models.Tournament) bool
}

type roleAuthorizer struct{}

func NewRoleAuthorizer() Authorizer {
	return roleAuthorizer{}
}

func (roleAuthorizer) Can(actor Actor, action Action, tournament *models.Tournament) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleInstructor:
		switch action {
		case ActionConfirmInstructor:
			return true
		case ActionSubmitResult, ActionTransitionStatus, ActionUploadLogo:
			return tournament != nil && tournament.InstructorID != nil && *tournament.InstructorID == actor.UserID
		default:
			return false
		}
	case models.RoleParticipant:
		switch action {
		case ActionEnroll, ActionWithdraw:
			return true
		default:
			return false
		}
	default:
		return false
	}
}
