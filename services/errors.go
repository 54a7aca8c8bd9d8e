package services

import (
	"errors"
	"fmt"
)

// Errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule failures.
	ErrValidationFailed        = errors.New("validation failed")
	ErrPasswordTooShort        = errors.New("password is too short")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrEnrollmentNotOpen       = errors.New("tournament enrollment is not open")
	ErrCapacityExceeded        = errors.New("tournament enrollment is full")
	ErrInsufficientCredits     = errors.New("participant does not have enough credits")
	ErrFormatFieldTooSmall     = errors.New("not enough participants for the tournament format")
	ErrResultForByeSession     = errors.New("cannot submit a result for a bye session")
	ErrStageNotComplete        = errors.New("stage has unfinalized sessions")
	ErrNoFurtherRounds         = errors.New("all rounds for this stage have been generated")
	ErrInstructorRoleMismatch  = errors.New("assigned user does not have the instructor role")
	ErrRewardPolicyInvalid     = errors.New("reward policy is invalid")
	ErrDataIntegrityViolation  = errors.New("data integrity violation detected")

	// Conflicts.
	ErrEnrollmentConflict     = errors.New("participant is already enrolled in this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrRewardAlreadyApplied   = errors.New("reward has already been applied for this participant")

	// Authentication and authorization.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Entity lookups.
	ErrUserNotFound       = errors.New("user not found")
	ErrCampusNotFound     = errors.New("campus not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrStageNotFound      = errors.New("stage not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// Lifecycle.
	ErrInvalidStatus           = errors.New("invalid tournament status provided")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
)

// PreconditionError describes why a status transition was refused. It
// wraps ErrInvalidStatusTransition so callers can match either the
// broad class or inspect the detail.
type PreconditionError struct {
	From   string
	To     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s: %s", e.From, e.To, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return ErrInvalidStatusTransition
}
